package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/erezimm/cast/models"
)

// PhotometryRepository defines the interface for per-candidate photometry
// storage.
type PhotometryRepository interface {
	// InsertIfAbsent writes the point unless an equivalent one already
	// exists, in a single atomic statement. For detections, equivalent
	// means same magnitude and error with an observation time within
	// window of an existing detection; for non-detections, same limit
	// within window. It reports whether a row was written.
	InsertIfAbsent(ctx context.Context, p *models.PhotometryPoint, window time.Duration) (bool, error)

	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.PhotometryPoint, error)
	DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error
}
