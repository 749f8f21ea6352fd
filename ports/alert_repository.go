package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/erezimm/cast/models"
)

// AlertRepository defines the interface for alert provenance storage
type AlertRepository interface {
	Create(ctx context.Context, a *models.AlertRecord) error
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.AlertRecord, error)
	// ExistsByFilename reports whether an alert from this source file was
	// already ingested.
	ExistsByFilename(ctx context.Context, filename string) (bool, error)
	DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error
}

// DataProductRepository defines the interface for candidate artifact records
type DataProductRepository interface {
	Create(ctx context.Context, d *models.DataProduct) error
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.DataProduct, error)
	DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error
}
