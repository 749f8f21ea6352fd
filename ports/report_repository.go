package ports

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/erezimm/cast/models"
)

// ReportRepository defines the interface for registry submission state
type ReportRepository interface {
	Create(ctx context.Context, r *models.ReportSubmission) error
	GetByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.ReportSubmission, error)

	// UpdateStatus moves the submission to status, recording the remote
	// report id when one was assigned.
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus, reportID *int64) error

	// RecordOutcome persists the terminal status together with the raw
	// registry feedback in one transaction.
	RecordOutcome(ctx context.Context, id uuid.UUID, status models.ReportStatus, feedback json.RawMessage) error

	DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error
}
