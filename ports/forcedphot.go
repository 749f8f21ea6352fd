package ports

import (
	"context"

	"github.com/erezimm/cast/models"
)

// ForcedPhotStore defines the interface to the forced-photometry job queue.
// Submit and Results are separate calls so the poll loop stays in the
// service layer where its cadence can be tested.
type ForcedPhotStore interface {
	// Submit enqueues the request row.
	Submit(ctx context.Context, req *models.ForcedPhotRequest) error

	// Status reads the request's current state. Found is false while the
	// pipeline has not yet picked the row up.
	Status(ctx context.Context, requestID int64) (status models.ForcedPhotStatus, found bool, err error)

	// Results returns the output rows of a completed request.
	Results(ctx context.Context, requestID int64) ([]models.ForcedPhotResult, error)
}
