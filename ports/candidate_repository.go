package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/erezimm/cast/models"
)

// CandidateRepository defines the interface for candidate catalog storage
type CandidateRepository interface {
	// Create inserts a new candidate. A unique-name conflict returns a
	// STATE_CONFLICT error so the caller can re-run spatial matching.
	Create(ctx context.Context, c *models.Candidate) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	GetByName(ctx context.Context, name string) (*models.Candidate, error)
	List(ctx context.Context, filter CandidateFilter) ([]models.Candidate, error)

	// Positions returns the id and coordinates of every candidate, for
	// spatial matching against an incoming alert.
	Positions(ctx context.Context) ([]models.Candidate, error)

	UpdateClassification(ctx context.Context, id uuid.UUID, class models.Classification, vettedBy string, realBogus bool) error
	UpdateHostGalaxy(ctx context.Context, id uuid.UUID, galaxy string, distanceMpc, redshift *float64) error
	SetExternalName(ctx context.Context, id uuid.UUID, name string) error
	SetReported(ctx context.Context, id uuid.UUID, reported bool) error
	SetToOName(ctx context.Context, id uuid.UUID, name string) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// CandidateFilter narrows List results.
type CandidateFilter struct {
	Classification *models.Classification
	Reported       *bool
	Limit          int
	Offset         int
}
