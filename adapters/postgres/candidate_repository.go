package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

const candidateColumns = `
	id, name, ra, dec, discovery_datetime, classification, real_bogus,
	vetted_by, external_name, reported, too_name, host_galaxy,
	distance_mpc, redshift, created_at
`

// CandidateRepositoryImpl implements CandidateRepository for PostgreSQL
type CandidateRepositoryImpl struct {
	db *sqlx.DB
}

// NewCandidateRepository creates a new PostgreSQL candidate repository
func NewCandidateRepository(db *sqlx.DB) ports.CandidateRepository {
	return &CandidateRepositoryImpl{db: db}
}

// Create inserts a new candidate row. A name collision surfaces as a
// STATE_CONFLICT error so the ingestor can retry its spatial match.
func (r *CandidateRepositoryImpl) Create(ctx context.Context, c *models.Candidate) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO candidates (id, name, ra, dec, discovery_datetime, classification,
			real_bogus, vetted_by, external_name, reported, too_name,
			host_galaxy, distance_mpc, redshift, created_at)
		VALUES (:id, :name, :ra, :dec, :discovery_datetime, :classification,
			:real_bogus, :vetted_by, :external_name, :reported, :too_name,
			:host_galaxy, :distance_mpc, :redshift, NOW())
	`, c)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" { // unique_violation
			return apperrors.StateConflict("candidate name already exists: " + c.Name)
		}
		return apperrors.Wrap(err, "failed to create candidate")
	}
	return nil
}

// GetByID retrieves a candidate by its ID
func (r *CandidateRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	var c models.Candidate
	err := r.db.GetContext(ctx, &c, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE id = $1
	`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("candidate")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get candidate")
	}
	return &c, nil
}

// GetByName retrieves a candidate by its derived name
func (r *CandidateRepositoryImpl) GetByName(ctx context.Context, name string) (*models.Candidate, error) {
	var c models.Candidate
	err := r.db.GetContext(ctx, &c, `
		SELECT `+candidateColumns+`
		FROM candidates
		WHERE name = $1
	`, name)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("candidate")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get candidate by name")
	}
	return &c, nil
}

// List returns candidates matching the filter, newest first
func (r *CandidateRepositoryImpl) List(ctx context.Context, filter ports.CandidateFilter) ([]models.Candidate, error) {
	query := `
		SELECT ` + candidateColumns + `
		FROM candidates
		WHERE ($1::text IS NULL OR classification = $1)
		  AND ($2::boolean IS NULL OR reported = $2)
		ORDER BY discovery_datetime DESC
	`
	args := []interface{}{filter.Classification, filter.Reported}
	if filter.Limit > 0 {
		query += ` LIMIT $3 OFFSET $4`
		args = append(args, filter.Limit, filter.Offset)
	}

	candidates := []models.Candidate{}
	if err := r.db.SelectContext(ctx, &candidates, query, args...); err != nil {
		return nil, apperrors.Wrap(err, "failed to list candidates")
	}
	return candidates, nil
}

// Positions returns every candidate's id and coordinates for spatial
// matching.
func (r *CandidateRepositoryImpl) Positions(ctx context.Context) ([]models.Candidate, error) {
	candidates := []models.Candidate{}
	err := r.db.SelectContext(ctx, &candidates, `
		SELECT id, name, ra, dec, discovery_datetime, reported, created_at
		FROM candidates
	`)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to load candidate positions")
	}
	return candidates, nil
}

// UpdateClassification records an operator's vetting decision
func (r *CandidateRepositoryImpl) UpdateClassification(ctx context.Context, id uuid.UUID, class models.Classification, vettedBy string, realBogus bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates
		SET classification = $2, vetted_by = $3, real_bogus = $4
		WHERE id = $1
	`, id, class, vettedBy, realBogus)
	return checkOneRow(res, err, "failed to update classification")
}

// UpdateHostGalaxy attaches a host-galaxy association
func (r *CandidateRepositoryImpl) UpdateHostGalaxy(ctx context.Context, id uuid.UUID, galaxy string, distanceMpc, redshift *float64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates
		SET host_galaxy = $2, distance_mpc = $3, redshift = $4
		WHERE id = $1
	`, id, galaxy, distanceMpc, redshift)
	return checkOneRow(res, err, "failed to update host galaxy")
}

// SetExternalName records the registry-assigned designation
func (r *CandidateRepositoryImpl) SetExternalName(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET external_name = $2 WHERE id = $1
	`, id, name)
	return checkOneRow(res, err, "failed to set external name")
}

// SetReported flips the reported flag
func (r *CandidateRepositoryImpl) SetReported(ctx context.Context, id uuid.UUID, reported bool) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET reported = $2 WHERE id = $1
	`, id, reported)
	return checkOneRow(res, err, "failed to set reported flag")
}

// SetToOName attaches a target-of-opportunity program name
func (r *CandidateRepositoryImpl) SetToOName(ctx context.Context, id uuid.UUID, name string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE candidates SET too_name = $2 WHERE id = $1
	`, id, name)
	return checkOneRow(res, err, "failed to set ToO name")
}

// Delete removes the candidate row. Dependent rows are removed by their own
// repositories before this is called.
func (r *CandidateRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM candidates WHERE id = $1`, id)
	return checkOneRow(res, err, "failed to delete candidate")
}

func checkOneRow(res sql.Result, err error, message string) error {
	if err != nil {
		return apperrors.Wrap(err, message)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, message)
	}
	if n == 0 {
		return apperrors.NotFound("candidate")
	}
	return nil
}
