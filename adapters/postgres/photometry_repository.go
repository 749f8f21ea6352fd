package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// PhotometryRepositoryImpl implements PhotometryRepository for PostgreSQL
type PhotometryRepositoryImpl struct {
	db *sqlx.DB
}

// NewPhotometryRepository creates a new PostgreSQL photometry repository
func NewPhotometryRepository(db *sqlx.DB) ports.PhotometryRepository {
	return &PhotometryRepositoryImpl{db: db}
}

// InsertIfAbsent writes the point unless an equivalent one already exists.
// The existence check and insert run as one statement, so two concurrent
// ingests of the same measurement cannot both write it. Equivalence is
// per band within the time window: detections match on magnitude and
// error, a non-detection matches any earlier non-detection regardless of
// its limiting magnitude.
func (r *PhotometryRepositoryImpl) InsertIfAbsent(ctx context.Context, p *models.PhotometryPoint, window time.Duration) (bool, error) {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO photometry (id, candidate_id, obs_time, magnitude,
			magnitude_error, mag_limit, filter_band, telescope, instrument, created_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, NOW()
		WHERE NOT EXISTS (
			SELECT 1 FROM photometry
			WHERE candidate_id = $2
			  AND filter_band = $7
			  AND obs_time BETWEEN $3::timestamptz - $10::interval
			                   AND $3::timestamptz + $10::interval
			  AND magnitude IS NOT DISTINCT FROM $4
			  AND magnitude_error IS NOT DISTINCT FROM $5
		)
	`, p.ID, p.CandidateID, p.ObsTime, p.Magnitude, p.MagnitudeError,
		p.Limit, p.FilterBand, p.Telescope, p.Instrument, window.String())

	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert photometry point")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to insert photometry point")
	}
	return n > 0, nil
}

// ListByCandidate returns the candidate's points in observation order
func (r *PhotometryRepositoryImpl) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.PhotometryPoint, error) {
	points := []models.PhotometryPoint{}
	err := r.db.SelectContext(ctx, &points, `
		SELECT id, candidate_id, obs_time, magnitude, magnitude_error,
			mag_limit, filter_band, telescope, instrument, created_at
		FROM photometry
		WHERE candidate_id = $1
		ORDER BY obs_time ASC
	`, candidateID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list photometry")
	}
	return points, nil
}

// DeleteByCandidate removes all of the candidate's points
func (r *PhotometryRepositoryImpl) DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM photometry WHERE candidate_id = $1
	`, candidateID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete photometry")
	}
	return nil
}
