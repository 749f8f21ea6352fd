package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// AlertRepositoryImpl implements AlertRepository for PostgreSQL
type AlertRepositoryImpl struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new PostgreSQL alert repository
func NewAlertRepository(db *sqlx.DB) ports.AlertRepository {
	return &AlertRepositoryImpl{db: db}
}

// Create inserts a new alert provenance record
func (r *AlertRepositoryImpl) Create(ctx context.Context, a *models.AlertRecord) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO alerts (id, candidate_id, filename, discovery_datetime,
			mount, camera, field_id, subimage, score,
			ref_cutout, new_cutout, diff_cutout, created_at)
		VALUES (:id, :candidate_id, :filename, :discovery_datetime,
			:mount, :camera, :field_id, :subimage, :score,
			:ref_cutout, :new_cutout, :diff_cutout, NOW())
	`, a)
	if err != nil {
		return apperrors.Wrap(err, "failed to create alert record")
	}
	return nil
}

// ListByCandidate returns the candidate's alert trail, newest first
func (r *AlertRepositoryImpl) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.AlertRecord, error) {
	alerts := []models.AlertRecord{}
	err := r.db.SelectContext(ctx, &alerts, `
		SELECT id, candidate_id, filename, discovery_datetime,
			mount, camera, field_id, subimage, score,
			ref_cutout, new_cutout, diff_cutout, created_at
		FROM alerts
		WHERE candidate_id = $1
		ORDER BY discovery_datetime DESC
	`, candidateID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list alerts")
	}
	return alerts, nil
}

// ExistsByFilename reports whether an alert from this source file was
// already ingested
func (r *AlertRepositoryImpl) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, `
		SELECT EXISTS(SELECT 1 FROM alerts WHERE filename = $1)
	`, filename)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to check alert filename")
	}
	return exists, nil
}

// DeleteByCandidate removes the candidate's alert trail
func (r *AlertRepositoryImpl) DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM alerts WHERE candidate_id = $1
	`, candidateID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete alerts")
	}
	return nil
}
