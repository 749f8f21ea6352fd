package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// ReportRepositoryImpl implements ReportRepository for PostgreSQL
type ReportRepositoryImpl struct {
	db *sqlx.DB
}

// NewReportRepository creates a new PostgreSQL report repository
func NewReportRepository(db *sqlx.DB) ports.ReportRepository {
	return &ReportRepositoryImpl{db: db}
}

// Create inserts a new submission record
func (r *ReportRepositoryImpl) Create(ctx context.Context, rep *models.ReportSubmission) error {
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	if rep.Status == "" {
		rep.Status = models.ReportUnreported
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO report_submissions (id, candidate_id, status, report_id,
			feedback, created_at, updated_at)
		VALUES (:id, :candidate_id, :status, :report_id, :feedback, NOW(), NOW())
	`, rep)
	if err != nil {
		return apperrors.Wrap(err, "failed to create report submission")
	}
	return nil
}

// GetByCandidate retrieves the candidate's submission record
func (r *ReportRepositoryImpl) GetByCandidate(ctx context.Context, candidateID uuid.UUID) (*models.ReportSubmission, error) {
	var rep models.ReportSubmission
	err := r.db.GetContext(ctx, &rep, `
		SELECT id, candidate_id, status, report_id, feedback, created_at, updated_at
		FROM report_submissions
		WHERE candidate_id = $1
	`, candidateID)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NotFound("report submission")
	}
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get report submission")
	}
	return &rep, nil
}

// UpdateStatus moves the submission to status, keeping the remote report id
// when one was assigned
func (r *ReportRepositoryImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ReportStatus, reportID *int64) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_submissions
		SET status = $2, report_id = COALESCE($3, report_id), updated_at = NOW()
		WHERE id = $1
	`, id, status, reportID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update report status")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to update report status")
	}
	if n == 0 {
		return apperrors.NotFound("report submission")
	}
	return nil
}

// RecordOutcome persists the terminal status and the raw registry feedback
// together
func (r *ReportRepositoryImpl) RecordOutcome(ctx context.Context, id uuid.UUID, status models.ReportStatus, feedback json.RawMessage) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE report_submissions
		SET status = $2, feedback = $3, updated_at = NOW()
		WHERE id = $1
	`, id, status, feedback)
	if err != nil {
		return apperrors.Wrap(err, "failed to record report outcome")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to record report outcome")
	}
	if n == 0 {
		return apperrors.NotFound("report submission")
	}
	return nil
}

// DeleteByCandidate removes the candidate's submission record
func (r *ReportRepositoryImpl) DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM report_submissions WHERE candidate_id = $1
	`, candidateID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete report submission")
	}
	return nil
}
