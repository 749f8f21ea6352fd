package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// DataProductRepositoryImpl implements DataProductRepository for PostgreSQL
type DataProductRepositoryImpl struct {
	db *sqlx.DB
}

// NewDataProductRepository creates a new PostgreSQL data product repository
func NewDataProductRepository(db *sqlx.DB) ports.DataProductRepository {
	return &DataProductRepositoryImpl{db: db}
}

// Create inserts a new data product record
func (r *DataProductRepositoryImpl) Create(ctx context.Context, d *models.DataProduct) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	_, err := r.db.NamedExecContext(ctx, `
		INSERT INTO data_products (id, candidate_id, type, name, object_key,
			content_type, size_bytes, created_at)
		VALUES (:id, :candidate_id, :type, :name, :object_key,
			:content_type, :size_bytes, NOW())
	`, d)
	if err != nil {
		return apperrors.Wrap(err, "failed to create data product")
	}
	return nil
}

// ListByCandidate returns the candidate's artifacts, newest first
func (r *DataProductRepositoryImpl) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]models.DataProduct, error) {
	products := []models.DataProduct{}
	err := r.db.SelectContext(ctx, &products, `
		SELECT id, candidate_id, type, name, object_key, content_type,
			size_bytes, created_at
		FROM data_products
		WHERE candidate_id = $1
		ORDER BY created_at DESC
	`, candidateID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list data products")
	}
	return products, nil
}

// DeleteByCandidate removes the candidate's artifact records
func (r *DataProductRepositoryImpl) DeleteByCandidate(ctx context.Context, candidateID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM data_products WHERE candidate_id = $1
	`, candidateID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete data products")
	}
	return nil
}
