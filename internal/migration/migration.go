package migration

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/erezimm/cast/internal/errors"
)

// Migrator defines the interface for database migration operations
type Migrator interface {
	Run(ctx context.Context, db *sqlx.DB) error
	Version() string
}

// MigrationRunner handles database schema migrations
type MigrationRunner struct {
	version string
}

// NewRunner creates a new migration runner
func NewRunner() *MigrationRunner {
	return &MigrationRunner{
		version: "1.0.0",
	}
}

// Version returns the migration version
func (r *MigrationRunner) Version() string {
	return r.version
}

// Run executes all database migrations in the correct order
func (r *MigrationRunner) Run(ctx context.Context, db *sqlx.DB) error {
	if err := r.createCandidatesTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create candidates table")
	}

	if err := r.createPhotometryTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create photometry table")
	}

	if err := r.createAlertsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create alerts table")
	}

	if err := r.createReportSubmissionsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create report_submissions table")
	}

	if err := r.createDataProductsTable(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create data_products table")
	}

	if err := r.createIndexes(ctx, db); err != nil {
		return errors.Wrap(err, "failed to create indexes")
	}

	return nil
}

func (r *MigrationRunner) createCandidatesTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS candidates (
			id UUID PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			ra DOUBLE PRECISION NOT NULL,
			dec DOUBLE PRECISION NOT NULL,
			discovery_datetime TIMESTAMPTZ NOT NULL,
			classification TEXT,
			real_bogus BOOLEAN,
			vetted_by TEXT,
			external_name TEXT,
			reported BOOLEAN NOT NULL DEFAULT FALSE,
			too_name TEXT,
			host_galaxy TEXT,
			distance_mpc DOUBLE PRECISION,
			redshift DOUBLE PRECISION,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createPhotometryTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS photometry (
			id UUID PRIMARY KEY,
			candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			obs_time TIMESTAMPTZ NOT NULL,
			magnitude DOUBLE PRECISION,
			magnitude_error DOUBLE PRECISION,
			mag_limit DOUBLE PRECISION,
			filter_band TEXT NOT NULL DEFAULT '',
			telescope TEXT NOT NULL DEFAULT '',
			instrument TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createAlertsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS alerts (
			id UUID PRIMARY KEY,
			candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			filename TEXT NOT NULL,
			discovery_datetime TIMESTAMPTZ NOT NULL,
			mount TEXT,
			camera TEXT,
			field_id TEXT,
			subimage TEXT,
			score DOUBLE PRECISION,
			ref_cutout TEXT,
			new_cutout TEXT,
			diff_cutout TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createReportSubmissionsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS report_submissions (
			id UUID PRIMARY KEY,
			candidate_id UUID NOT NULL UNIQUE REFERENCES candidates(id) ON DELETE CASCADE,
			status TEXT NOT NULL DEFAULT 'unreported',
			report_id BIGINT,
			feedback JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createDataProductsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS data_products (
			id UUID PRIMARY KEY,
			candidate_id UUID NOT NULL REFERENCES candidates(id) ON DELETE CASCADE,
			type TEXT NOT NULL,
			name TEXT NOT NULL,
			object_key TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT '',
			size_bytes BIGINT NOT NULL DEFAULT 0,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`)
	return err
}

func (r *MigrationRunner) createIndexes(ctx context.Context, db *sqlx.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_candidates_discovery ON candidates(discovery_datetime DESC)`,
		`CREATE INDEX IF NOT EXISTS idx_candidates_radec ON candidates(ra, dec)`,
		`CREATE INDEX IF NOT EXISTS idx_photometry_candidate_time ON photometry(candidate_id, obs_time)`,
		`CREATE INDEX IF NOT EXISTS idx_alerts_candidate ON alerts(candidate_id)`,
		`CREATE INDEX IF NOT EXISTS idx_data_products_candidate ON data_products(candidate_id)`,
	}
	for _, idx := range indexes {
		if _, err := db.ExecContext(ctx, idx); err != nil {
			return err
		}
	}
	return nil
}
