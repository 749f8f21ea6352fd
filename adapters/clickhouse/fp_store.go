package clickhouse

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// FPStoreImpl implements ForcedPhotStore against the telescope pipeline's
// ClickHouse job queue. Requests go into forcedphot_requests; the pipeline
// flips the row's status and writes measurements to forcedphotsub_output.
type FPStoreImpl struct {
	conn     driver.Conn
	database string
}

// NewFPStore opens a native-protocol connection to the job queue
func NewFPStore(cfg config.ForcedPhotConfig) (*FPStoreImpl, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)},
		Auth: clickhouse.Auth{
			Database: cfg.Database,
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to connect to forced-photometry store")
	}
	return &FPStoreImpl{conn: conn, database: cfg.Database}, nil
}

// NewFPStoreWithConn wires an existing connection, for tests
func NewFPStoreWithConn(conn driver.Conn, database string) *FPStoreImpl {
	return &FPStoreImpl{conn: conn, database: database}
}

var _ ports.ForcedPhotStore = (*FPStoreImpl)(nil)

// Submit enqueues the request row
func (s *FPStoreImpl) Submit(ctx context.Context, req *models.ForcedPhotRequest) error {
	query := fmt.Sprintf(`
		INSERT INTO %s.forcedphot_requests
			(request_id, user_id, ra, dec, jd_start, jd_end, fieldid, cropid,
			 mountnum, camnum, n_epoch_max, useexistingref, resub)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, s.database)

	q := req.Query
	err := s.conn.Exec(ctx, query,
		req.RequestID, req.UserID, q.RA, q.Dec, q.JDStart, q.JDEnd,
		q.FieldID, q.Subimage, q.MountNum, q.CameraNum,
		q.MaxResults, q.UseExistingRef, q.Resubmit)
	if err != nil {
		return apperrors.RemoteFailure("forced-photometry store", err)
	}
	return nil
}

// Status reads the request's current state
func (s *FPStoreImpl) Status(ctx context.Context, requestID int64) (models.ForcedPhotStatus, bool, error) {
	query := fmt.Sprintf(`
		SELECT status FROM %s.forcedphot_requests WHERE request_id = ?
	`, s.database)

	rows, err := s.conn.Query(ctx, query, requestID)
	if err != nil {
		return 0, false, apperrors.RemoteFailure("forced-photometry store", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return 0, false, rows.Err()
	}
	var status uint8
	if err := rows.Scan(&status); err != nil {
		return 0, false, apperrors.Wrap(err, "failed to scan request status")
	}
	return models.ForcedPhotStatus(status), true, nil
}

// Results returns the output rows of a completed request
func (s *FPStoreImpl) Results(ctx context.Context, requestID int64) ([]models.ForcedPhotResult, error) {
	query := fmt.Sprintf(`
		SELECT jd, mag_psf, magerr_psf, sn, s, limmag, filter, mountnum, camnum
		FROM %s.forcedphotsub_output
		WHERE request_id = ?
		ORDER BY jd ASC
	`, s.database)

	rows, err := s.conn.Query(ctx, query, requestID)
	if err != nil {
		return nil, apperrors.RemoteFailure("forced-photometry store", err)
	}
	defer rows.Close()

	var results []models.ForcedPhotResult
	for rows.Next() {
		var (
			r                models.ForcedPhotResult
			mountnum, camnum uint8
		)
		if err := rows.Scan(&r.JD, &r.MagPSF, &r.MagErr, &r.SN, &r.Significance,
			&r.LimMag, &r.Filter, &mountnum, &camnum); err != nil {
			return nil, apperrors.Wrap(err, "failed to scan photometry result")
		}
		r.MountNum = int(mountnum)
		r.CamNum = int(camnum)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.RemoteFailure("forced-photometry store", err)
	}
	return results, nil
}

// Close releases the connection
func (s *FPStoreImpl) Close() error {
	return s.conn.Close()
}
