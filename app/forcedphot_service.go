package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/domain/astro"
	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// requestEpoch anchors request ids: a request id is the number of
// milliseconds between this instant and submission time.
var requestEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// FPOutcome is the split result of a completed forced-photometry job.
type FPOutcome struct {
	RequestID     int64                     `json:"request_id"`
	Detections    []models.ForcedPhotResult `json:"detections"`
	NonDetections []models.ForcedPhotResult `json:"non_detections"`
}

// ForcedPhotService submits jobs to the telescope pipeline's queue and
// polls them to completion.
type ForcedPhotService struct {
	store      ports.ForcedPhotStore
	photometry ports.PhotometryRepository

	userID       int
	maxResults   int
	pollInterval time.Duration
	timeout      time.Duration

	// lastID guards against two requests in the same millisecond, which
	// would collide on the queue's poll key.
	mu     sync.Mutex
	lastID int64

	now func() time.Time

	log *logrus.Entry
}

// NewForcedPhotService creates the forced-photometry service
func NewForcedPhotService(store ports.ForcedPhotStore, photometry ports.PhotometryRepository, cfg config.ForcedPhotConfig) *ForcedPhotService {
	return &ForcedPhotService{
		store:        store,
		photometry:   photometry,
		userID:       cfg.UserID,
		maxResults:   cfg.MaxResults,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		now:          time.Now,
		log:          logrus.WithField("component", "forcedphot"),
	}
}

// nextRequestID returns a strictly increasing millisecond-resolution id.
func (s *ForcedPhotService) nextRequestID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().Sub(requestEpoch).Milliseconds()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

// Fetch submits the query and blocks until the pipeline completes it, the
// configured timeout passes, or ctx is canceled. On timeout the error
// names the request id so results can be retrieved manually later.
func (s *ForcedPhotService) Fetch(ctx context.Context, query models.ForcedPhotQuery) (*FPOutcome, error) {
	if s.store == nil {
		return nil, apperrors.ConfigInvalid("forced-photometry store is not configured")
	}
	if query.MaxResults <= 0 {
		query.MaxResults = s.maxResults
	}

	req := &models.ForcedPhotRequest{
		RequestID:   s.nextRequestID(),
		UserID:      s.userID,
		Query:       query,
		SubmittedAt: s.now(),
	}
	if err := s.store.Submit(ctx, req); err != nil {
		return nil, err
	}
	s.log.WithFields(logrus.Fields{
		"request_id": req.RequestID,
		"ra":         query.RA,
		"dec":        query.Dec,
	}).Info("forced-photometry request submitted")

	deadline := s.now().Add(s.timeout)
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, found, err := s.store.Status(ctx, req.RequestID)
		if err != nil {
			return nil, err
		}
		if found {
			switch status {
			case models.ForcedPhotComplete:
				return s.collect(ctx, req.RequestID)
			case models.ForcedPhotFailed:
				return nil, apperrors.RemoteFailure("forced-photometry pipeline",
					fmt.Errorf("request %d failed remotely", req.RequestID))
			case models.ForcedPhotPending:
				s.log.WithField("request_id", req.RequestID).Debug("request still pending")
			}
		}

		if s.now().After(deadline) {
			return nil, apperrors.Timeout(fmt.Sprintf(
				"forced photometry timed out; try again later (request id %d)", req.RequestID))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *ForcedPhotService) collect(ctx context.Context, requestID int64) (*FPOutcome, error) {
	results, err := s.store.Results(ctx, requestID)
	if err != nil {
		return nil, err
	}
	// A completed job can legitimately find nothing in the search window.
	outcome := &FPOutcome{RequestID: requestID}
	for _, r := range results {
		if r.IsDetection() {
			outcome.Detections = append(outcome.Detections, r)
		} else {
			outcome.NonDetections = append(outcome.NonDetections, r)
		}
	}
	return outcome, nil
}

// ImportForCandidate runs a job over the lookback window around the
// candidate's position and merges the measurements into its photometry.
// It returns how many new points were stored.
func (s *ForcedPhotService) ImportForCandidate(ctx context.Context, candidate *models.Candidate, lookbackDays float64) (int, error) {
	jdEnd := astro.JD(s.now())
	outcome, err := s.Fetch(ctx, models.ForcedPhotQuery{
		RA:             candidate.RA,
		Dec:            candidate.Dec,
		JDStart:        jdEnd - lookbackDays,
		JDEnd:          jdEnd,
		UseExistingRef: true,
	})
	if err != nil {
		return 0, err
	}

	added := 0
	for _, r := range outcome.Detections {
		p := detectionPoint(candidate.ID, r)
		inserted, err := s.photometry.InsertIfAbsent(ctx, &p, dedupWindow)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}
	for _, r := range outcome.NonDetections {
		if r.LimMag == nil {
			continue
		}
		p := models.PhotometryPoint{
			CandidateID: candidate.ID,
			ObsTime:     astro.FromJD(r.JD),
			Limit:       r.LimMag,
			FilterBand:  defaultFilter(r.Filter),
			Telescope:   "LAST",
			Instrument:  instrumentName(r),
		}
		inserted, err := s.photometry.InsertIfAbsent(ctx, &p, dedupWindow)
		if err != nil {
			return added, err
		}
		if inserted {
			added++
		}
	}

	s.log.WithFields(logrus.Fields{
		"candidate": candidate.Name,
		"added":     added,
	}).Info("forced photometry imported")
	return added, nil
}

func detectionPoint(candidateID uuid.UUID, r models.ForcedPhotResult) models.PhotometryPoint {
	magErr := r.MagErr
	if magErr == nil && r.SN != nil && *r.SN > 0 {
		// Approximate the magnitude error from the signal-to-noise
		// ratio: 2.5/ln(10) / SN.
		v := 1.0857 / *r.SN
		magErr = &v
	}
	return models.PhotometryPoint{
		CandidateID:    candidateID,
		ObsTime:        astro.FromJD(r.JD),
		Magnitude:      r.MagPSF,
		MagnitudeError: magErr,
		FilterBand:     defaultFilter(r.Filter),
		Telescope:      "LAST",
		Instrument:     instrumentName(r),
	}
}

func instrumentName(r models.ForcedPhotResult) string {
	if r.MountNum == 0 && r.CamNum == 0 {
		return "LAST-Cam"
	}
	return fmt.Sprintf("LAST.%02d.%02d", r.MountNum, r.CamNum)
}
