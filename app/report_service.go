package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/domain/lightcurve"
	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// ReportService drives a candidate's submission to the external naming
// registry: unreported candidates are submitted, the registry's verdict
// moves them to accepted or rejected, and transport failures leave them in
// a recoverable error state.
type ReportService struct {
	registry    ports.NamingRegistry
	reports     ports.ReportRepository
	candidates  ports.CandidateRepository
	photometry  ports.PhotometryRepository
	products    ports.DataProductRepository
	objectStore ports.ObjectStore

	settleDelay time.Duration
	replyWait   time.Duration

	log *logrus.Entry
}

// NewReportService creates the registry reporting service
func NewReportService(
	registry ports.NamingRegistry,
	reports ports.ReportRepository,
	candidates ports.CandidateRepository,
	photometry ports.PhotometryRepository,
	products ports.DataProductRepository,
	objectStore ports.ObjectStore,
	cfg config.RegistryConfig,
) *ReportService {
	return &ReportService{
		registry:    registry,
		reports:     reports,
		candidates:  candidates,
		photometry:  photometry,
		products:    products,
		objectStore: objectStore,
		settleDelay: cfg.SettleDelay,
		replyWait:   30 * time.Second,
		log:         logrus.WithField("component", "report"),
	}
}

// Submit reports the candidate to the registry and resolves the outcome.
// Submitting an already accepted candidate is a no-op; a submission still
// in flight is a state conflict.
func (s *ReportService) Submit(ctx context.Context, candidateID uuid.UUID, reporter string) (*models.ReportSubmission, error) {
	if s.registry == nil {
		return nil, apperrors.ConfigInvalid("naming registry is not configured")
	}
	candidate, err := s.candidates.GetByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.Reported {
		// Already accepted. The submission row, if any, carries the
		// feedback; either way nothing is sent to the registry.
		submission, err := s.reports.GetByCandidate(ctx, candidateID)
		if apperrors.HasCode(err, apperrors.CodeNotFound) {
			return &models.ReportSubmission{
				CandidateID: candidateID,
				Status:      models.ReportAccepted,
			}, nil
		}
		return submission, err
	}

	submission, err := s.getOrCreateSubmission(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	switch submission.Status {
	case models.ReportAccepted:
		return submission, nil
	case models.ReportSubmitted:
		return nil, apperrors.StateConflict(
			fmt.Sprintf("candidate %s already has a report in flight", candidate.Name))
	case models.ReportRejected:
		return nil, apperrors.StateConflict(
			fmt.Sprintf("candidate %s was rejected; fix the report before resubmitting", candidate.Name))
	}

	report, err := s.buildReport(ctx, candidate, reporter)
	if err != nil {
		return nil, err
	}

	reportID, err := s.registry.SubmitReport(ctx, report)
	if err != nil {
		s.markError(ctx, submission)
		return nil, err
	}
	if err := s.reports.UpdateStatus(ctx, submission.ID, models.ReportSubmitted, &reportID); err != nil {
		return nil, err
	}
	submission.Status = models.ReportSubmitted
	submission.ReportID = &reportID

	reply, err := s.awaitReply(ctx, reportID)
	if err != nil {
		s.markError(ctx, submission)
		return nil, err
	}

	if err := s.resolve(ctx, candidate, submission, reply); err != nil {
		return nil, err
	}
	return submission, nil
}

func (s *ReportService) getOrCreateSubmission(ctx context.Context, candidateID uuid.UUID) (*models.ReportSubmission, error) {
	submission, err := s.reports.GetByCandidate(ctx, candidateID)
	if err == nil {
		return submission, nil
	}
	if !apperrors.HasCode(err, apperrors.CodeNotFound) {
		return nil, err
	}
	submission = &models.ReportSubmission{
		CandidateID: candidateID,
		Status:      models.ReportUnreported,
	}
	if err := s.reports.Create(ctx, submission); err != nil {
		return nil, err
	}
	return submission, nil
}

// awaitReply gives the registry time to process the report, then polls for
// the verdict until it is available or the wait budget runs out.
func (s *ReportService) awaitReply(ctx context.Context, reportID int64) (*ports.RegistryReply, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.settleDelay):
	}

	deadline := time.Now().Add(s.replyWait)
	for {
		reply, err := s.registry.FetchReply(ctx, reportID)
		if err == nil {
			return reply, nil
		}
		if !apperrors.HasCode(err, apperrors.CodeTimeout) || time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.settleDelay):
		}
	}
}

// resolve applies the registry's verdict: the terminal status and the raw
// feedback are persisted together, then the candidate record is updated.
func (s *ReportService) resolve(ctx context.Context, candidate *models.Candidate, submission *models.ReportSubmission, reply *ports.RegistryReply) error {
	if !reply.Accepted {
		if err := s.reports.RecordOutcome(ctx, submission.ID, models.ReportRejected, reply.Feedback); err != nil {
			return err
		}
		submission.Status = models.ReportRejected
		submission.Feedback = reply.Feedback
		s.saveFeedback(ctx, candidate, submission, "failed_report")
		s.log.WithField("candidate", candidate.Name).Warn("report rejected by registry")
		return nil
	}

	if err := s.reports.RecordOutcome(ctx, submission.ID, models.ReportAccepted, reply.Feedback); err != nil {
		return err
	}
	submission.Status = models.ReportAccepted
	submission.Feedback = reply.Feedback

	if reply.ObjectName != "" {
		if err := s.candidates.SetExternalName(ctx, candidate.ID, reply.ObjectName); err != nil {
			return err
		}
		name := reply.ObjectName
		candidate.ExternalName = &name
	}
	if err := s.candidates.SetReported(ctx, candidate.ID, true); err != nil {
		return err
	}
	candidate.Reported = true

	s.saveFeedback(ctx, candidate, submission, "report")
	s.log.WithFields(logrus.Fields{
		"candidate":   candidate.Name,
		"designation": reply.ObjectName,
	}).Info("report accepted by registry")
	return nil
}

// markError moves the submission to the recoverable error state. The
// original failure is what the caller reports, so this one is only logged.
func (s *ReportService) markError(ctx context.Context, submission *models.ReportSubmission) {
	if err := s.reports.UpdateStatus(ctx, submission.ID, models.ReportError, nil); err != nil {
		s.log.WithError(err).Error("failed to mark submission errored")
		return
	}
	submission.Status = models.ReportError
}

// saveFeedback archives the registry's raw feedback as a data product.
// Best effort: the verdict is already persisted on the submission row.
func (s *ReportService) saveFeedback(ctx context.Context, candidate *models.Candidate, submission *models.ReportSubmission, prefix string) {
	if s.objectStore == nil || len(submission.Feedback) == 0 || submission.ReportID == nil {
		return
	}
	name := fmt.Sprintf("%s_%d.json", prefix, *submission.ReportID)
	key := fmt.Sprintf("reports/%s/%s", candidate.ID, name)
	data := []byte(submission.Feedback)
	if err := s.objectStore.Put(ctx, key, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
		s.log.WithError(err).Warn("failed to archive registry feedback")
		return
	}
	if err := s.products.Create(ctx, &models.DataProduct{
		CandidateID: candidate.ID,
		Type:        models.DataProductRegistry,
		Name:        name,
		ObjectKey:   key,
		ContentType: "application/json",
		SizeBytes:   int64(len(data)),
	}); err != nil {
		s.log.WithError(err).Warn("failed to record feedback data product")
	}
}

// reportBody mirrors the registry's at_report schema.
type reportBody struct {
	RA                valueString `json:"RA"`
	Dec               valueString `json:"Dec"`
	Reporter          string      `json:"reporter"`
	DiscoveryDatetime string      `json:"discovery_datetime"`
	NonDetection      *obsEntry   `json:"non_detection,omitempty"`
	Photometry        *photoEntry `json:"photometry,omitempty"`
}

type valueString struct {
	Value string `json:"value"`
}

type obsEntry struct {
	ObsDate      string   `json:"obsdate"`
	LimitingFlux *float64 `json:"limiting_flux,omitempty"`
	FilterValue  string   `json:"filter_value"`
}

type photoEntry struct {
	Group struct {
		ObsDate     string   `json:"obsdate"`
		Flux        *float64 `json:"flux,omitempty"`
		FluxError   *float64 `json:"flux_error,omitempty"`
		FilterValue string   `json:"filter_value"`
	} `json:"photometry_group"`
}

const registryTimeLayout = "2006-01-02 15:04:05"

// buildReport assembles the at_report block from the candidate's stored
// photometry: the discovery detection plus the last preceding limit.
func (s *ReportService) buildReport(ctx context.Context, candidate *models.Candidate, reporter string) (*ports.RegistryReport, error) {
	rows, err := s.photometry.ListByCandidate(ctx, candidate.ID)
	if err != nil {
		return nil, err
	}
	summary := lightcurve.Summarize(models.ToLightcurvePoints(rows))
	if summary.FirstDetection == nil {
		return nil, apperrors.ValidationError(
			fmt.Sprintf("candidate %s has no detections to report", candidate.Name))
	}

	body := reportBody{
		RA:                valueString{Value: fmt.Sprintf("%f", candidate.RA)},
		Dec:               valueString{Value: fmt.Sprintf("%f", candidate.Dec)},
		Reporter:          reporter,
		DiscoveryDatetime: candidate.DiscoveryDatetime.UTC().Format(registryTimeLayout),
	}

	first := summary.FirstDetection
	var photo photoEntry
	photo.Group.ObsDate = first.ObsTime.UTC().Format(registryTimeLayout)
	photo.Group.Flux = first.Magnitude
	photo.Group.FluxError = first.MagnitudeError
	photo.Group.FilterValue = first.FilterBand
	body.Photometry = &photo

	if nd := summary.LastNonDetection; nd != nil {
		body.NonDetection = &obsEntry{
			ObsDate:      nd.ObsTime.UTC().Format(registryTimeLayout),
			LimitingFlux: nd.Limit,
			FilterValue:  nd.FilterBand,
		}
	}

	raw, err := json.Marshal(body)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to encode registry report")
	}
	return &ports.RegistryReport{ATReport: raw}, nil
}
