package app

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erezimm/cast/internal/config"
	"github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

type reportFixture struct {
	service    *ReportService
	registry   *fakeRegistry
	reports    *fakeReportRepo
	candidates *fakeCandidateRepo
	photometry *fakePhotometryRepo
	products   *fakeProductRepo
	store      *fakeObjectStore
}

func newReportFixture() *reportFixture {
	f := &reportFixture{
		registry:   &fakeRegistry{reportID: 555},
		reports:    newFakeReportRepo(),
		candidates: newFakeCandidateRepo(),
		photometry: &fakePhotometryRepo{},
		products:   &fakeProductRepo{},
		store:      newFakeObjectStore(),
	}
	cfg := config.RegistryConfig{SettleDelay: time.Millisecond}
	f.service = NewReportService(f.registry, f.reports, f.candidates,
		f.photometry, f.products, f.store, cfg)
	f.service.replyWait = 20 * time.Millisecond
	return f
}

func (f *reportFixture) seedCandidate(t *testing.T) *models.Candidate {
	t.Helper()
	c := &models.Candidate{
		Name:              "LAST J100000.00+200000.00",
		RA:                150.0,
		Dec:               20.0,
		DiscoveryDatetime: time.Date(2025, 6, 15, 3, 24, 18, 0, time.UTC),
	}
	require.NoError(t, f.candidates.Create(context.Background(), c))

	mag, magErr, lim := 18.2, 0.05, 20.5
	det := models.PhotometryPoint{
		CandidateID: c.ID,
		ObsTime:     c.DiscoveryDatetime,
		Magnitude:   &mag, MagnitudeError: &magErr,
		FilterBand: "clear", Telescope: "LAST",
	}
	nondet := models.PhotometryPoint{
		CandidateID: c.ID,
		ObsTime:     c.DiscoveryDatetime.Add(-24 * time.Hour),
		Limit:       &lim,
		FilterBand:  "clear", Telescope: "LAST",
	}
	_, err := f.photometry.InsertIfAbsent(context.Background(), &nondet, time.Second)
	require.NoError(t, err)
	_, err = f.photometry.InsertIfAbsent(context.Background(), &det, time.Second)
	require.NoError(t, err)
	return c
}

func acceptedReply(name string) *ports.RegistryReply {
	feedback, _ := json.Marshal(map[string]interface{}{
		"at_report": []map[string]interface{}{{
			"100": map[string]interface{}{"objname": name},
		}},
	})
	return &ports.RegistryReply{ObjectName: name, Accepted: true, Feedback: feedback}
}

// ===== TEST: Accepted flow =====

func TestSubmit_AcceptedRecordsDesignation(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)
	f.registry.reply = acceptedReply("2025abc")

	submission, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, submission.Status)
	require.NotNil(t, submission.ReportID)
	assert.Equal(t, int64(555), *submission.ReportID)

	updated, err := f.candidates.GetByID(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, updated.Reported)
	require.NotNil(t, updated.ExternalName)
	assert.Equal(t, "2025abc", *updated.ExternalName)

	// The registry saw the discovery detection and the preceding limit.
	require.Len(t, f.registry.reports, 1)
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(f.registry.reports[0].ATReport, &body))
	assert.Contains(t, body, "photometry")
	assert.Contains(t, body, "non_detection")

	// Feedback was archived as a data product.
	products, _ := f.products.ListByCandidate(context.Background(), c.ID)
	require.Len(t, products, 1)
	assert.Equal(t, models.DataProductRegistry, products[0].Type)
}

func TestSubmit_AcceptedIsIdempotent(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)
	f.registry.reply = acceptedReply("2025abc")

	_, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)

	again, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, again.Status)
	assert.Len(t, f.registry.reports, 1, "accepted candidate must not be resubmitted")
}

func TestSubmit_ReportedFlagGuardsWithoutSubmissionRow(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)

	// The candidate is marked reported but its submission row is gone.
	require.NoError(t, f.candidates.SetReported(context.Background(), c.ID, true))
	require.NoError(t, f.candidates.SetExternalName(context.Background(), c.ID, "2025abc"))

	submission, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, submission.Status)
	assert.Empty(t, f.registry.reports, "reported candidate must not be resubmitted")
}

// ===== TEST: Rejection =====

func TestSubmit_RejectionPersistsFeedback(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)
	feedback := json.RawMessage(`{"at_report":[{"660":"bad RA"}]}`)
	f.registry.reply = &ports.RegistryReply{Accepted: false, Feedback: feedback}

	submission, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)
	assert.Equal(t, models.ReportRejected, submission.Status)
	assert.JSONEq(t, string(feedback), string(submission.Feedback))

	updated, _ := f.candidates.GetByID(context.Background(), c.ID)
	assert.False(t, updated.Reported, "rejected candidate stays unreported")
	assert.Nil(t, updated.ExternalName)
}

// ===== TEST: Error state =====

func TestSubmit_TransportFailureIsRecoverable(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)
	f.registry.submitErr = errors.RemoteFailure("naming registry", fmt.Errorf("connect refused"))

	_, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.Error(t, err)

	stored, err := f.reports.GetByCandidate(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReportError, stored.Status)

	// The error state recovers: a later attempt goes through.
	f.registry.submitErr = nil
	f.registry.reply = acceptedReply("2025abc")
	submission, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.NoError(t, err)
	assert.Equal(t, models.ReportAccepted, submission.Status)
}

func TestSubmit_InFlightSubmissionConflicts(t *testing.T) {
	f := newReportFixture()
	c := f.seedCandidate(t)

	existing := &models.ReportSubmission{CandidateID: c.ID, Status: models.ReportSubmitted}
	require.NoError(t, f.reports.Create(context.Background(), existing))

	_, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.Error(t, err)
	assert.Equal(t, errors.CodeStateConflict, errors.GetCode(err))
}

func TestSubmit_NoDetectionsRejectedLocally(t *testing.T) {
	f := newReportFixture()
	c := &models.Candidate{
		Name: "LAST J2", RA: 10, Dec: 10,
		DiscoveryDatetime: time.Now().UTC(),
	}
	require.NoError(t, f.candidates.Create(context.Background(), c))

	_, err := f.service.Submit(context.Background(), c.ID, "A. Reporter")
	require.Error(t, err)
	assert.Equal(t, errors.CodeValidationError, errors.GetCode(err))
	assert.Empty(t, f.registry.reports, "report without detections must not reach the registry")
}
