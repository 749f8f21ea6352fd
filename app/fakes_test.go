package app

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// In-memory fakes for the repository and external-service ports.

func newTestID() uuid.UUID { return uuid.New() }

type fakeCandidateRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.Candidate
}

func newFakeCandidateRepo() *fakeCandidateRepo {
	return &fakeCandidateRepo{items: make(map[uuid.UUID]*models.Candidate)}
}

func (r *fakeCandidateRepo) Create(_ context.Context, c *models.Candidate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.Name == c.Name {
			return apperrors.StateConflict("candidate name already exists: " + c.Name)
		}
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	clone := *c
	r.items[c.ID] = &clone
	return nil
}

func (r *fakeCandidateRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return nil, apperrors.NotFound("candidate")
	}
	clone := *c
	return &clone, nil
}

func (r *fakeCandidateRepo) GetByName(_ context.Context, name string) (*models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.items {
		if c.Name == name {
			clone := *c
			return &clone, nil
		}
	}
	return nil, apperrors.NotFound("candidate")
}

func (r *fakeCandidateRepo) List(_ context.Context, filter ports.CandidateFilter) ([]models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Candidate
	for _, c := range r.items {
		if filter.Reported != nil && c.Reported != *filter.Reported {
			continue
		}
		if filter.Classification != nil &&
			(c.Classification == nil || *c.Classification != *filter.Classification) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DiscoveryDatetime.After(out[j].DiscoveryDatetime)
	})
	return out, nil
}

func (r *fakeCandidateRepo) Positions(_ context.Context) ([]models.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Candidate, 0, len(r.items))
	for _, c := range r.items {
		out = append(out, *c)
	}
	return out, nil
}

func (r *fakeCandidateRepo) update(id uuid.UUID, fn func(*models.Candidate)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("candidate")
	}
	fn(c)
	return nil
}

func (r *fakeCandidateRepo) UpdateClassification(_ context.Context, id uuid.UUID, class models.Classification, vettedBy string, realBogus bool) error {
	return r.update(id, func(c *models.Candidate) {
		c.Classification = &class
		c.VettedBy = &vettedBy
		c.RealBogus = &realBogus
	})
}

func (r *fakeCandidateRepo) UpdateHostGalaxy(_ context.Context, id uuid.UUID, galaxy string, distanceMpc, redshift *float64) error {
	return r.update(id, func(c *models.Candidate) {
		c.HostGalaxy = &galaxy
		c.DistanceMpc = distanceMpc
		c.Redshift = redshift
	})
}

func (r *fakeCandidateRepo) SetExternalName(_ context.Context, id uuid.UUID, name string) error {
	return r.update(id, func(c *models.Candidate) { c.ExternalName = &name })
}

func (r *fakeCandidateRepo) SetReported(_ context.Context, id uuid.UUID, reported bool) error {
	return r.update(id, func(c *models.Candidate) { c.Reported = reported })
}

func (r *fakeCandidateRepo) SetToOName(_ context.Context, id uuid.UUID, name string) error {
	return r.update(id, func(c *models.Candidate) { c.ToOName = &name })
}

func (r *fakeCandidateRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return apperrors.NotFound("candidate")
	}
	delete(r.items, id)
	return nil
}

type fakePhotometryRepo struct {
	mu     sync.Mutex
	points []models.PhotometryPoint
}

func (r *fakePhotometryRepo) InsertIfAbsent(_ context.Context, p *models.PhotometryPoint, window time.Duration) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.points {
		if existing.CandidateID != p.CandidateID {
			continue
		}
		dt := existing.ObsTime.Sub(p.ObsTime)
		if dt < 0 {
			dt = -dt
		}
		if dt <= window &&
			existing.FilterBand == p.FilterBand &&
			floatPtrEqual(existing.Magnitude, p.Magnitude) &&
			floatPtrEqual(existing.MagnitudeError, p.MagnitudeError) {
			return false, nil
		}
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	r.points = append(r.points, *p)
	return true, nil
}

func (r *fakePhotometryRepo) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]models.PhotometryPoint, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PhotometryPoint
	for _, p := range r.points {
		if p.CandidateID == candidateID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ObsTime.Before(out[j].ObsTime) })
	return out, nil
}

func (r *fakePhotometryRepo) DeleteByCandidate(_ context.Context, candidateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.points[:0]
	for _, p := range r.points {
		if p.CandidateID != candidateID {
			kept = append(kept, p)
		}
	}
	r.points = kept
	return nil
}

func floatPtrEqual(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

type fakeAlertRepo struct {
	mu      sync.Mutex
	records []models.AlertRecord
}

func (r *fakeAlertRepo) Create(_ context.Context, a *models.AlertRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	r.records = append(r.records, *a)
	return nil
}

func (r *fakeAlertRepo) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]models.AlertRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.AlertRecord
	for _, a := range r.records {
		if a.CandidateID == candidateID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeAlertRepo) ExistsByFilename(_ context.Context, filename string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.records {
		if a.Filename == filename {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeAlertRepo) DeleteByCandidate(_ context.Context, candidateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.records[:0]
	for _, a := range r.records {
		if a.CandidateID != candidateID {
			kept = append(kept, a)
		}
	}
	r.records = kept
	return nil
}

type fakeProductRepo struct {
	mu       sync.Mutex
	products []models.DataProduct
}

func (r *fakeProductRepo) Create(_ context.Context, d *models.DataProduct) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.products = append(r.products, *d)
	return nil
}

func (r *fakeProductRepo) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]models.DataProduct, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.DataProduct
	for _, d := range r.products {
		if d.CandidateID == candidateID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (r *fakeProductRepo) DeleteByCandidate(_ context.Context, candidateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := r.products[:0]
	for _, d := range r.products {
		if d.CandidateID != candidateID {
			kept = append(kept, d)
		}
	}
	r.products = kept
	return nil
}

type fakeReportRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*models.ReportSubmission
}

func newFakeReportRepo() *fakeReportRepo {
	return &fakeReportRepo{items: make(map[uuid.UUID]*models.ReportSubmission)}
}

func (r *fakeReportRepo) Create(_ context.Context, rep *models.ReportSubmission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rep.ID == uuid.Nil {
		rep.ID = uuid.New()
	}
	clone := *rep
	r.items[rep.ID] = &clone
	return nil
}

func (r *fakeReportRepo) GetByCandidate(_ context.Context, candidateID uuid.UUID) (*models.ReportSubmission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rep := range r.items {
		if rep.CandidateID == candidateID {
			clone := *rep
			return &clone, nil
		}
	}
	return nil, apperrors.NotFound("report submission")
}

func (r *fakeReportRepo) UpdateStatus(_ context.Context, id uuid.UUID, status models.ReportStatus, reportID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("report submission")
	}
	rep.Status = status
	if reportID != nil {
		rep.ReportID = reportID
	}
	return nil
}

func (r *fakeReportRepo) RecordOutcome(_ context.Context, id uuid.UUID, status models.ReportStatus, feedback json.RawMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rep, ok := r.items[id]
	if !ok {
		return apperrors.NotFound("report submission")
	}
	rep.Status = status
	rep.Feedback = feedback
	return nil
}

func (r *fakeReportRepo) DeleteByCandidate(_ context.Context, candidateID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rep := range r.items {
		if rep.CandidateID == candidateID {
			delete(r.items, id)
		}
	}
	return nil
}

type fakeObjectStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeObjectStore() *fakeObjectStore {
	return &fakeObjectStore{blobs: make(map[string][]byte)}
}

func (s *fakeObjectStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[key] = data
	return nil
}

func (s *fakeObjectStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, apperrors.NotFound("object")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *fakeObjectStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, key)
	return nil
}

// fakeFPStore scripts the job queue: statuses are returned in order, then
// the last one repeats.
type fakeFPStore struct {
	mu        sync.Mutex
	submitted []models.ForcedPhotRequest
	statuses  []models.ForcedPhotStatus
	results   []models.ForcedPhotResult
	calls     int
}

func (s *fakeFPStore) Submit(_ context.Context, req *models.ForcedPhotRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.submitted = append(s.submitted, *req)
	return nil
}

func (s *fakeFPStore) Status(_ context.Context, _ int64) (models.ForcedPhotStatus, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.statuses) == 0 {
		return 0, false, nil
	}
	i := s.calls
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	s.calls++
	return s.statuses[i], true, nil
}

func (s *fakeFPStore) Results(_ context.Context, _ int64) ([]models.ForcedPhotResult, error) {
	return s.results, nil
}

// fakeRegistry scripts the naming registry.
type fakeRegistry struct {
	mu           sync.Mutex
	reports      []ports.RegistryReport
	reportID     int64
	submitErr    error
	reply        *ports.RegistryReply
	replyErr     error
	searchResult []string
}

func (r *fakeRegistry) SubmitReport(_ context.Context, report *ports.RegistryReport) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.submitErr != nil {
		return 0, r.submitErr
	}
	r.reports = append(r.reports, *report)
	return r.reportID, nil
}

func (r *fakeRegistry) FetchReply(_ context.Context, _ int64) (*ports.RegistryReply, error) {
	if r.replyErr != nil {
		return nil, r.replyErr
	}
	return r.reply, nil
}

func (r *fakeRegistry) ConeSearch(_ context.Context, _, _, _ float64) ([]string, error) {
	return r.searchResult, nil
}
