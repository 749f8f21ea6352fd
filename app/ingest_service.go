package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/erezimm/cast/domain/astro"
	"github.com/erezimm/cast/internal/config"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

const (
	// dedupWindow is the tolerance for treating two photometry
	// measurements as the same observation.
	dedupWindow = 5 * time.Second

	lockStripes = 64
)

// Enricher augments a candidate after ingestion. Failures are logged and
// never abort the ingest.
type Enricher interface {
	Enrich(ctx context.Context, candidate *models.Candidate)
}

// IngestDecision says what an alert did to the catalog.
type IngestDecision string

const (
	DecisionCreated IngestDecision = "created"
	DecisionMerged  IngestDecision = "merged"
)

// IngestResult is the outcome of processing one alert.
type IngestResult struct {
	Decision  IngestDecision    `json:"decision"`
	Candidate *models.Candidate `json:"candidate"`
}

// IngestService matches incoming alerts against the candidate catalog and
// either merges them into an existing candidate or creates a new one.
type IngestService struct {
	candidates  ports.CandidateRepository
	photometry  ports.PhotometryRepository
	alerts      ports.AlertRepository
	products    ports.DataProductRepository
	objectStore ports.ObjectStore
	enricher    Enricher

	dedupRadius    float64 // arcseconds
	maxConcurrency int64

	// locks serialize match-then-write per sky region. Two alerts for
	// the same transient land on the same stripe; the rare cross-stripe
	// race is caught by the unique name constraint.
	locks [lockStripes]sync.Mutex

	log *logrus.Entry
}

// NewIngestService creates the alert ingestion service
func NewIngestService(
	candidates ports.CandidateRepository,
	photometry ports.PhotometryRepository,
	alerts ports.AlertRepository,
	products ports.DataProductRepository,
	objectStore ports.ObjectStore,
	enricher Enricher,
	cfg config.IngestConfig,
) *IngestService {
	maxConc := int64(cfg.MaxConcurrency)
	if maxConc < 1 {
		maxConc = 1
	}
	return &IngestService{
		candidates:     candidates,
		photometry:     photometry,
		alerts:         alerts,
		products:       products,
		objectStore:    objectStore,
		enricher:       enricher,
		dedupRadius:    cfg.DedupRadius,
		maxConcurrency: maxConc,
		log:            logrus.WithField("component", "ingest"),
	}
}

// ProcessAlert validates the payload and merges it into the catalog.
func (s *IngestService) ProcessAlert(ctx context.Context, payload *models.AlertPayload) (*IngestResult, error) {
	v, err := payload.Validate()
	if err != nil {
		return nil, err
	}

	stripe := &s.locks[positionStripe(v.RA, v.Dec)]
	stripe.Lock()
	result, err := s.matchAndWrite(ctx, payload, v)
	stripe.Unlock()
	if err != nil {
		return nil, err
	}

	// Enrichment is best effort: a broken external service must not lose
	// the alert.
	if s.enricher != nil {
		s.enricher.Enrich(ctx, result.Candidate)
	}

	s.log.WithFields(logrus.Fields{
		"candidate": result.Candidate.Name,
		"decision":  result.Decision,
		"file":      payload.SourceFile,
	}).Info("alert processed")
	return result, nil
}

func (s *IngestService) matchAndWrite(ctx context.Context, payload *models.AlertPayload, v models.Validated) (*IngestResult, error) {
	existing, err := s.findExisting(ctx, v.RA, v.Dec)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if err := s.mergeAlert(ctx, existing, payload, v); err != nil {
			return nil, err
		}
		return &IngestResult{Decision: DecisionMerged, Candidate: existing}, nil
	}

	candidate, err := s.createCandidate(ctx, payload, v)
	if err != nil {
		if apperrors.HasCode(err, apperrors.CodeStateConflict) {
			// Another worker created the candidate between our match
			// and our insert; re-match and merge instead.
			existing, lookupErr := s.findExisting(ctx, v.RA, v.Dec)
			if lookupErr != nil {
				return nil, lookupErr
			}
			if existing == nil {
				return nil, err
			}
			if err := s.mergeAlert(ctx, existing, payload, v); err != nil {
				return nil, err
			}
			return &IngestResult{Decision: DecisionMerged, Candidate: existing}, nil
		}
		return nil, err
	}
	return &IngestResult{Decision: DecisionCreated, Candidate: candidate}, nil
}

func (s *IngestService) findExisting(ctx context.Context, ra, dec float64) (*models.Candidate, error) {
	rows, err := s.candidates.Positions(ctx)
	if err != nil {
		return nil, err
	}
	catalog := make([]astro.CatalogPos, len(rows))
	for i, c := range rows {
		catalog[i] = astro.CatalogPos{ID: c.ID, RA: c.RA, Dec: c.Dec}
	}
	match, found := astro.FindNearest(catalog, ra, dec, astro.ArcsecToDeg(s.dedupRadius))
	if !found {
		return nil, nil
	}
	return s.candidates.GetByID(ctx, match.ID)
}

// mergeAlert attaches the alert and its photometry to an existing
// candidate. The candidate's position stays at its first-seen coordinates.
func (s *IngestService) mergeAlert(ctx context.Context, candidate *models.Candidate, payload *models.AlertPayload, v models.Validated) error {
	if err := s.saveAlertRecord(ctx, candidate, payload, v); err != nil {
		return err
	}
	if err := s.savePayloadPhotometry(ctx, candidate, payload, v); err != nil {
		return err
	}
	s.tagToOName(ctx, candidate, payload)
	return s.saveRawAlert(ctx, candidate, payload)
}

// tagToOName records the target-of-opportunity tag when the triggering
// observation was not a scheduled survey image. Best effort.
func (s *IngestService) tagToOName(ctx context.Context, candidate *models.Candidate, payload *models.AlertPayload) {
	if payload.ObsReport == nil || candidate.ToOName != nil {
		return
	}
	name, ok := payload.ObsReport.ToOName()
	if !ok {
		return
	}
	if err := s.candidates.SetToOName(ctx, candidate.ID, name); err != nil {
		s.log.WithError(err).WithField("candidate", candidate.Name).Warn("failed to record ToO name")
		return
	}
	candidate.ToOName = &name
}

func (s *IngestService) createCandidate(ctx context.Context, payload *models.AlertPayload, v models.Validated) (*models.Candidate, error) {
	candidate := &models.Candidate{
		Name:              astro.Name(v.RA, v.Dec),
		RA:                v.RA,
		Dec:               v.Dec,
		DiscoveryDatetime: v.DiscoveryDatetime,
	}
	if err := s.candidates.Create(ctx, candidate); err != nil {
		return nil, err
	}
	if err := s.mergeAlert(ctx, candidate, payload, v); err != nil {
		return nil, err
	}
	return candidate, nil
}

func (s *IngestService) saveAlertRecord(ctx context.Context, candidate *models.Candidate, payload *models.AlertPayload, v models.Validated) error {
	record := &models.AlertRecord{
		CandidateID:       candidate.ID,
		Filename:          payload.SourceFile,
		DiscoveryDatetime: v.DiscoveryDatetime,
	}
	if obs := payload.ObsReport; obs != nil {
		record.Mount = obs.Mount.Ptr()
		record.Camera = obs.Camera.Ptr()
		record.FieldID = obs.FieldID.Ptr()
		record.Subimage = obs.Subimage.Ptr()
		record.Score = obs.Score
		record.RefCutout = strPtr(obs.RefCutout)
		record.NewCutout = strPtr(obs.NewCutout)
		record.DiffCutout = strPtr(obs.DiffCutout)
	}
	return s.alerts.Create(ctx, record)
}

// savePayloadPhotometry imports every measurement the alert carries,
// skipping any the candidate already has.
func (s *IngestService) savePayloadPhotometry(ctx context.Context, candidate *models.Candidate, payload *models.AlertPayload, v models.Validated) error {
	var points []models.PhotometryPoint

	if nd := payload.ATReport.NonDetection; nd != nil && nd.Flux != nil && len(nd.ObsDate) > 0 {
		at, err := models.ParseObsTime(nd.ObsDate[0])
		if err == nil {
			points = append(points, models.PhotometryPoint{
				CandidateID: candidate.ID,
				ObsTime:     at,
				Limit:       nd.Flux,
				FilterBand:  defaultFilter(nd.FilterName),
				Telescope:   "LAST",
				Instrument:  "LAST-Cam",
			})
		}
	}

	if group, ok := payload.DiscoveryDetection(); ok && group.Flux != nil {
		at := v.DiscoveryDatetime
		if len(group.ObsDate) > 0 {
			if parsed, err := models.ParseObsTime(group.ObsDate[0]); err == nil {
				at = parsed
			}
		}
		points = append(points, models.PhotometryPoint{
			CandidateID:    candidate.ID,
			ObsTime:        at,
			Magnitude:      group.Flux,
			MagnitudeError: group.FluxError,
			FilterBand:     defaultFilter(group.FilterName),
			Telescope:      "LAST",
			Instrument:     "LAST-Cam",
		})
	}

	if obs := payload.ObsReport; obs != nil {
		for _, m := range obs.Photometry {
			p := models.PhotometryPoint{
				CandidateID:    candidate.ID,
				ObsTime:        astro.FromJD(m.JD),
				Magnitude:      m.Mag,
				MagnitudeError: m.MagErr,
				Limit:          m.LimMag,
				FilterBand:     defaultFilter(m.Filter),
				Telescope:      "LAST",
				Instrument:     "LAST-Cam",
			}
			if p.Magnitude == nil && p.Limit == nil {
				continue
			}
			points = append(points, p)
		}
	}

	for i := range points {
		if _, err := s.photometry.InsertIfAbsent(ctx, &points[i], dedupWindow); err != nil {
			return err
		}
	}
	return nil
}

// saveRawAlert archives the alert file itself as a data product.
func (s *IngestService) saveRawAlert(ctx context.Context, candidate *models.Candidate, payload *models.AlertPayload) error {
	if s.objectStore == nil || payload.SourceFile == "" {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return apperrors.Wrap(err, "failed to re-encode alert payload")
	}
	key := fmt.Sprintf("alerts/%s/%s", candidate.ID, payload.SourceFile)
	if err := s.objectStore.Put(ctx, key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		return err
	}
	return s.products.Create(ctx, &models.DataProduct{
		CandidateID: candidate.ID,
		Type:        models.DataProductAlertJSON,
		Name:        payload.SourceFile,
		ObjectKey:   key,
		ContentType: "application/json",
		SizeBytes:   int64(len(raw)),
	})
}

// IngestSummary aggregates a batch run.
type IngestSummary struct {
	Processed int `json:"processed"`
	Created   int `json:"created"`
	Merged    int `json:"merged"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// ProcessDirectory ingests every JSON alert file under dir, bounded by the
// configured concurrency. Files already ingested, or older than cutoffDays
// when it is positive, are skipped. File failures are counted, not fatal.
func (s *IngestService) ProcessDirectory(ctx context.Context, dir string, cutoffDays float64) (IngestSummary, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return IngestSummary{}, apperrors.Wrap(err, "failed to read alert directory")
	}

	var cutoff time.Time
	if cutoffDays > 0 {
		cutoff = time.Now().Add(-time.Duration(cutoffDays * 24 * float64(time.Hour)))
	}

	var (
		mu      sync.Mutex
		summary IngestSummary
		wg      sync.WaitGroup
	)
	sem := semaphore.NewWeighted(s.maxConcurrency)

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		if !cutoff.IsZero() {
			info, err := entry.Info()
			if err == nil && info.ModTime().Before(cutoff) {
				mu.Lock()
				summary.Skipped++
				mu.Unlock()
				continue
			}
		}
		seen, err := s.alerts.ExistsByFilename(ctx, entry.Name())
		if err != nil {
			wg.Wait()
			return summary, err
		}
		if seen {
			mu.Lock()
			summary.Skipped++
			mu.Unlock()
			continue
		}
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return summary, err
		}
		wg.Add(1)
		go func(name string) {
			defer sem.Release(1)
			defer wg.Done()

			result, err := s.processFile(ctx, filepath.Join(dir, name))

			mu.Lock()
			defer mu.Unlock()
			summary.Processed++
			switch {
			case err != nil:
				summary.Failed++
				s.log.WithError(err).WithField("file", name).Error("alert ingest failed")
			case result.Decision == DecisionCreated:
				summary.Created++
			default:
				summary.Merged++
			}
		}(entry.Name())
	}

	wg.Wait()
	return summary, nil
}

func (s *IngestService) processFile(ctx context.Context, path string) (*IngestResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to read alert file")
	}
	var payload models.AlertPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, apperrors.WithCode(apperrors.CodeValidationError,
			apperrors.Wrap(err, "failed to decode alert file"))
	}
	payload.SourceFile = filepath.Base(path)
	return s.ProcessAlert(ctx, &payload)
}

// positionStripe buckets a position so nearby alerts serialize on the same
// lock.
func positionStripe(ra, dec float64) int {
	cell := int(math.Floor(ra)) + 360*int(math.Floor(dec)+90)
	cell %= lockStripes
	if cell < 0 {
		cell += lockStripes
	}
	return cell
}

func defaultFilter(name string) string {
	if name == "" {
		return "clear"
	}
	return name
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
