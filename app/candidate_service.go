package app

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/adapters/excel"
	"github.com/erezimm/cast/domain/lightcurve"
	apperrors "github.com/erezimm/cast/internal/errors"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// CandidateDetail is a candidate together with its derived lightcurve
// views.
type CandidateDetail struct {
	Candidate  models.Candidate          `json:"candidate"`
	Photometry []models.PhotometryPoint  `json:"photometry"`
	Binned     []lightcurve.BinnedSeries `json:"binned"`
	Summary    lightcurve.Summary        `json:"summary"`
	Alerts     []models.AlertRecord      `json:"alerts"`
	Products   []models.DataProduct      `json:"data_products"`
}

// CandidateService serves catalog reads, vetting updates, and deletion.
type CandidateService struct {
	candidates  ports.CandidateRepository
	photometry  ports.PhotometryRepository
	alerts      ports.AlertRepository
	reports     ports.ReportRepository
	products    ports.DataProductRepository
	objectStore ports.ObjectStore

	exporter *excel.LightcurveWriter

	log *logrus.Entry
}

// NewCandidateService creates the candidate catalog service
func NewCandidateService(
	candidates ports.CandidateRepository,
	photometry ports.PhotometryRepository,
	alerts ports.AlertRepository,
	reports ports.ReportRepository,
	products ports.DataProductRepository,
	objectStore ports.ObjectStore,
) *CandidateService {
	return &CandidateService{
		candidates:  candidates,
		photometry:  photometry,
		alerts:      alerts,
		reports:     reports,
		products:    products,
		objectStore: objectStore,
		exporter:    excel.NewLightcurveWriter(),
		log:         logrus.WithField("component", "candidates"),
	}
}

// List returns candidates matching the filter
func (s *CandidateService) List(ctx context.Context, filter ports.CandidateFilter) ([]models.Candidate, error) {
	return s.candidates.List(ctx, filter)
}

// Get assembles the candidate's full detail view: raw photometry, the
// display binning, lightcurve milestones, alerts and artifacts.
func (s *CandidateService) Get(ctx context.Context, id uuid.UUID) (*CandidateDetail, error) {
	candidate, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rows, err := s.photometry.ListByCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	alerts, err := s.alerts.ListByCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	products, err := s.products.ListByCandidate(ctx, id)
	if err != nil {
		return nil, err
	}

	points := models.ToLightcurvePoints(rows)
	return &CandidateDetail{
		Candidate:  *candidate,
		Photometry: rows,
		Binned:     lightcurve.BinBySeries(points, lightcurve.DefaultMaxGapDays),
		Summary:    lightcurve.Summarize(points),
		Alerts:     alerts,
		Products:   products,
	}, nil
}

// LightcurveView is the display form of a candidate's photometry.
type LightcurveView struct {
	Binned  []lightcurve.BinnedSeries `json:"binned"`
	Summary lightcurve.Summary        `json:"summary"`
}

// Lightcurve returns the candidate's binned display lightcurve.
func (s *CandidateService) Lightcurve(ctx context.Context, id uuid.UUID) (*LightcurveView, error) {
	if _, err := s.candidates.GetByID(ctx, id); err != nil {
		return nil, err
	}
	rows, err := s.photometry.ListByCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	points := models.ToLightcurvePoints(rows)
	return &LightcurveView{
		Binned:  lightcurve.BinBySeries(points, lightcurve.DefaultMaxGapDays),
		Summary: lightcurve.Summarize(points),
	}, nil
}

// Classify records an operator's vetting decision
func (s *CandidateService) Classify(ctx context.Context, id uuid.UUID, class models.Classification, vettedBy string) error {
	if !class.Valid() {
		return apperrors.InvalidInput("unknown classification: " + string(class))
	}
	realBogus := class != models.ClassificationBogus
	if err := s.candidates.UpdateClassification(ctx, id, class, vettedBy, realBogus); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{
		"candidate":      id,
		"classification": class,
		"vetted_by":      vettedBy,
	}).Info("candidate classified")
	return nil
}

// ExportLightcurve writes the candidate's photometry as a spreadsheet
func (s *CandidateService) ExportLightcurve(ctx context.Context, id uuid.UUID, w io.Writer) error {
	candidate, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		return err
	}
	rows, err := s.photometry.ListByCandidate(ctx, id)
	if err != nil {
		return err
	}
	return s.exporter.Write(w, candidate, rows)
}

// Delete removes the candidate and all dependent rows. Stored blobs go
// first, then children, so a failure partway never leaves orphans pointing
// at a missing parent.
func (s *CandidateService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.candidates.GetByID(ctx, id); err != nil {
		return err
	}
	if s.objectStore != nil {
		products, err := s.products.ListByCandidate(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range products {
			if p.ObjectKey == "" {
				continue
			}
			if err := s.objectStore.Delete(ctx, p.ObjectKey); err != nil {
				s.log.WithError(err).WithField("key", p.ObjectKey).Warn("failed to delete stored blob")
			}
		}
	}
	if err := s.photometry.DeleteByCandidate(ctx, id); err != nil {
		return err
	}
	if err := s.alerts.DeleteByCandidate(ctx, id); err != nil {
		return err
	}
	if err := s.reports.DeleteByCandidate(ctx, id); err != nil {
		return err
	}
	if err := s.products.DeleteByCandidate(ctx, id); err != nil {
		return err
	}
	if err := s.candidates.Delete(ctx, id); err != nil {
		return err
	}
	s.log.WithField("candidate", id).Info("candidate deleted")
	return nil
}
