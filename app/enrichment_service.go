package app

import (
	"bytes"
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/domain/astro"
	"github.com/erezimm/cast/internal/config"
	"github.com/erezimm/cast/models"
	"github.com/erezimm/cast/ports"
)

// EnrichmentService augments candidates with context from external
// services: a host galaxy, archival survey photometry, reference imagery
// and any designation the registry already knows. Every step is best
// effort and independently skippable.
type EnrichmentService struct {
	candidates  ports.CandidateRepository
	photometry  ports.PhotometryRepository
	products    ports.DataProductRepository
	objectStore ports.ObjectStore

	galaxies ports.GalaxyCatalog
	broker   ports.SkyBroker
	registry ports.NamingRegistry
	fetchers map[models.DataProductType]ports.CutoutFetcher

	galaxyRadius float64 // arcseconds
	brokerRadius float64 // arcseconds
	lookbackDays float64

	log *logrus.Entry
}

// NewEnrichmentService creates the candidate enrichment service. Any nil
// dependency disables its step.
func NewEnrichmentService(
	candidates ports.CandidateRepository,
	photometry ports.PhotometryRepository,
	products ports.DataProductRepository,
	objectStore ports.ObjectStore,
	galaxies ports.GalaxyCatalog,
	broker ports.SkyBroker,
	registry ports.NamingRegistry,
	ps1, sdss ports.CutoutFetcher,
	catalogCfg config.CatalogConfig,
	brokerCfg config.BrokerConfig,
) *EnrichmentService {
	fetchers := make(map[models.DataProductType]ports.CutoutFetcher)
	if ps1 != nil {
		fetchers[models.DataProductPS1Stamp] = ps1
	}
	if sdss != nil {
		fetchers[models.DataProductSDSSStamp] = sdss
	}
	return &EnrichmentService{
		candidates:   candidates,
		photometry:   photometry,
		products:     products,
		objectStore:  objectStore,
		galaxies:     galaxies,
		broker:       broker,
		registry:     registry,
		fetchers:     fetchers,
		galaxyRadius: catalogCfg.MatchRadius,
		brokerRadius: brokerCfg.ConeRadius,
		lookbackDays: brokerCfg.LookbackDays,
		log:          logrus.WithField("component", "enrichment"),
	}
}

var _ Enricher = (*EnrichmentService)(nil)

// Enrich runs every enabled enrichment step against the candidate.
func (s *EnrichmentService) Enrich(ctx context.Context, candidate *models.Candidate) {
	s.associateGalaxy(ctx, candidate)
	s.importBrokerPhotometry(ctx, candidate)
	s.fetchStamps(ctx, candidate)
	s.lookupExistingName(ctx, candidate)
}

func (s *EnrichmentService) associateGalaxy(ctx context.Context, candidate *models.Candidate) {
	if s.galaxies == nil || candidate.HostGalaxy != nil {
		return
	}
	match, found, err := s.galaxies.Nearest(ctx, candidate.RA, candidate.Dec, s.galaxyRadius)
	if err != nil {
		s.log.WithError(err).WithField("candidate", candidate.Name).Warn("galaxy association failed")
		return
	}
	if !found {
		return
	}
	if err := s.candidates.UpdateHostGalaxy(ctx, candidate.ID, match.Name, match.DistanceMpc, match.Redshift); err != nil {
		s.log.WithError(err).Warn("failed to store host galaxy")
		return
	}
	name := match.Name
	candidate.HostGalaxy = &name
	candidate.DistanceMpc = match.DistanceMpc
	candidate.Redshift = match.Redshift
}

// importBrokerPhotometry pulls the survey lightcurve of the nearest
// archived object into the candidate's photometry.
func (s *EnrichmentService) importBrokerPhotometry(ctx context.Context, candidate *models.Candidate) {
	if s.broker == nil {
		return
	}
	objectID, _, found, err := s.broker.NearestObject(ctx, candidate.RA, candidate.Dec, s.brokerRadius)
	if err != nil {
		s.log.WithError(err).WithField("candidate", candidate.Name).Warn("broker cone search failed")
		return
	}
	if !found {
		return
	}

	observations, err := s.broker.Lightcurve(ctx, objectID)
	if err != nil {
		s.log.WithError(err).WithField("object", objectID).Warn("broker lightcurve fetch failed")
		return
	}

	cutoffJD := astro.JD(candidate.DiscoveryDatetime) - s.lookbackDays
	added := 0
	for _, obs := range observations {
		if obs.JD < cutoffJD {
			continue
		}
		if obs.Magnitude == nil && obs.Limit == nil {
			continue
		}
		p := models.PhotometryPoint{
			CandidateID:    candidate.ID,
			ObsTime:        astro.FromJD(obs.JD),
			Magnitude:      obs.Magnitude,
			MagnitudeError: obs.MagnitudeError,
			Limit:          obs.Limit,
			FilterBand:     defaultFilter(obs.Filter),
			Telescope:      "ZTF",
			Instrument:     "ZTF-Cam",
		}
		inserted, err := s.photometry.InsertIfAbsent(ctx, &p, dedupWindow)
		if err != nil {
			s.log.WithError(err).Warn("failed to store broker photometry")
			return
		}
		if inserted {
			added++
		}
	}
	if added > 0 {
		s.log.WithFields(logrus.Fields{
			"candidate": candidate.Name,
			"object":    objectID,
			"added":     added,
		}).Info("broker photometry imported")
	}
}

// fetchStamps downloads reference imagery around the position and attaches
// it as data products.
func (s *EnrichmentService) fetchStamps(ctx context.Context, candidate *models.Candidate) {
	if s.objectStore == nil {
		return
	}
	for productType, fetcher := range s.fetchers {
		data, contentType, err := fetcher.Fetch(ctx, candidate.RA, candidate.Dec)
		if err != nil {
			s.log.WithError(err).WithFields(logrus.Fields{
				"candidate": candidate.Name,
				"type":      productType,
			}).Debug("stamp fetch failed")
			continue
		}
		key := fmt.Sprintf("stamps/%s/%s.jpg", candidate.ID, productType)
		if err := s.objectStore.Put(ctx, key, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
			s.log.WithError(err).Warn("failed to store stamp")
			continue
		}
		if err := s.products.Create(ctx, &models.DataProduct{
			CandidateID: candidate.ID,
			Type:        productType,
			Name:        fmt.Sprintf("%s %s", candidate.Name, productType),
			ObjectKey:   key,
			ContentType: contentType,
			SizeBytes:   int64(len(data)),
		}); err != nil {
			s.log.WithError(err).Warn("failed to record stamp data product")
		}
	}
}

// lookupExistingName checks whether the registry already knows a transient
// at this position and records its designation.
func (s *EnrichmentService) lookupExistingName(ctx context.Context, candidate *models.Candidate) {
	if s.registry == nil || candidate.ExternalName != nil {
		return
	}
	names, err := s.registry.ConeSearch(ctx, candidate.RA, candidate.Dec, 3.0)
	if err != nil {
		s.log.WithError(err).WithField("candidate", candidate.Name).Warn("registry cone search failed")
		return
	}
	if len(names) == 0 {
		return
	}
	if err := s.candidates.SetExternalName(ctx, candidate.ID, names[0]); err != nil {
		s.log.WithError(err).Warn("failed to store external name")
		return
	}
	candidate.ExternalName = &names[0]
}
