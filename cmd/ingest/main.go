package main

import (
	"context"
	"flag"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/adapters/broker"
	"github.com/erezimm/cast/adapters/cutouts"
	"github.com/erezimm/cast/adapters/galaxy"
	"github.com/erezimm/cast/adapters/objectstore"
	"github.com/erezimm/cast/adapters/postgres"
	"github.com/erezimm/cast/adapters/registry"
	"github.com/erezimm/cast/app"
	"github.com/erezimm/cast/internal/config"
	"github.com/erezimm/cast/internal/migration"
	"github.com/erezimm/cast/ports"
)

// Batch loader for alert directories. Enrichment is skipped here; the
// server picks candidates up afterwards.
func main() {
	enrich := flag.Bool("enrich", false, "run enrichment for every ingested alert")
	cutoffDays := flag.Float64("cutoff-days", 0, "skip alert files older than this many days (0 disables)")
	flag.Parse()
	if flag.NArg() < 1 {
		logrus.Fatal("usage: ingest [-enrich] <alert-directory>")
	}
	dir := flag.Arg(0)

	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment")
	}
	log := logrus.WithField("component", "ingest-cli")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("failed to load configuration")
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	ctx := context.Background()
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		log.WithError(err).Fatal("failed to run migrations")
	}

	candidateRepo := postgres.NewCandidateRepository(db)
	photometryRepo := postgres.NewPhotometryRepository(db)
	alertRepo := postgres.NewAlertRepository(db)
	productRepo := postgres.NewDataProductRepository(db)

	var store ports.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		store, err = objectstore.NewMinioStore(ctx, cfg.ObjectStore)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to object store")
		}
	}

	var enricher app.Enricher
	if *enrich {
		enricher = buildEnricher(cfg, candidateRepo, photometryRepo, productRepo, store)
	}

	service := app.NewIngestService(
		candidateRepo, photometryRepo, alertRepo, productRepo, store,
		enricher, cfg.Ingest,
	)

	summary, err := service.ProcessDirectory(ctx, dir, *cutoffDays)
	if err != nil {
		log.WithError(err).Fatal("ingest failed")
	}
	log.WithFields(logrus.Fields{
		"processed": summary.Processed,
		"created":   summary.Created,
		"merged":    summary.Merged,
		"skipped":   summary.Skipped,
		"failed":    summary.Failed,
	}).Info("ingest complete")
	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func buildEnricher(
	cfg *config.Config,
	candidates ports.CandidateRepository,
	photometry ports.PhotometryRepository,
	products ports.DataProductRepository,
	store ports.ObjectStore,
) app.Enricher {
	var registryClient ports.NamingRegistry
	if cfg.Registry.APIKey != "" {
		registryClient = registry.NewClient(cfg.Registry)
	}
	var brokerClient ports.SkyBroker
	if cfg.Broker.Token != "" {
		brokerClient = broker.NewClient(cfg.Broker)
	}
	var galaxyCatalog ports.GalaxyCatalog
	if cfg.Catalog.GalaxyCSV != "" {
		galaxyCatalog = galaxy.NewCSVCatalog(cfg.Catalog.GalaxyCSV)
	}
	return app.NewEnrichmentService(
		candidates, photometry, products, store,
		galaxyCatalog, brokerClient, registryClient,
		cutouts.NewPS1Fetcher(), cutouts.NewSDSSFetcher(),
		cfg.Catalog, cfg.Broker,
	)
}
