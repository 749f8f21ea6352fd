package main

import (
	"context"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"

	"github.com/erezimm/cast/adapters/broker"
	"github.com/erezimm/cast/adapters/clickhouse"
	"github.com/erezimm/cast/adapters/cutouts"
	"github.com/erezimm/cast/adapters/galaxy"
	"github.com/erezimm/cast/adapters/objectstore"
	"github.com/erezimm/cast/adapters/postgres"
	"github.com/erezimm/cast/adapters/registry"
	"github.com/erezimm/cast/api"
	"github.com/erezimm/cast/app"
	"github.com/erezimm/cast/internal/config"
	"github.com/erezimm/cast/internal/migration"
	"github.com/erezimm/cast/ports"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("no .env file found, using environment")
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("LOG_LEVEL") == "debug" {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("component", "server")

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
	reportRepo := postgres.NewReportRepository(db)
	productRepo := postgres.NewDataProductRepository(db)

	var store ports.ObjectStore
	if cfg.ObjectStore.Endpoint != "" {
		store, err = objectstore.NewMinioStore(ctx, cfg.ObjectStore)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to object store")
		}
	} else {
		log.Warn("object store not configured; raw alerts and stamps will not be archived")
	}

	var fpStore ports.ForcedPhotStore
	if cfg.ForcedPhot.Host != "" {
		fpStore, err = clickhouse.NewFPStore(cfg.ForcedPhot)
		if err != nil {
			log.WithError(err).Fatal("failed to connect to forced-photometry store")
		}
	} else {
		log.Warn("forced photometry not configured")
	}

	var registryClient ports.NamingRegistry
	if cfg.Registry.APIKey != "" {
		registryClient = registry.NewClient(cfg.Registry)
	} else {
		log.Warn("naming registry not configured; reporting disabled")
	}

	var brokerClient ports.SkyBroker
	if cfg.Broker.Token != "" {
		brokerClient = broker.NewClient(cfg.Broker)
	}

	var galaxyCatalog ports.GalaxyCatalog
	if cfg.Catalog.GalaxyCSV != "" {
		galaxyCatalog = galaxy.NewCSVCatalog(cfg.Catalog.GalaxyCSV)
	}

	enricher := app.NewEnrichmentService(
		candidateRepo, photometryRepo, productRepo, store,
		galaxyCatalog, brokerClient, registryClient,
		cutouts.NewPS1Fetcher(), cutouts.NewSDSSFetcher(),
		cfg.Catalog, cfg.Broker,
	)
	ingestService := app.NewIngestService(
		candidateRepo, photometryRepo, alertRepo, productRepo, store,
		enricher, cfg.Ingest,
	)
	fpService := app.NewForcedPhotService(fpStore, photometryRepo, cfg.ForcedPhot)
	reportService := app.NewReportService(
		registryClient, reportRepo, candidateRepo, photometryRepo,
		productRepo, store, cfg.Registry,
	)
	candidateService := app.NewCandidateService(
		candidateRepo, photometryRepo, alertRepo, reportRepo, productRepo, store,
	)

	httpApp := api.NewApp(candidateService, ingestService, fpService, reportService)
	if err := httpApp.Start(":" + cfg.Server.Port); err != nil {
		log.WithError(err).Fatal("server stopped")
	}
}
