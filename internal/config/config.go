package config

import (
	"os"
	"strconv"
	"time"

	"github.com/erezimm/cast/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database    DatabaseConfig `validate:"required"`
	ForcedPhot  ForcedPhotConfig
	Registry    RegistryConfig
	Broker      BrokerConfig
	ObjectStore ObjectStoreConfig
	Catalog     CatalogConfig
	Ingest      IngestConfig
	Server      ServerConfig `validate:"required"`
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	URL string `validate:"required"`
}

// ForcedPhotConfig holds the forced-photometry store connection and polling policy
type ForcedPhotConfig struct {
	Host         string
	Port         int
	Username     string
	Password     string
	Database     string
	UserID       int
	MaxResults   int
	PollInterval time.Duration
	Timeout      time.Duration
}

// RegistryConfig holds the external naming-registry credentials
type RegistryConfig struct {
	BaseURL     string
	BotID       int
	BotName     string
	APIKey      string
	SettleDelay time.Duration
}

// BrokerConfig holds the sky-survey broker settings
type BrokerConfig struct {
	Endpoint     string
	Token        string
	ConeRadius   float64 // arcseconds
	LookbackDays float64
}

// ObjectStoreConfig holds the cutout/feedback blob store settings
type ObjectStoreConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// CatalogConfig holds the reference-galaxy catalog settings
type CatalogConfig struct {
	GalaxyCSV   string
	MatchRadius float64 // arcseconds
}

// IngestConfig holds alert-ingestion policy
type IngestConfig struct {
	DedupRadius    float64 // arcseconds
	MaxConcurrency int
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `validate:"required"`
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{}

	dbConfig, err := loadDatabaseConfig()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load database configuration")
	}
	config.Database = *dbConfig

	config.ForcedPhot = loadForcedPhotConfig()
	config.Registry = loadRegistryConfig()
	config.Broker = loadBrokerConfig()
	config.ObjectStore = loadObjectStoreConfig()
	config.Catalog = loadCatalogConfig()
	config.Ingest = loadIngestConfig()
	config.Server = loadServerConfig()

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

func loadDatabaseConfig() (*DatabaseConfig, error) {
	url := os.Getenv("DATABASE_URL")
	if url == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}
	return &DatabaseConfig{URL: url}, nil
}

func loadForcedPhotConfig() ForcedPhotConfig {
	return ForcedPhotConfig{
		Host:         getEnvOrDefault("FORCEDPHOT_HOST", ""),
		Port:         getEnvIntOrDefault("FORCEDPHOT_PORT", 9000),
		Username:     getEnvOrDefault("FORCEDPHOT_USER", ""),
		Password:     getEnvOrDefault("FORCEDPHOT_PASS", ""),
		Database:     getEnvOrDefault("FORCEDPHOT_DB", "last"),
		UserID:       getEnvIntOrDefault("FORCEDPHOT_USER_ID", 1),
		MaxResults:   getEnvIntOrDefault("FORCEDPHOT_MAX_RESULTS", 200),
		PollInterval: getEnvDurationOrDefault("FORCEDPHOT_POLL_INTERVAL", 5*time.Second),
		Timeout:      getEnvDurationOrDefault("FORCEDPHOT_TIMEOUT", 30*time.Second),
	}
}

func loadRegistryConfig() RegistryConfig {
	return RegistryConfig{
		BaseURL:     getEnvOrDefault("REGISTRY_URL", "https://sandbox.wis-tns.org/api"),
		BotID:       getEnvIntOrDefault("REGISTRY_BOT_ID", 0),
		BotName:     getEnvOrDefault("REGISTRY_BOT_NAME", ""),
		APIKey:      getEnvOrDefault("REGISTRY_API_KEY", ""),
		SettleDelay: getEnvDurationOrDefault("REGISTRY_SETTLE_DELAY", 5*time.Second),
	}
}

func loadBrokerConfig() BrokerConfig {
	return BrokerConfig{
		Endpoint:     getEnvOrDefault("BROKER_ENDPOINT", "https://lasair-ztf.lsst.ac.uk/api"),
		Token:        getEnvOrDefault("BROKER_TOKEN", ""),
		ConeRadius:   getEnvFloatOrDefault("BROKER_CONE_RADIUS", 5.0),
		LookbackDays: getEnvFloatOrDefault("BROKER_LOOKBACK_DAYS", 10.0),
	}
}

func loadObjectStoreConfig() ObjectStoreConfig {
	return ObjectStoreConfig{
		Endpoint:  getEnvOrDefault("OBJECTSTORE_ENDPOINT", ""),
		AccessKey: getEnvOrDefault("OBJECTSTORE_ACCESS_KEY", ""),
		SecretKey: getEnvOrDefault("OBJECTSTORE_SECRET_KEY", ""),
		Bucket:    getEnvOrDefault("OBJECTSTORE_BUCKET", "cast-dataproducts"),
		UseSSL:    getEnvBoolOrDefault("OBJECTSTORE_USE_SSL", false),
	}
}

func loadCatalogConfig() CatalogConfig {
	return CatalogConfig{
		GalaxyCSV:   getEnvOrDefault("GALAXY_CATALOG_CSV", ""),
		MatchRadius: getEnvFloatOrDefault("GALAXY_MATCH_RADIUS", 30.0),
	}
}

func loadIngestConfig() IngestConfig {
	return IngestConfig{
		DedupRadius:    getEnvFloatOrDefault("INGEST_DEDUP_RADIUS", 3.0),
		MaxConcurrency: getEnvIntOrDefault("INGEST_MAX_CONCURRENCY", 4),
	}
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Port: getEnvOrDefault("PORT", "8080"),
	}
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" {
		return errors.ConfigInvalid("database URL is required")
	}
	if config.Ingest.DedupRadius <= 0 {
		return errors.ConfigInvalid("ingest dedup radius must be positive")
	}
	if config.ForcedPhot.PollInterval <= 0 {
		return errors.ConfigInvalid("forced-photometry poll interval must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
