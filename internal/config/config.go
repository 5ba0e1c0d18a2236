// Package config loads trailhub runtime settings from the environment and
// an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvConfigFile names the environment variable holding an optional YAML
// settings file.
const EnvConfigFile = "TRAILHUB_CONFIG"

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Setting keys. Each maps to the upper-cased environment variable with dots
// replaced by underscores (app.port -> APP_PORT).
const (
	KeyAppEnv     = "app.env"
	KeyAppPort    = "app.port"
	KeyRequireTLS = "require.tls"

	KeyStoreDriver   = "store.driver"
	KeySQLitePath    = "sqlite.path"
	KeyDBAutoMigrate = "db.auto_migrate"

	KeyDBHost            = "db.host"
	KeyDBPort            = "db.port"
	KeyDBUser            = "db.user"
	KeyDBPassword        = "db.password"
	KeyDBName            = "db.name"
	KeyDBSSLMode         = "db.ssl_mode"
	KeyDBMaxOpenConns    = "db.max_open_conns"
	KeyDBMaxIdleConns    = "db.max_idle_conns"
	KeyDBConnMaxLifetime = "db.conn_max_lifetime"

	KeyRedisURL    = "redis.url"
	KeyRedisPrefix = "redis.prefix"

	KeyRecommendationBaseURL  = "recommendation.base_url"
	KeyRecommendationAPIKey   = "recommendation.api_key"
	KeyRecommendationFreshTTL = "recommendation.fresh_ttl"
	KeyRecommendationStaleTTL = "recommendation.stale_ttl"
	KeyRecommendationTimeout  = "recommendation.timeout"
	KeyTrailConfigFile        = "trail.config_file"

	KeyAuthSecret   = "auth.jwt_secret"
	KeyAuthIssuer   = "auth.jwt_issuer"
	KeyAuthAudience = "auth.jwt_audience"
	KeyAdminUserIDs = "admin.user_ids"

	KeyFlagCacheTTL = "feature_flags.cache_ttl"

	KeyPubSubProject      = "pubsub.project_id"
	KeyPubSubSubscription = "pubsub.subscription"
	KeyRefreshLocations   = "refresh.locations"
	KeyRefreshInterval    = "refresh.interval"
	KeyRefreshConcurrency = "refresh.concurrency"

	// The OpenTelemetry keys resolve to the standard OTEL_* variables.
	KeyOTelEnabled     = "otel.enabled"
	KeyOTelEndpoint    = "otel.exporter_otlp_endpoint"
	KeyOTelSampleRatio = "otel.traces_sampler_arg"
)

// Config holds the settings shared by the API, the worker and trailctl.
type Config struct {
	Env        string
	Port       string
	RequireTLS bool

	StoreDriver string
	SQLitePath  string
	AutoMigrate bool

	DBHost            string
	DBPort            int
	DBUser            string
	DBPassword        string
	DBName            string
	DBSSLMode         string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	RedisURL    string
	RedisPrefix string

	RecommendationBaseURL  string
	RecommendationAPIKey   string
	RecommendationFreshTTL time.Duration
	RecommendationStaleTTL time.Duration
	RecommendationTimeout  time.Duration
	TrailConfigFile        string

	AuthSecret   string
	AuthIssuer   string
	AuthAudience string
	AdminUserIDs []string

	FlagCacheTTL time.Duration

	PubSubProject      string
	PubSubSubscription string
	RefreshLocations   string
	RefreshInterval    time.Duration
	RefreshConcurrency int

	OTelEnabled     bool
	OTelEndpoint    string
	OTelSampleRatio float64
}

// New returns a viper instance with trailhub defaults bound to the
// environment.
func New() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault(KeyAppEnv, "development")
	v.SetDefault(KeyAppPort, "8080")
	v.SetDefault(KeyRequireTLS, false)
	v.SetDefault(KeyStoreDriver, StorePostgres)
	v.SetDefault(KeySQLitePath, "data/trailhub.db")
	v.SetDefault(KeyDBAutoMigrate, false)
	v.SetDefault(KeyDBHost, "localhost")
	v.SetDefault(KeyDBPort, 5432)
	v.SetDefault(KeyDBUser, "trailhub")
	v.SetDefault(KeyDBPassword, "localdev")
	v.SetDefault(KeyDBName, "trailhub")
	v.SetDefault(KeyDBSSLMode, "disable")
	v.SetDefault(KeyDBMaxOpenConns, 10)
	v.SetDefault(KeyDBMaxIdleConns, 2)
	v.SetDefault(KeyDBConnMaxLifetime, 5*time.Minute)
	v.SetDefault(KeyRedisPrefix, "trailhub")
	v.SetDefault(KeyRecommendationFreshTTL, 10*time.Minute)
	v.SetDefault(KeyRecommendationStaleTTL, 6*time.Hour)
	v.SetDefault(KeyRecommendationTimeout, 30*time.Second)
	v.SetDefault(KeyAuthAudience, "authenticated")
	v.SetDefault(KeyFlagCacheTTL, time.Minute)
	v.SetDefault(KeyRefreshInterval, 15*time.Minute)
	v.SetDefault(KeyRefreshConcurrency, 3)
	v.SetDefault(KeyOTelEndpoint, "localhost:4317")
	v.SetDefault(KeyOTelSampleRatio, 1.0)

	return v
}

// ReadFile merges a YAML settings file into v. Environment variables still
// take precedence.
func ReadFile(v *viper.Viper, path string) error {
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// FromEnvironment loads a .env file from the working directory when present,
// merges the file named by TRAILHUB_CONFIG and resolves the settings held
// by v.
func FromEnvironment(v *viper.Viper) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := ReadFile(v, path); err != nil {
			return Config{}, err
		}
	}
	return Load(v)
}

// Load resolves the settings held by v.
func Load(v *viper.Viper) (Config, error) {
	cfg := Config{
		Env:        v.GetString(KeyAppEnv),
		Port:       v.GetString(KeyAppPort),
		RequireTLS: v.GetBool(KeyRequireTLS),

		StoreDriver: strings.ToLower(strings.TrimSpace(v.GetString(KeyStoreDriver))),
		SQLitePath:  v.GetString(KeySQLitePath),
		AutoMigrate: v.GetBool(KeyDBAutoMigrate),

		DBHost:            v.GetString(KeyDBHost),
		DBPort:            v.GetInt(KeyDBPort),
		DBUser:            v.GetString(KeyDBUser),
		DBPassword:        v.GetString(KeyDBPassword),
		DBName:            v.GetString(KeyDBName),
		DBSSLMode:         v.GetString(KeyDBSSLMode),
		DBMaxOpenConns:    v.GetInt(KeyDBMaxOpenConns),
		DBMaxIdleConns:    v.GetInt(KeyDBMaxIdleConns),
		DBConnMaxLifetime: v.GetDuration(KeyDBConnMaxLifetime),

		RedisURL:    v.GetString(KeyRedisURL),
		RedisPrefix: v.GetString(KeyRedisPrefix),

		RecommendationBaseURL:  v.GetString(KeyRecommendationBaseURL),
		RecommendationAPIKey:   v.GetString(KeyRecommendationAPIKey),
		RecommendationFreshTTL: v.GetDuration(KeyRecommendationFreshTTL),
		RecommendationStaleTTL: v.GetDuration(KeyRecommendationStaleTTL),
		RecommendationTimeout:  v.GetDuration(KeyRecommendationTimeout),
		TrailConfigFile:        v.GetString(KeyTrailConfigFile),

		AuthSecret:   v.GetString(KeyAuthSecret),
		AuthIssuer:   v.GetString(KeyAuthIssuer),
		AuthAudience: v.GetString(KeyAuthAudience),
		AdminUserIDs: splitList(v.GetString(KeyAdminUserIDs)),

		FlagCacheTTL: v.GetDuration(KeyFlagCacheTTL),

		PubSubProject:      v.GetString(KeyPubSubProject),
		PubSubSubscription: v.GetString(KeyPubSubSubscription),
		RefreshLocations:   v.GetString(KeyRefreshLocations),
		RefreshInterval:    v.GetDuration(KeyRefreshInterval),
		RefreshConcurrency: v.GetInt(KeyRefreshConcurrency),

		OTelEnabled:     v.GetBool(KeyOTelEnabled),
		OTelEndpoint:    v.GetString(KeyOTelEndpoint),
		OTelSampleRatio: v.GetFloat64(KeyOTelSampleRatio),
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate reports settings the binaries cannot start with.
func (c Config) Validate() error {
	var errs []error
	switch c.StoreDriver {
	case StorePostgres, StoreSQLite, StoreMemory:
	default:
		errs = append(errs, fmt.Errorf("store.driver must be one of postgres, sqlite, memory (got %q)", c.StoreDriver))
	}
	if c.StoreDriver == StorePostgres && c.DBMaxIdleConns > c.DBMaxOpenConns {
		errs = append(errs, errors.New("db.max_idle_conns must not exceed db.max_open_conns"))
	}
	if c.StoreDriver == StoreSQLite && c.SQLitePath == "" {
		errs = append(errs, errors.New("sqlite.path is required for the sqlite store"))
	}
	if c.RecommendationFreshTTL <= 0 {
		errs = append(errs, errors.New("recommendation.fresh_ttl must be positive"))
	}
	if c.RefreshInterval <= 0 {
		errs = append(errs, errors.New("refresh.interval must be positive"))
	}
	if c.OTelSampleRatio < 0 || c.OTelSampleRatio > 1 {
		errs = append(errs, fmt.Errorf("otel.traces_sampler_arg must be within [0, 1] (got %g)", c.OTelSampleRatio))
	}
	return errors.Join(errs...)
}

// IsProduction reports whether the service runs in production.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
