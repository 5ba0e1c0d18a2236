// Package app assembles the stores and services shared by the trailhub
// binaries from a config.Config.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/handler"
	"github.com/trailhub/trailhub/internal/auth"
	"github.com/trailhub/trailhub/internal/config"
	"github.com/trailhub/trailhub/internal/database"
	"github.com/trailhub/trailhub/internal/featureflags"
	"github.com/trailhub/trailhub/internal/profile"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/recommendation"
	"github.com/trailhub/trailhub/internal/recommendation/upstream"
	"github.com/trailhub/trailhub/internal/social"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

// Stores holds the repositories selected by the store driver plus the
// connections behind them.
type Stores struct {
	Pool   *pgxpool.Pool
	SQLite *sql.DB
	Redis  *redis.Client

	TrailStatus  trailstatus.Repository
	Profiles     profile.Repository
	Social       social.Repository
	FeatureFlags featureflags.Repository
}

// OpenStores connects the configured store and, when REDIS_URL is set, Redis.
//
// The sqlite driver backs trail status only; profiles, posts and flags are
// kept in memory in that mode.
func OpenStores(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*Stores, error) {
	s := &Stores{}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		dbConfig := database.FromConfig(cfg)
		pool, err := database.Connect(ctx, dbConfig)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.AutoMigrate {
			if err := database.Migrate(ctx, pool); err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info().Msg("database schema applied")
		}
		logger.Info().
			Str("host", dbConfig.Host).
			Int("port", dbConfig.Port).
			Str("database", dbConfig.Database).
			Msg("database connected")

		s.Pool = pool
		s.TrailStatus = trailstatus.NewPostgresRepository(pool)
		s.Profiles = profile.NewPostgresRepository(pool)
		s.Social = social.NewPostgresRepository(pool)
		s.FeatureFlags = featureflags.NewPostgresRepository(pool)

	case config.StoreSQLite:
		db, err := database.OpenSQLite(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("path", cfg.SQLitePath).Msg("sqlite store opened")
		logger.Warn().Msg("profiles, posts and feature flags are not persisted with the sqlite store")

		s.SQLite = db
		s.TrailStatus = trailstatus.NewSQLiteRepository(db)
		s.useMemory(false)

	default:
		logger.Warn().Msg("using in-memory store - data is lost on restart")
		s.useMemory(true)
	}

	if cfg.RedisURL != "" {
		client, err := recommendation.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Redis = client
		logger.Info().Msg("redis connected")
	}

	return s, nil
}

func (s *Stores) useMemory(trailStatus bool) {
	if trailStatus {
		s.TrailStatus = trailstatus.NewInMemoryRepository()
	}
	s.Profiles = profile.NewInMemoryRepository()
	s.Social = social.NewInMemoryRepository()
	s.FeatureFlags = featureflags.NewInMemoryRepository()
}

// Checks returns readiness probes for the open connections.
func (s *Stores) Checks() map[string]handler.CheckFunc {
	checks := make(map[string]handler.CheckFunc)
	if s.Pool != nil {
		checks["postgres"] = s.Pool.Ping
	}
	if s.SQLite != nil {
		checks["sqlite"] = s.SQLite.PingContext
	}
	if s.Redis != nil {
		client := s.Redis
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
	}
	return checks
}

// Close releases every open connection.
func (s *Stores) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
	if s.SQLite != nil {
		_ = s.SQLite.Close()
	}
	if s.Redis != nil {
		_ = s.Redis.Close()
	}
}

// devAuthSecret signs and verifies tokens when no secret is configured
// outside production.
const devAuthSecret = "local-dev-signing-key-change-in-production"

// NewVerifier builds the access token verifier. Production requires
// AUTH_JWT_SECRET.
func NewVerifier(cfg config.Config, logger zerolog.Logger) (*auth.Verifier, error) {
	secret := cfg.AuthSecret
	if secret == "" && !cfg.IsProduction() {
		secret = devAuthSecret
		logger.Warn().Msg("using default JWT secret - not secure for production")
	}
	return auth.NewVerifier(auth.Config{
		Secret:   secret,
		Issuer:   cfg.AuthIssuer,
		Audience: cfg.AuthAudience,
	})
}

// NewNormalizer builds the trail normalizer, reading thresholds from
// TRAIL_CONFIG_FILE when set.
func NewNormalizer(cfg config.Config, logger zerolog.Logger) (*trail.Normalizer, error) {
	trailConfig := trail.DefaultConfig()
	if cfg.TrailConfigFile != "" {
		loaded, err := trail.LoadConfig(cfg.TrailConfigFile)
		if err != nil {
			return nil, err
		}
		trailConfig = loaded
		logger.Info().Str("path", cfg.TrailConfigFile).Msg("trail normalizer config loaded")
	}
	return trail.NewNormalizer(trailConfig, logger), nil
}

// NewFeatureFlags builds the feature flag service on the selected store.
func NewFeatureFlags(cfg config.Config, stores *Stores, logger zerolog.Logger) *featureflags.Service {
	return featureflags.NewService(featureflags.ServiceConfig{
		Repository: stores.FeatureFlags,
		Logger:     logger,
		CacheTTL:   cfg.FlagCacheTTL,
	})
}

// NewRecommendations builds the recommendation service: the upstream client
// behind the resilient HTTP client, Redis or in-memory caching and provider
// metrics.
func NewRecommendations(
	cfg config.Config,
	stores *Stores,
	normalizer *trail.Normalizer,
	flags recommendation.FlagSource,
	registry *resilience.Registry,
	logger zerolog.Logger,
) (*recommendation.Service, error) {
	clientConfig := resilience.DefaultClientConfig(upstream.ProviderName)
	clientConfig.Registry = registry
	clientConfig.Logger = logger

	provider := upstream.NewClient(upstream.ClientConfig{
		BaseURL:    cfg.RecommendationBaseURL,
		APIKey:     cfg.RecommendationAPIKey,
		HTTPClient: resilience.NewClient(clientConfig),
		Logger:     logger,
	})

	metrics, err := recommendation.NewOTelMetrics(upstream.ProviderName)
	if err != nil {
		return nil, fmt.Errorf("provider metrics: %w", err)
	}

	var cache recommendation.Cache
	if stores.Redis != nil {
		cache = recommendation.NewRedisCache(stores.Redis, cfg.RedisPrefix+":")
	} else {
		cache = recommendation.NewMemoryCache()
	}

	return recommendation.NewService(recommendation.ServiceConfig{
		Provider:        provider,
		Cache:           cache,
		Normalizer:      normalizer,
		Flags:           flags,
		Metrics:         metrics,
		Logger:          logger,
		FreshTTL:        cfg.RecommendationFreshTTL,
		StaleIfErrorTTL: cfg.RecommendationStaleTTL,
		FetchTimeout:    cfg.RecommendationTimeout,
	}), nil
}
