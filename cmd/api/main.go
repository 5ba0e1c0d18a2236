// Package main provides the entrypoint for the trailhub API server.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api"
	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/config"
	"github.com/trailhub/trailhub/internal/profile"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/social"
	"github.com/trailhub/trailhub/internal/telemetry"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = api.DefaultServiceName

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting trailhub API")

	cfg, err := config.FromEnvironment(config.New())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryConfig := telemetry.FromConfig(cfg, serviceName, Version)
	tp, err := telemetry.Init(ctx, telemetryConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryConfig.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryConfig.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer stores.Close()

	ffService := app.NewFeatureFlags(cfg, stores, log)
	log.Info().Msg("feature flags service initialized")

	normalizer, err := app.NewNormalizer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load trail normalizer config")
	}

	registry := resilience.NewRegistry()
	recService, err := app.NewRecommendations(cfg, stores, normalizer, ffService, registry, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize recommendation service")
	}
	if cfg.RecommendationBaseURL == "" {
		log.Warn().Msg("recommendation service URL not configured - searches will fail")
	}

	statusService := trailstatus.NewService(trailstatus.ServiceConfig{
		Repository: stores.TrailStatus,
		Flags:      ffService,
		Logger:     log,
	})
	profileService := profile.NewService(stores.Profiles)
	socialService := social.NewService(social.ServiceConfig{
		Repository: stores.Social,
		Profiles:   profileService,
		Flags:      ffService,
		Logger:     log,
	})
	log.Info().Msg("trail services initialized")

	verifier, err := app.NewVerifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize token verifier")
	}
	if len(cfg.AdminUserIDs) == 0 {
		log.Warn().Msg("no admin users configured - feature flag admin endpoints are closed")
	}

	router := api.NewRouter(api.RouterConfig{
		Version:            Version,
		BuildTime:          BuildTime,
		Logger:             log,
		ServiceName:        serviceName,
		Metrics:            metrics,
		RequireTLS:         cfg.RequireTLS,
		Verifier:           verifier,
		AdminUserIDs:       cfg.AdminUserIDs,
		Recommendations:    recService,
		Normalizer:         normalizer,
		TrailStatus:        statusService,
		Profiles:           profileService,
		Social:             socialService,
		FeatureFlagService: ffService,
		Registry:           registry,
		Checks:             stores.Checks(),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().
			Str("addr", server.Addr).
			Str("store", cfg.StoreDriver).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}
