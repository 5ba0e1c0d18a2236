// Package main provides the entrypoint for the trailhub cache refresh worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/app"
	"github.com/trailhub/trailhub/internal/config"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/telemetry"
	"github.com/trailhub/trailhub/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const serviceName = "trailhub-worker"

func main() {
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting trailhub worker")

	cfg, err := config.FromEnvironment(config.New())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tp, err := telemetry.Init(ctx, telemetry.FromConfig(cfg, serviceName, Version))
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

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	defer stores.Close()
	if stores.Redis == nil {
		log.Warn().Msg("REDIS_URL not set - refreshed entries stay in this process and do not reach the API")
	}

	flags := app.NewFeatureFlags(cfg, stores, log)
	normalizer, err := app.NewNormalizer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load trail normalizer config")
	}
	recService, err := app.NewRecommendations(cfg, stores, normalizer, flags, resilience.NewRegistry(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize recommendation service")
	}

	refreshConfig := worker.DefaultRefreshConfig()
	if targets := worker.ParseTargets(cfg.RefreshLocations); len(targets) > 0 {
		refreshConfig.Targets = targets
	}
	if cfg.RefreshConcurrency > 0 {
		refreshConfig.Concurrency = cfg.RefreshConcurrency
	}
	refreshJob := worker.NewRefreshJob(worker.RefreshJobConfig{
		Config:    refreshConfig,
		Logger:    log,
		Refresher: recService,
	})

	// Worker also exposes a health endpoint for Cloud Run
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]any{
			"status":  "healthy",
			"version": Version,
			"refresh": refreshJob.MetricsSnapshot(),
		})
	})
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().Str("addr", server.Addr).Msg("health check server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		if cfg.PubSubProject != "" && cfg.PubSubSubscription != "" {
			return runSubscriber(gctx, cfg, refreshJob, log)
		}
		return runScheduled(gctx, cfg.RefreshInterval, worker.NewJobRunner(refreshJob, log), log)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("worker stopped with error")
		os.Exit(1) //nolint:gocritic // intentional exit, cleanup is best-effort
	}

	log.Info().Msg("worker stopped")
}

func runSubscriber(ctx context.Context, cfg config.Config, job *worker.RefreshJob, log zerolog.Logger) error {
	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		ProjectID:        cfg.PubSubProject,
		SubscriptionName: cfg.PubSubSubscription,
		RefreshJob:       job,
		Logger:           log,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := handler.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close pubsub client")
		}
	}()
	return handler.Start(ctx)
}

// runScheduled refreshes on startup and then every interval until ctx is done.
func runScheduled(ctx context.Context, interval time.Duration, runner *worker.JobRunner, log zerolog.Logger) error {
	log.Info().Dur("interval", interval).Msg("no subscription configured - refreshing on a timer")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := runner.RunScheduled(ctx); err != nil {
			log.Warn().Err(err).Msg("scheduled refresh failed")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
