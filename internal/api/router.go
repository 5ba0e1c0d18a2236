// Package api provides the HTTP API for trailhub.
package api

import (
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/handler"
	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/featureflags"
	"github.com/trailhub/trailhub/internal/profile"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/recommendation"
	"github.com/trailhub/trailhub/internal/social"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

// DefaultServiceName is used for tracing when RouterConfig.ServiceName is empty.
const DefaultServiceName = "trailhub-api"

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	Verifier     middleware.TokenVerifier
	AdminUserIDs []string

	Recommendations    *recommendation.Service
	Normalizer         *trail.Normalizer
	TrailStatus        *trailstatus.Service
	Profiles           *profile.Service
	Social             *social.Service
	FeatureFlagService *featureflags.Service

	Registry *resilience.Registry
	Checks   map[string]handler.CheckFunc
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = DefaultServiceName
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers (HSTS, CSP, etc.)
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the proxy
	r.Use(middleware.ContentTypeJSON)            // JSON content type
	r.Use(middleware.RequireJSON)                // Reject non-JSON request bodies

	// Initialize handlers
	opsHandler := handler.NewOpsHandler(handler.OpsConfig{
		Version:   cfg.Version,
		BuildTime: cfg.BuildTime,
		Checks:    cfg.Checks,
		Registry:  cfg.Registry,
		Flags:     cfg.FeatureFlagService,
	})
	trailsHandler := handler.NewTrailsHandler(cfg.Recommendations, cfg.Normalizer, cfg.TrailStatus, cfg.Logger)
	meHandler := handler.NewMeHandler(cfg.TrailStatus, cfg.Profiles, cfg.Logger)
	socialHandler := handler.NewSocialHandler(cfg.Social, cfg.Logger)
	featureFlagsHandler := handler.NewFeatureFlagsHandler(cfg.FeatureFlagService, cfg.Logger)

	authMiddleware := middleware.Auth(cfg.Verifier)
	optionalAuth := middleware.OptionalAuth(cfg.Verifier)

	searchRateLimit := middleware.RateLimitByIP(middleware.SearchRateLimit)
	standardRateLimit := middleware.RateLimitByIP(middleware.StandardRateLimit)
	userRateLimit := middleware.RateLimitByUser(middleware.StandardRateLimit)
	writeRateLimit := middleware.RateLimitByUser(middleware.WriteRateLimit)

	r.Route("/v1", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
			r.With(authMiddleware).Get("/status", opsHandler.SystemStatus)
		})

		// Trail search is public; per-trail status degrades for anonymous callers.
		r.Route("/trails", func(r chi.Router) {
			r.With(searchRateLimit).Get("/recommendations", trailsHandler.Recommendations)
			r.With(standardRateLimit).Post("/normalize", trailsHandler.Normalize)
			r.With(optionalAuth, userRateLimit).Get("/{trailId}/status", trailsHandler.GetStatus)
		})

		// Me endpoints (authenticated) - user-based rate limiting
		r.Route("/me", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(userRateLimit)
			r.Get("/", meHandler.GetMe)

			r.Get("/profile", meHandler.GetProfile)
			r.With(writeRateLimit).Put("/profile", meHandler.UpdateProfile)

			r.Route("/saved-trails", func(r chi.Router) {
				r.Get("/", meHandler.ListSavedTrails)
				r.With(writeRateLimit).Put("/{trailId}", meHandler.SaveTrail)
				r.With(writeRateLimit).Delete("/{trailId}", meHandler.UnsaveTrail)
			})

			r.Route("/completed-trails", func(r chi.Router) {
				r.Get("/", meHandler.ListCompletedTrails)
				r.With(writeRateLimit).Put("/{trailId}", meHandler.CompleteTrail)
				r.With(writeRateLimit).Delete("/{trailId}", meHandler.UncompleteTrail)
			})

			r.Get("/trail-log.csv", meHandler.ExportTrailLog)
		})

		// Community feed: reading is open, writing needs a token.
		r.Route("/social", func(r chi.Router) {
			r.With(optionalAuth, userRateLimit).Get("/feed", socialHandler.ListFeed)
			r.Group(func(r chi.Router) {
				r.Use(authMiddleware)
				r.Use(writeRateLimit)
				r.Post("/posts", socialHandler.CreatePost)
				r.Put("/posts/{postId}/like", socialHandler.LikePost)
				r.Delete("/posts/{postId}/like", socialHandler.UnlikePost)
				r.Post("/posts/{postId}/comments", socialHandler.AddComment)
			})
		})

		// Admin endpoints (authenticated, allow-listed)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin(cfg.AdminUserIDs))
			r.Use(standardRateLimit)

			r.Route("/feature-flags", func(r chi.Router) {
				r.Get("/", featureFlagsHandler.ListFeatureFlags)
				r.Put("/", featureFlagsHandler.UpsertFeatureFlags)
				r.Post("/invalidate", featureFlagsHandler.InvalidateCache)
				r.Delete("/{key}", featureFlagsHandler.ResetFeatureFlag)
			})
		})
	})

	return r
}
