// Package handler provides HTTP handlers for the trailhub API.
package handler

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/featureflags"
	"github.com/trailhub/trailhub/internal/provider/resilience"
)

// readinessTimeout bounds each dependency check.
const readinessTimeout = 2 * time.Second

// CheckFunc pings one dependency.
type CheckFunc func(ctx context.Context) error

// OpsConfig holds the dependencies of the ops endpoints.
type OpsConfig struct {
	Version   string
	BuildTime string

	// Checks maps subsystem names (postgres, sqlite, redis) to ping functions.
	Checks map[string]CheckFunc

	Registry *resilience.Registry  // optional
	Flags    *featureflags.Service // optional
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version   string
	buildTime string
	checks    map[string]CheckFunc
	registry  *resilience.Registry
	flags     *featureflags.Service
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(cfg OpsConfig) *OpsHandler {
	return &OpsHandler{
		version:   cfg.Version,
		buildTime: cfg.BuildTime,
		checks:    cfg.Checks,
		registry:  cfg.Registry,
		flags:     cfg.Flags,
	}
}

// HealthCheck handles GET /v1/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, models.Health{
		Status:    models.HealthStatusOK,
		Time:      models.Timestamp(time.Now()),
		Version:   h.version,
		BuildTime: h.buildTime,
	})
}

// ReadinessCheck handles GET /v1/ops/ready - readiness check. Any failing
// subsystem makes the instance unready.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())

	status := models.HealthStatusOK
	checks := make(map[string]models.HealthStatus, len(subsystems))
	for _, s := range subsystems {
		checks[s.Name] = s.Status
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}

	health := models.Health{
		Status: status,
		Time:   models.Timestamp(time.Now()),
		Checks: checks,
	}
	code := http.StatusOK
	if status != models.HealthStatusOK {
		code = http.StatusServiceUnavailable
	}
	response.JSON(w, r, code, health)
}

// SystemStatus handles GET /v1/ops/status - provider and subsystem status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	subsystems := h.runChecks(r.Context())
	providers := h.providerStatuses()

	status := models.HealthStatusOK
	for _, s := range subsystems {
		if s.Status != models.HealthStatusOK {
			status = models.HealthStatusFail
		}
	}
	if status == models.HealthStatusOK {
		for _, p := range providers {
			if p.Status != models.HealthStatusOK {
				status = models.HealthStatusDegraded
			}
		}
	}

	response.JSON(w, r, http.StatusOK, models.SystemStatus{
		Status:                 status,
		Time:                   models.Timestamp(time.Now()),
		Version:                h.version,
		Subsystems:             subsystems,
		Providers:              providers,
		ActiveDegradationFlags: h.activeFlags(r.Context()),
	})
}

// runChecks pings every subsystem concurrently and returns the results
// sorted by name.
func (h *OpsHandler) runChecks(ctx context.Context) []models.SubsystemStatus {
	results := make([]models.SubsystemStatus, 0, len(h.checks))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for name, check := range h.checks {
		wg.Add(1)
		go func(name string, check CheckFunc) {
			defer wg.Done()
			checkCtx, cancel := context.WithTimeout(ctx, readinessTimeout)
			defer cancel()

			s := models.SubsystemStatus{Name: name, Status: models.HealthStatusOK}
			if err := check(checkCtx); err != nil {
				detail := err.Error()
				s.Status = models.HealthStatusFail
				s.Detail = &detail
			}
			mu.Lock()
			results = append(results, s)
			mu.Unlock()
		}(name, check)
	}
	wg.Wait()

	sort.Slice(results, func(i, j int) bool { return results[i].Name < results[j].Name })
	return results
}

func (h *OpsHandler) providerStatuses() []models.ProviderStatus {
	if h.registry == nil {
		return []models.ProviderStatus{}
	}
	all := h.registry.Snapshot()
	out := make([]models.ProviderStatus, 0, len(all))
	for _, ph := range all {
		ps := models.ProviderStatus{
			Provider:            ph.Name,
			Status:              models.HealthStatusOK,
			Circuit:             ph.State.String(),
			ConsecutiveFailures: ph.Counts.ConsecutiveFailures,
		}
		switch ph.Level() {
		case resilience.LevelDown:
			ps.Status = models.HealthStatusFail
		case resilience.LevelDegraded:
			ps.Status = models.HealthStatusDegraded
		}
		if !ph.LastSuccess.IsZero() {
			ts := models.Timestamp(ph.LastSuccess)
			ps.LastSuccessAt = &ts
		}
		if !ph.LastFailure.IsZero() {
			ts := models.Timestamp(ph.LastFailure)
			ps.LastFailureAt = &ts
		}
		if ph.LastError != "" {
			msg := ph.LastError
			ps.Message = &msg
		}
		out = append(out, ps)
	}
	return out
}

// activeFlags lists the degradation switches that are currently on.
func (h *OpsHandler) activeFlags(ctx context.Context) []string {
	if h.flags == nil {
		return nil
	}
	var active []string
	for _, key := range []string{
		featureflags.FlagDisableRecommendations,
		featureflags.FlagRecommendationsCachedOnly,
		featureflags.FlagTrailStatusReadOnly,
		featureflags.FlagDisableSocialPosting,
	} {
		if h.flags.IsEnabled(ctx, key) {
			active = append(active, key)
		}
	}
	return active
}
