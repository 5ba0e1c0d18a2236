package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/recommendation"
)

// Refresher refetches one query into the recommendation cache.
// *recommendation.Service implements it.
type Refresher interface {
	Refresh(ctx context.Context, q recommendation.Query) (int, error)
}

// RefreshJob warms the recommendation cache for the configured targets.
type RefreshJob struct {
	config    RefreshConfig
	logger    zerolog.Logger
	refresher Refresher

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	// Counters
	TotalRuns         int64
	SuccessfulRefresh int64
	FailedRefreshes   int64
	SkippedRefreshes  int64
	TrailsCached      int64

	// Timings
	LastRefreshAt       time.Time
	LastRefreshDuration time.Duration
	TotalDuration       time.Duration
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Logger    zerolog.Logger
	Refresher Refresher
}

// NewRefreshJob creates a new refresh job processor.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	config := cfg.Config
	defaults := DefaultRefreshConfig()
	if len(config.Targets) == 0 {
		config.Targets = defaults.Targets
	}
	if config.Concurrency <= 0 {
		config.Concurrency = defaults.Concurrency
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}

	return &RefreshJob{
		config:    config,
		logger:    cfg.Logger,
		refresher: cfg.Refresher,
		metrics:   &RefreshMetrics{},
	}
}

// Config returns the effective job configuration.
func (j *RefreshJob) Config() RefreshConfig {
	return j.config
}

// RefreshResult contains the result of a refresh operation.
type RefreshResult struct {
	StartTime    time.Time
	EndTime      time.Time
	Duration     time.Duration
	TotalTargets int
	Successful   int
	Failed       int
	// Skipped counts targets not refreshed because recommendations are
	// switched off.
	Skipped      int
	TrailsCached int
	Errors       []RefreshError
}

// RefreshError represents an error during refresh.
type RefreshError struct {
	Location string
	Error    string
}

// Run refreshes every configured target.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunTargets(ctx, j.config.Ordered())
}

// RunTargets refreshes targets with the configured worker pool.
func (j *RefreshJob) RunTargets(ctx context.Context, targets []RefreshTarget) *RefreshResult {
	startTime := time.Now()
	result := &RefreshResult{
		StartTime:    startTime,
		TotalTargets: len(targets),
	}

	j.logger.Info().
		Int("total_targets", result.TotalTargets).
		Int("concurrency", j.config.Concurrency).
		Msg("starting recommendation refresh job")

	targetsChan := make(chan RefreshTarget, len(targets))
	resultsChan := make(chan targetResult, len(targets))

	var wg sync.WaitGroup
	for i := 0; i < min(j.config.Concurrency, max(len(targets), 1)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, targetsChan, resultsChan)
		}()
	}

	for _, t := range targets {
		targetsChan <- t
	}
	close(targetsChan)

	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for tr := range resultsChan {
		switch {
		case tr.skipped:
			result.Skipped++
		case tr.err != nil:
			result.Failed++
			result.Errors = append(result.Errors, RefreshError{
				Location: tr.target.Location,
				Error:    tr.err.Error(),
			})
		default:
			result.Successful++
			result.TrailsCached += tr.trails
		}
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)

	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Int("skipped", result.Skipped).
		Int("trails_cached", result.TrailsCached).
		Msg("recommendation refresh job completed")

	return result
}

type targetResult struct {
	target  RefreshTarget
	trails  int
	skipped bool
	err     error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, targets <-chan RefreshTarget, results chan<- targetResult) {
	for target := range targets {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshTarget(ctx, target)
		}
	}
}

func (j *RefreshJob) refreshTarget(ctx context.Context, target RefreshTarget) targetResult {
	result := targetResult{target: target}
	if j.refresher == nil {
		result.skipped = true
		return result
	}

	targetCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	n, err := j.refresher.Refresh(targetCtx, recommendation.Query{Location: target.Location, Limit: target.Limit})
	switch {
	case errors.Is(err, recommendation.ErrRecommendationsDisabled):
		result.skipped = true
	case err != nil:
		j.logger.Warn().Err(err).Str("location", target.Location).Msg("failed to refresh recommendations")
		result.err = err
	default:
		result.trails = n
	}
	return result
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.SuccessfulRefresh += int64(result.Successful)
	j.metrics.FailedRefreshes += int64(result.Failed)
	j.metrics.SkippedRefreshes += int64(result.Skipped)
	j.metrics.TrailsCached += int64(result.TrailsCached)
	j.metrics.LastRefreshAt = result.EndTime
	j.metrics.LastRefreshDuration = result.Duration
	j.metrics.TotalDuration += result.Duration
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:           j.metrics.TotalRuns,
		SuccessfulRefresh:   j.metrics.SuccessfulRefresh,
		FailedRefreshes:     j.metrics.FailedRefreshes,
		SkippedRefreshes:    j.metrics.SkippedRefreshes,
		TrailsCached:        j.metrics.TrailsCached,
		LastRefreshAt:       j.metrics.LastRefreshAt,
		LastRefreshDuration: j.metrics.LastRefreshDuration,
		TotalDuration:       j.metrics.TotalDuration,
	}
}

// MetricsSnapshot returns a snapshot of the current metrics as a map.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":            m.TotalRuns,
		"successful_refreshes":  m.SuccessfulRefresh,
		"failed_refreshes":      m.FailedRefreshes,
		"skipped_refreshes":     m.SkippedRefreshes,
		"trails_cached":         m.TrailsCached,
		"last_refresh_at":       m.LastRefreshAt,
		"last_refresh_duration": m.LastRefreshDuration.String(),
		"total_duration":        m.TotalDuration.String(),
	}
}
