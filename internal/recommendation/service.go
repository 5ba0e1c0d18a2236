package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/trail"
)

const operationSearch = "search"

// errUnusablePayload marks a provider response that could not be decoded
// at all. It is never cached.
var errUnusablePayload = errors.New("unusable recommendation payload")

// ServiceConfig holds configuration for the recommendation service.
type ServiceConfig struct {
	// Provider is the upstream ranking service.
	Provider Provider

	// Cache stores raw provider responses (default: in-memory).
	Cache Cache

	// Normalizer turns raw payloads into trail summaries.
	Normalizer *trail.Normalizer

	// Flags are the runtime switches. Nil means every switch is off.
	Flags FlagSource

	// Metrics is optional.
	Metrics Metrics

	// Logger for service operations.
	Logger zerolog.Logger

	// FreshTTL is how long a cached response is served without refetching
	// (default: 10 minutes).
	FreshTTL time.Duration

	// StaleIfErrorTTL is how long a cached response may stand in for a
	// failing provider (default: 6 hours).
	StaleIfErrorTTL time.Duration

	// FetchTimeout bounds one upstream fetch including retries
	// (default: 30 seconds).
	FetchTimeout time.Duration

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Service provides normalized trail recommendations with caching.
type Service struct {
	provider        Provider
	cache           Cache
	normalizer      *trail.Normalizer
	flags           FlagSource
	metrics         Metrics
	logger          zerolog.Logger
	freshTTL        time.Duration
	staleIfErrorTTL time.Duration
	fetchTimeout    time.Duration
	now             func() time.Time

	inflight singleflight.Group
}

// NewService creates a new recommendation service.
func NewService(cfg ServiceConfig) *Service {
	s := &Service{
		provider:        cfg.Provider,
		cache:           cfg.Cache,
		normalizer:      cfg.Normalizer,
		flags:           cfg.Flags,
		metrics:         cfg.Metrics,
		logger:          cfg.Logger,
		freshTTL:        cfg.FreshTTL,
		staleIfErrorTTL: cfg.StaleIfErrorTTL,
		fetchTimeout:    cfg.FetchTimeout,
		now:             cfg.Now,
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	if s.normalizer == nil {
		s.normalizer = trail.NewNormalizer(trail.DefaultConfig(), cfg.Logger)
	}
	if s.freshTTL == 0 {
		s.freshTTL = 10 * time.Minute
	}
	if s.staleIfErrorTTL < s.freshTTL {
		s.staleIfErrorTTL = 6 * time.Hour
	}
	if s.fetchTimeout == 0 {
		s.fetchTimeout = 30 * time.Second
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Search returns recommendations for q. A fresh cache entry is served
// directly; otherwise the provider is called and, if it fails, a cached
// entry younger than the stale-if-error window is served with Stale set.
func (s *Service) Search(ctx context.Context, q Query) (*Result, error) {
	if s.flagOn(ctx, FlagSource.RecommendationsDisabled) {
		return nil, ErrRecommendationsDisabled
	}

	q, err := s.normalizeQuery(ctx, q)
	if err != nil {
		return nil, err
	}
	key := CacheKey(q)

	entry := s.cached(ctx, key)
	if entry != nil && s.isFresh(entry) {
		s.recordCache(ctx, true)
		return s.result(entry, q.Limit, SourceCache, false), nil
	}
	s.recordCache(ctx, false)

	if s.flagOn(ctx, FlagSource.RecommendationsCachedOnly) {
		if entry != nil {
			return s.result(entry, q.Limit, SourceStale, true), nil
		}
		return nil, ErrNoCachedData
	}

	fetched, err := s.fetchShared(ctx, key, q)
	if err != nil {
		if entry != nil && s.servableStale(entry) {
			s.logger.Warn().
				Err(err).
				Str("location", q.Location).
				Time("fetched_at", entry.FetchedAt).
				Msg("serving stale recommendations due to provider error")
			if s.metrics != nil {
				s.metrics.RecordStaleServed(ctx, operationSearch)
			}
			return s.result(entry, q.Limit, SourceStale, true), nil
		}
		if errors.Is(err, errUnusablePayload) {
			return &Result{Trails: []trail.Summary{}, FetchedAt: s.now(), Source: SourceProvider}, nil
		}
		return nil, err
	}

	return s.result(fetched, q.Limit, SourceProvider, false), nil
}

// Refresh fetches q from the provider and overwrites the cache entry,
// regardless of its age. It returns the number of trails cached.
func (s *Service) Refresh(ctx context.Context, q Query) (int, error) {
	if s.flagOn(ctx, FlagSource.RecommendationsDisabled) {
		return 0, ErrRecommendationsDisabled
	}

	q, err := s.normalizeQuery(ctx, q)
	if err != nil {
		return 0, err
	}

	entry, err := s.fetchShared(ctx, CacheKey(q), q)
	if err != nil {
		return 0, err
	}
	return len(s.result(entry, q.Limit, SourceProvider, false).Trails), nil
}

// Invalidate drops the cache entry for q.
func (s *Service) Invalidate(ctx context.Context, q Query) error {
	q, err := s.normalizeQuery(ctx, q)
	if err != nil {
		return err
	}
	return s.cache.Delete(ctx, CacheKey(q))
}

// ProviderName returns the upstream provider name.
func (s *Service) ProviderName() string {
	return s.provider.Name()
}

// fetchShared collapses concurrent fetches of the same key into one
// provider call. The fetch outlives a cancelled caller so the cache still
// gets filled for the others.
func (s *Service) fetchShared(ctx context.Context, key string, q Query) (*Entry, error) {
	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, key, q)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Entry), nil
	}
}

func (s *Service) fetch(ctx context.Context, key string, q Query) (*Entry, error) {
	s.logger.Debug().
		Str("location", q.Location).
		Int("limit", q.Limit).
		Str("provider", s.provider.Name()).
		Msg("fetching recommendations from provider")

	start := s.now()
	raw, err := s.provider.Fetch(ctx, q)
	if s.metrics != nil {
		s.metrics.RecordRequest(ctx, operationSearch, s.now().Sub(start), err)
	}
	if err != nil {
		s.logger.Error().Err(err).Str("location", q.Location).Msg("failed to fetch recommendations")
		return nil, fmt.Errorf("%w: %w", ErrProviderUnavailable, err)
	}

	// A payload that is unusable as a whole is not cached, so a previous
	// good entry keeps serving.
	if _, issues := s.normalizer.DecodePlaces(raw); len(issues) == 1 && issues[0].Index < 0 {
		s.logger.Error().
			Str("location", q.Location).
			Str("reason", issues[0].Reason).
			Msg("provider returned an unusable payload")
		return nil, fmt.Errorf("%w: %s", errUnusablePayload, issues[0].Reason)
	}

	entry := &Entry{Raw: raw, FetchedAt: s.now()}
	if err := s.cache.Set(ctx, key, entry, s.staleIfErrorTTL); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to cache recommendations")
	}
	return entry, nil
}

func (s *Service) cached(ctx context.Context, key string) *Entry {
	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key).Msg("recommendation cache read failed")
		}
		return nil
	}
	return entry
}

func (s *Service) result(entry *Entry, limit int, source Source, stale bool) *Result {
	trails := s.normalizer.TransformResponse(entry.Raw)
	if len(trails) > limit {
		trails = trails[:limit]
	}
	return &Result{
		Trails:    trails,
		Stale:     stale,
		FetchedAt: entry.FetchedAt,
		Source:    source,
	}
}

func (s *Service) isFresh(entry *Entry) bool {
	return s.now().Before(entry.FetchedAt.Add(s.freshTTL))
}

func (s *Service) servableStale(entry *Entry) bool {
	return s.now().Before(entry.FetchedAt.Add(s.staleIfErrorTTL))
}

func (s *Service) recordCache(ctx context.Context, hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.RecordCacheHit(ctx, operationSearch)
	} else {
		s.metrics.RecordCacheMiss(ctx, operationSearch)
	}
}

func (s *Service) flagOn(ctx context.Context, flag func(FlagSource, context.Context) bool) bool {
	return s.flags != nil && flag(s.flags, ctx)
}

// normalizeQuery trims the location, applies the default limit and clamps
// it to the recommendation_limit flag.
func (s *Service) normalizeQuery(ctx context.Context, q Query) (Query, error) {
	var fieldErrors []models.FieldError

	q.Location = strings.Join(strings.Fields(q.Location), " ")
	switch {
	case q.Location == "":
		fieldErrors = append(fieldErrors, models.FieldError{Field: "location", Message: "is required", Code: "required"})
	case utf8.RuneCountInString(q.Location) > MaxLocationLength:
		fieldErrors = append(fieldErrors, models.FieldError{Field: "location", Message: "must be at most 200 characters", Code: "too_long"})
	}

	if q.Limit < 0 {
		fieldErrors = append(fieldErrors, models.FieldError{Field: "limit", Message: "must be positive", Code: "out_of_range"})
	}

	if len(fieldErrors) > 0 {
		return q, &ValidationError{Errors: fieldErrors}
	}

	maxLimit := DefaultLimit
	if s.flags != nil {
		maxLimit = s.flags.RecommendationLimit(ctx)
	}
	if maxLimit < 1 {
		maxLimit = 1
	}
	if q.Limit == 0 {
		q.Limit = min(DefaultLimit, maxLimit)
	}
	q.Limit = min(q.Limit, maxLimit)
	return q, nil
}
