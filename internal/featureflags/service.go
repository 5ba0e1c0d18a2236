package featureflags

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultCacheTTL bounds how long a flag value is served without a store read.
const DefaultCacheTTL = time.Minute

// ServiceConfig holds configuration for the feature flag service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration    // optional, defaults to DefaultCacheTTL
	Now        func() time.Time // optional, defaults to time.Now
}

// Service evaluates flags against stored overrides, falling back to the
// defaults when the store has no override or cannot be reached.
type Service struct {
	repo   Repository
	logger zerolog.Logger
	ttl    time.Duration
	now    func() time.Time
	group  singleflight.Group

	mu      sync.RWMutex
	entries map[string]cacheEntry
}

// cacheEntry remembers a store read. A nil override records that the store
// holds none, so defaults do not cost a query per request.
type cacheEntry struct {
	override *Flag
	expires  time.Time
}

// NewService creates a new feature flag service.
func NewService(cfg ServiceConfig) *Service {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:    cfg.Repository,
		logger:  cfg.Logger.With().Str("component", "feature_flags").Logger(),
		ttl:     ttl,
		now:     now,
		entries: make(map[string]cacheEntry),
	}
}

// GetFlag returns the effective flag for key, or nil for an unknown key
// with no stored override.
func (s *Service) GetFlag(ctx context.Context, key string) *Flag {
	if override, ok := s.cached(key); ok {
		return effective(key, override)
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		stored, err := s.repo.GetFlag(ctx, key)
		switch {
		case err == nil:
			override := markOverride(stored)
			s.remember(key, override)
			return override, nil
		case errors.Is(err, ErrFlagNotFound):
			s.remember(key, nil)
			return (*Flag)(nil), nil
		default:
			return nil, err
		}
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("flag", key).Msg("flag store unavailable, using default")
		return effective(key, nil)
	}
	return effective(key, v.(*Flag))
}

// GetAllFlags returns every known flag merged with the stored overrides,
// keyed by flag key. Store failures yield the defaults.
func (s *Service) GetAllFlags(ctx context.Context) map[string]*Flag {
	result := DefaultFlags()

	stored, err := s.repo.GetAllFlags(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("flag store unavailable, using defaults")
		return result
	}

	s.mu.Lock()
	expires := s.now().Add(s.ttl)
	for key := range result {
		s.entries[key] = cacheEntry{expires: expires}
	}
	for key, flag := range stored {
		override := markOverride(flag)
		s.entries[key] = cacheEntry{override: override, expires: expires}
		result[key] = override
	}
	s.mu.Unlock()

	return result
}

// SetFlag stores an override for one flag.
func (s *Service) SetFlag(ctx context.Context, flag *Flag) error {
	return s.SetFlags(ctx, []*Flag{flag})
}

// SetFlags stores overrides for several flags in one write.
func (s *Service) SetFlags(ctx context.Context, flags []*Flag) error {
	now := s.now()
	for _, flag := range flags {
		flag.UpdatedAt = now
	}
	if err := s.repo.SetFlags(ctx, flags); err != nil {
		return err
	}

	for _, flag := range flags {
		s.remember(flag.Key, markOverride(flag))
	}
	return nil
}

// InvalidateCache drops every cached read so the next lookup hits the store.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	s.entries = make(map[string]cacheEntry)
	s.mu.Unlock()
}

// IsEnabled reports whether a boolean flag is on. Unknown flags are off.
func (s *Service) IsEnabled(ctx context.Context, key string) bool {
	return s.GetFlag(ctx, key).BoolValue(false)
}

func (s *Service) cached(key string) (*Flag, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[key]
	if !ok || !s.now().Before(e.expires) {
		return nil, false
	}
	return e.override, true
}

func (s *Service) remember(key string, override *Flag) {
	s.mu.Lock()
	s.entries[key] = cacheEntry{override: override, expires: s.now().Add(s.ttl)}
	s.mu.Unlock()
}

func (s *Service) forget(key string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
}

// markOverride copies a stored flag, annotating it with its definition.
func markOverride(stored *Flag) *Flag {
	out := *stored
	out.Overridden = true
	if d, ok := Lookup(stored.Key); ok {
		out.Description = d.Description
	}
	return &out
}

func effective(key string, override *Flag) *Flag {
	if override != nil {
		return override
	}
	if d, ok := Lookup(key); ok {
		return d.flag()
	}
	return nil
}

// RecommendationsDisabled returns true if trail recommendations are switched off.
func (s *Service) RecommendationsDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableRecommendations)
}

// RecommendationsCachedOnly returns true if recommendations must come from cache.
func (s *Service) RecommendationsCachedOnly(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagRecommendationsCachedOnly)
}

// TrailStatusReadOnly returns true if save and completion changes are rejected.
func (s *Service) TrailStatusReadOnly(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagTrailStatusReadOnly)
}

// SocialPostingDisabled returns true if new posts and comments are rejected.
func (s *Service) SocialPostingDisabled(ctx context.Context) bool {
	return s.IsEnabled(ctx, FlagDisableSocialPosting)
}

// RecommendationLimit returns the maximum number of trails per search.
func (s *Service) RecommendationLimit(ctx context.Context) int {
	return s.GetFlag(ctx, FlagRecommendationLimit).IntValue(DefaultRecommendationLimit)
}
