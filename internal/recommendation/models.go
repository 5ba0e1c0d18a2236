// Package recommendation serves trail recommendations from the external
// ranking service, normalized into trail summaries and cached per location.
package recommendation

import (
	"context"
	"errors"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/trail"
)

// Service errors.
var (
	// ErrRecommendationsDisabled is returned while the disable_recommendations
	// flag is on.
	ErrRecommendationsDisabled = errors.New("trail recommendations are disabled")

	// ErrNoCachedData is returned in cached-only mode when nothing is cached
	// for the query.
	ErrNoCachedData = errors.New("no cached recommendations for location")

	// ErrProviderUnavailable wraps upstream failures that could not be
	// covered by a stale cache entry.
	ErrProviderUnavailable = errors.New("recommendation provider unavailable")
)

// Query validation limits.
const (
	MaxLocationLength = 200
	DefaultLimit      = 20
)

// Query identifies one recommendation search.
type Query struct {
	Location string
	Limit    int
}

// Source reports where a Result came from.
type Source string

const (
	SourceProvider Source = "provider"
	SourceCache    Source = "cache"
	SourceStale    Source = "stale"
)

// Result is a normalized recommendation list.
type Result struct {
	Trails    []trail.Summary
	Stale     bool
	FetchedAt time.Time
	Source    Source
}

// Provider fetches the raw ranking payload for a query.
type Provider interface {
	Fetch(ctx context.Context, q Query) ([]byte, error)

	// Name returns the provider name for logging and health.
	Name() string
}

// FlagSource exposes the runtime switches the service honours.
type FlagSource interface {
	RecommendationsDisabled(ctx context.Context) bool
	RecommendationsCachedOnly(ctx context.Context) bool
	RecommendationLimit(ctx context.Context) int
}

// Metrics receives provider and cache outcomes.
type Metrics interface {
	RecordRequest(ctx context.Context, operation string, duration time.Duration, err error)
	RecordCacheHit(ctx context.Context, operation string)
	RecordCacheMiss(ctx context.Context, operation string)
	RecordStaleServed(ctx context.Context, operation string)
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
