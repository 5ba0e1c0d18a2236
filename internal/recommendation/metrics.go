package recommendation

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/trailhub/trailhub/internal/recommendation"

// OTelMetrics reports provider calls and cache outcomes through the global
// OpenTelemetry meter.
type OTelMetrics struct {
	provider attribute.KeyValue
	duration metric.Float64Histogram
	calls    metric.Int64Counter
	cache    metric.Int64Counter
}

// NewOTelMetrics creates the instruments for the named provider.
func NewOTelMetrics(providerName string) (*OTelMetrics, error) {
	meter := otel.Meter(meterName)
	m := OTelMetrics{provider: attribute.String("provider.name", providerName)}
	var errDuration, errCalls, errCache error

	m.duration, errDuration = meter.Float64Histogram("provider.request.duration",
		metric.WithDescription("Duration of provider requests in seconds"), metric.WithUnit("s"))
	m.calls, errCalls = meter.Int64Counter("provider.request.total",
		metric.WithDescription("Total number of provider requests"), metric.WithUnit("{request}"))
	m.cache, errCache = meter.Int64Counter("provider.cache.lookups",
		metric.WithDescription("Recommendation cache lookups by result: hit, miss or stale"), metric.WithUnit("{lookup}"))

	if err := errors.Join(errDuration, errCalls, errCache); err != nil {
		return nil, err
	}
	return &m, nil
}

// Samples are recorded on a context detached from cancellation so an
// aborted request still counts.

// RecordRequest records one provider call.
func (m *OTelMetrics) RecordRequest(ctx context.Context, operation string, duration time.Duration, err error) {
	set := metric.WithAttributes(m.provider, attribute.String("provider.operation", operation), attribute.Bool("error", err != nil))
	ctx = context.WithoutCancel(ctx)
	m.duration.Record(ctx, duration.Seconds(), set)
	m.calls.Add(ctx, 1, set)
}

// RecordCacheHit records a fresh cache hit.
func (m *OTelMetrics) RecordCacheHit(ctx context.Context, operation string) {
	m.lookup(ctx, operation, "hit")
}

// RecordCacheMiss records a cache miss.
func (m *OTelMetrics) RecordCacheMiss(ctx context.Context, operation string) {
	m.lookup(ctx, operation, "miss")
}

// RecordStaleServed records an expired entry served after a provider failure.
func (m *OTelMetrics) RecordStaleServed(ctx context.Context, operation string) {
	m.lookup(ctx, operation, "stale")
}

func (m *OTelMetrics) lookup(ctx context.Context, operation, result string) {
	m.cache.Add(context.WithoutCancel(ctx), 1, metric.WithAttributes(
		m.provider,
		attribute.String("provider.operation", operation),
		attribute.String("cache.result", result),
	))
}
