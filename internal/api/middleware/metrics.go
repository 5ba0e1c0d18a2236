package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/trailhub/trailhub/internal/api/middleware"

// Metrics records the HTTP server instruments.
type Metrics struct {
	duration metric.Float64Histogram
	total    metric.Int64Counter
	inFlight metric.Int64UpDownCounter
	size     metric.Int64Histogram
}

// NewMetrics creates the HTTP server instruments on the global meter.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	var m Metrics
	var errs [4]error

	m.duration, errs[0] = meter.Float64Histogram("http.server.request.duration",
		metric.WithDescription("Duration of HTTP server requests in seconds"), metric.WithUnit("s"))
	m.total, errs[1] = meter.Int64Counter("http.server.request.total",
		metric.WithDescription("Total number of HTTP server requests"), metric.WithUnit("{request}"))
	m.inFlight, errs[2] = meter.Int64UpDownCounter("http.server.requests_in_flight",
		metric.WithDescription("Number of HTTP requests currently being processed"), metric.WithUnit("{request}"))
	m.size, errs[3] = meter.Int64Histogram("http.server.response.size",
		metric.WithDescription("Size of HTTP server responses in bytes"), metric.WithUnit("By"))

	if err := errors.Join(errs[:]...); err != nil {
		return nil, err
	}
	return &m, nil
}

// Middleware returns an HTTP middleware that records metrics for each request.
// Routes are labelled by their chi pattern, never by the raw path.
func (m *Metrics) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			method := attribute.String("http.method", r.Method)
			m.inFlight.Add(r.Context(), 1, metric.WithAttributes(method))
			defer m.inFlight.Add(r.Context(), -1, metric.WithAttributes(method))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r)

			attrs := []attribute.KeyValue{
				method,
				attribute.String("http.route", routePattern(r)),
				attribute.String("http.status_code", strconv.Itoa(rec.status)),
			}
			if rec.status >= 400 {
				attrs = append(attrs, attribute.Bool("error", true))
			}

			set := metric.WithAttributes(attrs...)
			m.duration.Record(r.Context(), time.Since(start).Seconds(), set)
			m.total.Add(r.Context(), 1, set)
			m.size.Record(r.Context(), rec.written, set)
		})
	}
}
