package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Logger returns a middleware that logs one line per HTTP request. Server
// errors log at error level, client errors at warn, and ops probes at debug.
func Logger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := newStatusRecorder(w)
			entry := &requestLog{}

			next.ServeHTTP(rec, r.WithContext(context.WithValue(r.Context(), requestLogKey{}, entry)))

			spanCtx := trace.SpanContextFromContext(r.Context())
			traceID, spanID := "", ""
			if spanCtx.IsValid() {
				traceID = spanCtx.TraceID().String()
				spanID = spanCtx.SpanID().String()
			}

			event := levelFor(log, rec.status, r.URL.Path)
			userID := entry.userID
			if userID == "" {
				userID = GetUserID(r.Context())
			}
			if userID != "" {
				event = event.Str("user_id", userID)
			}

			event.
				Str("request_id", GetRequestID(r.Context())).
				Str("trace_id", traceID).
				Str("span_id", spanID).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("route", routePattern(r)).
				Int("status", rec.status).
				Int64("bytes", rec.written).
				Dur("duration", time.Since(start)).
				Str("remote_addr", r.RemoteAddr).
				Str("user_agent", r.UserAgent()).
				Msg("request completed")
		})
	}
}

func levelFor(log zerolog.Logger, status int, path string) *zerolog.Event {
	switch {
	case status >= 500:
		return log.Error()
	case status >= 400:
		return log.Warn()
	case strings.HasPrefix(path, "/v1/ops/"):
		return log.Debug()
	default:
		return log.Info()
	}
}

type requestLogKey struct{}

// requestLog lets middleware further down the chain attach fields to the
// request line written by Logger.
type requestLog struct {
	userID string
}

func annotateUser(ctx context.Context, userID string) {
	if entry, ok := ctx.Value(requestLogKey{}).(*requestLog); ok {
		entry.userID = userID
	}
}
