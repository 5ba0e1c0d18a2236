package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/models"
)

// Recovery returns a middleware that recovers from panics and returns a 500
// problem. If the handler already started the response, the body is left as
// is and only the log line is written.
func Recovery(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rec := newStatusRecorder(w)

			defer func() {
				err := recover()
				if err == nil {
					return
				}
				if err == http.ErrAbortHandler {
					panic(err)
				}

				requestID := GetRequestID(r.Context())
				log.Error().
					Str("request_id", requestID).
					Str("method", r.Method).
					Str("route", routePattern(r)).
					Interface("error", err).
					Str("stack", string(debug.Stack())).
					Msg("panic recovered")

				if rec.wroteHeader {
					return
				}
				models.NewProblem(models.ProblemTypeInternal, requestID, "an unexpected error occurred").Write(rec, r)
			}()

			next.ServeHTTP(rec, r)
		})
	}
}
