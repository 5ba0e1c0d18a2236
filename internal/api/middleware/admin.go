package middleware

import (
	"net/http"

	"github.com/trailhub/trailhub/internal/api/models"
)

// RequireAdmin allows only the listed user IDs through. It must run after
// Auth. An empty list denies everyone.
func RequireAdmin(adminIDs []string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(adminIDs))
	for _, id := range adminIDs {
		if id != "" {
			allowed[id] = true
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := GetUserID(r.Context())
			if userID == "" {
				writeUnauthorized(w, r, "user not authenticated")
				return
			}
			if !allowed[userID] {
				writeProblem(w, r, models.ProblemTypeForbidden, "administrator access required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
