package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/auth"
)

// identityKey is the context key for the authenticated caller.
type identityKey struct{}

// TokenVerifier validates bearer tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Auth creates authentication middleware that requires a valid bearer token.
func Auth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, detail := bearerToken(r)
			if detail != "" {
				writeUnauthorized(w, r, detail)
				return
			}

			identity, err := verifier.Verify(tokenString)
			if err != nil {
				writeUnauthorized(w, r, authFailureDetail(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches the caller identity when a valid bearer token is
// present and lets anonymous requests through. A token that is present but
// invalid is still rejected.
func OptionalAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") == "" {
				next.ServeHTTP(w, r)
				return
			}

			tokenString, detail := bearerToken(r)
			if detail != "" {
				writeUnauthorized(w, r, detail)
				return
			}

			identity, err := verifier.Verify(tokenString)
			if err != nil {
				writeUnauthorized(w, r, authFailureDetail(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
		})
	}
}

// bearerToken extracts the token from the Authorization header. A non-empty
// detail describes why the header is unusable.
func bearerToken(r *http.Request) (string, string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "missing authorization header"
	}

	const bearerPrefix = "Bearer "
	if len(authHeader) < len(bearerPrefix) ||
		!strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return "", "invalid authorization header format"
	}

	tokenString := strings.TrimSpace(authHeader[len(bearerPrefix):])
	if tokenString == "" {
		return "", "missing bearer token"
	}
	return tokenString, ""
}

func authFailureDetail(err error) string {
	switch {
	case errors.Is(err, auth.ErrAccessTokenExpired):
		return "access token has expired"
	case errors.Is(err, auth.ErrInvalidAccessToken), errors.Is(err, auth.ErrMissingSubject),
		errors.Is(err, auth.ErrInvalidSubject):
		return "invalid access token"
	default:
		return "authentication failed"
	}
}

func writeUnauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	writeProblem(w, r, models.ProblemTypeUnauthorized, detail)
}

// writeProblem writes a problem response. The response package imports this
// one, so middleware writes problems directly.
func writeProblem(w http.ResponseWriter, r *http.Request, problemType, detail string) {
	models.NewProblem(problemType, GetRequestID(r.Context()), detail).Write(w, r)
}

// WithIdentity returns a context carrying the caller identity.
func WithIdentity(ctx context.Context, identity *auth.Identity) context.Context {
	if identity != nil {
		annotateUser(ctx, identity.UserID)
	}
	return context.WithValue(ctx, identityKey{}, identity)
}

// GetIdentity retrieves the authenticated caller from the context, or nil.
func GetIdentity(ctx context.Context) *auth.Identity {
	if id, ok := ctx.Value(identityKey{}).(*auth.Identity); ok {
		return id
	}
	return nil
}

// GetUserID retrieves the authenticated user ID from the context.
// Returns an empty string if not authenticated.
func GetUserID(ctx context.Context) string {
	if id := GetIdentity(ctx); id != nil {
		return id.UserID
	}
	return ""
}
