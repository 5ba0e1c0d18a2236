package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/auth"
)

const testUserID = "0b6f3c1e-7a52-4b8e-9d1f-2c3a4b5c6d7e"

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(createTestVerifier(t))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.Auth(createTestVerifier(t))(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase no space", "bearertoken123"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := middleware.Auth(createTestVerifier(t))(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestAuth_ValidToken(t *testing.T) {
	verifier := createTestVerifier(t)
	token, _, err := verifier.Issue(testUserID, "hiker@example.com", time.Hour)
	require.NoError(t, err)

	var captured *auth.Identity
	handler := middleware.Auth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = middleware.GetIdentity(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, captured)
	assert.Equal(t, testUserID, captured.UserID)
	assert.Equal(t, "hiker@example.com", captured.Email)
}

func TestAuth_CaseInsensitiveBearer(t *testing.T) {
	verifier := createTestVerifier(t)
	token, _, err := verifier.Issue(testUserID, "", time.Hour)
	require.NoError(t, err)

	handler := middleware.Auth(verifier)(okHandler())

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	verifier := createTestVerifier(t)
	token, _, err := verifier.Issue(testUserID, "", time.Hour)
	require.NoError(t, err)

	var userID string
	handler := middleware.OptionalAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous", func(t *testing.T) {
		userID = "unset"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/test", http.NoBody))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, userID)
	})

	t.Run("authenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, testUserID, userID)
	})

	t.Run("bad token rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
		req.Header.Set("Authorization", "Bearer nope")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestGetUserID_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))
	assert.Nil(t, middleware.GetIdentity(req.Context()))
}

// createTestVerifier creates a token verifier for testing.
func createTestVerifier(t *testing.T) *auth.Verifier {
	t.Helper()

	verifier, err := auth.NewVerifier(auth.Config{
		Secret: "test-secret-key-for-testing-only",
		Issuer: "https://auth.trailhub.app/auth/v1",
	})
	require.NoError(t, err)
	return verifier
}
