package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/auth"
)

// hit sends one request from ip, as userID when non-empty.
func hit(h http.Handler, path, ip, userID string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
	req.RemoteAddr = ip
	if userID != "" {
		req = req.WithContext(middleware.WithIdentity(req.Context(), &auth.Identity{UserID: userID}))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP(t *testing.T) {
	h := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, hit(h, "/v1/feed", "10.0.0.1:1234", "").Code, "request %d", i+1)
	}

	rec := hit(h, "/v1/feed", "10.0.0.1:1234", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusOK, hit(h, "/v1/feed", "10.0.0.2:1234", "").Code, "other addresses keep their budget")
}

func TestRateLimitByUser(t *testing.T) {
	h := middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "/v1/me/saved-trails", "192.168.1.1:1", "user-1").Code)
	assert.Equal(t, http.StatusOK, hit(h, "/v1/me/saved-trails", "192.168.1.2:1", "user-1").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/v1/me/saved-trails", "192.168.1.3:1", "user-1").Code,
		"one user shares a budget across addresses")
	assert.Equal(t, http.StatusOK, hit(h, "/v1/me/saved-trails", "192.168.1.1:1", "user-2").Code)
}

func TestRateLimitByUser_AnonymousUsesIP(t *testing.T) {
	h := middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, hit(h, "/v1/feed", "198.51.100.1:1", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, hit(h, "/v1/feed", "198.51.100.1:1", "").Code)
	assert.Equal(t, http.StatusOK, hit(h, "/v1/feed", "198.51.100.2:1", "").Code)
}

func TestRateLimit_ProblemResponse(t *testing.T) {
	h := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 90 * time.Second})(okHandler()),
	)

	hit(h, "/v1/trails", "203.0.113.1:1", "")
	rec := hit(h, "/v1/trails", "203.0.113.1:1", "")

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "90", rec.Header().Get("Retry-After"))
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "/problems/too-many-requests")
	assert.Contains(t, rec.Body.String(), `"instance":"/v1/trails"`)
	assert.Contains(t, rec.Body.String(), rec.Header().Get("X-Request-Id"))
}

func TestDefaultRateLimits(t *testing.T) {
	for _, tt := range []struct {
		cfg   middleware.RateLimitConfig
		limit int
	}{
		{middleware.SearchRateLimit, 20},
		{middleware.WriteRateLimit, 60},
		{middleware.StandardRateLimit, 100},
	} {
		assert.Equal(t, tt.limit, tt.cfg.RequestLimit)
		assert.Equal(t, time.Minute, tt.cfg.WindowLength)
	}
}
