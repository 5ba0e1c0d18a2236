package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/trailhub/trailhub/internal/api/middleware"
)

// echoRequestID serves one request and returns the ID seen by the handler
// and the response header.
func echoRequestID(inbound string) (seen, header string) {
	h := middleware.RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = middleware.GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	if inbound != "" {
		req.Header.Set("X-Request-Id", inbound)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return seen, w.Header().Get("X-Request-Id")
}

func TestRequestID_Generated(t *testing.T) {
	seen, header := echoRequestID("")

	assert.True(t, strings.HasPrefix(seen, "req_"), seen)
	assert.Equal(t, seen, header)
}

func TestRequestID_KeepsWellFormedInbound(t *testing.T) {
	seen, header := echoRequestID("upstream-lb-7f3a")

	assert.Equal(t, "upstream-lb-7f3a", seen)
	assert.Equal(t, "upstream-lb-7f3a", header)
}

func TestRequestID_ReplacesMalformedInbound(t *testing.T) {
	for name, id := range map[string]string{
		"too long":  strings.Repeat("a", 129),
		"space":     "abc def",
		"newline":   "abc\ninjected",
		"non ascii": "req_é",
	} {
		t.Run(name, func(t *testing.T) {
			seen, header := echoRequestID(id)
			assert.NotEqual(t, id, seen)
			assert.True(t, strings.HasPrefix(header, "req_"))
		})
	}
}

func TestRequestID_Unique(t *testing.T) {
	ids := make(map[string]struct{}, 100)
	for i := 0; i < 100; i++ {
		_, id := echoRequestID("")
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, 100)
}

func TestGetRequestID_Missing(t *testing.T) {
	assert.Empty(t, middleware.GetRequestID(httptest.NewRequest(http.MethodGet, "/", http.NoBody).Context()))
}
