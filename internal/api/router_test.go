package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/api"
	"github.com/trailhub/trailhub/internal/api/handler"
	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/auth"
	"github.com/trailhub/trailhub/internal/featureflags"
	"github.com/trailhub/trailhub/internal/profile"
	"github.com/trailhub/trailhub/internal/provider/resilience"
	"github.com/trailhub/trailhub/internal/recommendation"
	"github.com/trailhub/trailhub/internal/social"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

const (
	testUserID  = "5f0c1d2e-3a4b-4c5d-8e6f-7a8b9c0d1e2f"
	adminUserID = "9a8b7c6d-5e4f-4a3b-9c2d-1e0f9a8b7c6d"
	testEmail   = "hiker@example.com"
	testSecret  = "test-secret-key-for-testing-only"
)

var threeTrails = []byte(`[["Eagle Peak",10,0.95,8],["Bear Lake",8.5,0.87,3.2],["Moss Loop",5,0.5,12.5]]`)

type stubProvider struct {
	mu      sync.Mutex
	payload []byte
	err     error
}

func (p *stubProvider) Fetch(_ context.Context, _ recommendation.Query) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.payload, p.err
}

func (p *stubProvider) Name() string { return "stub" }

type fixture struct {
	router   http.Handler
	verifier *auth.Verifier
	flags    *featureflags.Service
	provider *stubProvider
	ready    error
}

// stores lets a test swap in its own repositories.
type stores struct {
	status   trailstatus.Repository
	profiles profile.Repository
}

func newFixture(t *testing.T, opts ...func(*stores)) *fixture {
	t.Helper()
	logger := zerolog.New(io.Discard)

	st := stores{
		status:   trailstatus.NewInMemoryRepository(),
		profiles: profile.NewInMemoryRepository(),
	}
	for _, opt := range opts {
		opt(&st)
	}

	verifier, err := auth.NewVerifier(auth.Config{Secret: testSecret})
	require.NoError(t, err)

	flags := featureflags.NewService(featureflags.ServiceConfig{
		Repository: featureflags.NewInMemoryRepository(),
		Logger:     logger,
	})
	normalizer := trail.NewNormalizer(trail.DefaultConfig(), logger)
	provider := &stubProvider{payload: threeTrails}
	profiles := profile.NewService(st.profiles)

	registry := resilience.NewRegistry()
	cfg := resilience.DefaultClientConfig("recommendation-service")
	cfg.Registry = registry
	resilience.NewClient(cfg)

	f := &fixture{verifier: verifier, flags: flags, provider: provider}
	f.router = api.NewRouter(api.RouterConfig{
		Version:      "test",
		BuildTime:    "2026-01-01T00:00:00Z",
		Logger:       logger,
		Verifier:     verifier,
		AdminUserIDs: []string{adminUserID},
		Recommendations: recommendation.NewService(recommendation.ServiceConfig{
			Provider:   provider,
			Normalizer: normalizer,
			Flags:      flags,
			Logger:     logger,
		}),
		Normalizer: normalizer,
		TrailStatus: trailstatus.NewService(trailstatus.ServiceConfig{
			Repository: st.status,
			Flags:      flags,
			Logger:     logger,
		}),
		Profiles: profiles,
		Social: social.NewService(social.ServiceConfig{
			Repository: social.NewInMemoryRepository(),
			Profiles:   profiles,
			Flags:      flags,
			Logger:     logger,
		}),
		FeatureFlagService: flags,
		Registry:           registry,
		Checks: map[string]handler.CheckFunc{
			"store": func(context.Context) error { return f.ready },
		},
	})
	return f
}

func (f *fixture) token(t *testing.T, userID string) string {
	t.Helper()
	token, _, err := f.verifier.Issue(userID, testEmail, 0)
	require.NoError(t, err)
	return token
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}, userID string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader = http.NoBody
	switch b := body.(type) {
	case nil:
	case []byte:
		reader = bytes.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+f.token(t, userID))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) setFlag(t *testing.T, key string, value interface{}) {
	t.Helper()
	require.NoError(t, f.flags.SetFlag(context.Background(), &featureflags.Flag{Key: key, Value: value}))
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func validSnapshot() models.TrailSnapshot {
	return models.TrailSnapshot{
		Name:       "Eagle Peak",
		Image:      "https://images.unsplash.com/photo-1",
		Difficulty: "easy",
		Rating:     4.8,
		Distance:   8,
		Time:       "2h 0m",
	}
}

func TestRouter_HealthCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/ops/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Version)
	assert.Equal(t, "2026-01-01T00:00:00Z", health.BuildTime)
}

func TestRouter_ReadinessCheck(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/ops/ready", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	f.ready = errors.New("connection refused")
	rec = f.do(t, http.MethodGet, "/v1/ops/ready", nil, "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	health := decode[models.Health](t, rec)
	assert.Equal(t, models.HealthStatusFail, health.Status)
	assert.Equal(t, map[string]models.HealthStatus{"store": models.HealthStatusFail}, health.Checks)
}

func TestRouter_SystemStatus(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/ops/status", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.setFlag(t, featureflags.FlagRecommendationsCachedOnly, true)
	rec = f.do(t, http.MethodGet, "/v1/ops/status", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)

	status := decode[models.SystemStatus](t, rec)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.Len(t, status.Subsystems, 1)
	assert.Equal(t, "store", status.Subsystems[0].Name)
	require.Len(t, status.Providers, 1)
	assert.Equal(t, "recommendation-service", status.Providers[0].Provider)
	assert.Equal(t, "closed", status.Providers[0].Circuit)
	assert.Equal(t, "test", status.Version)
	assert.Equal(t, []string{featureflags.FlagRecommendationsCachedOnly}, status.ActiveDegradationFlags)
}

func TestRouter_Recommendations(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/trails/recommendations?location=Boulder,%20CO", nil, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "provider", rec.Header().Get("X-Recommendation-Source"))

	result := decode[models.TrailRecommendations](t, rec)
	require.Len(t, result.Items, 3)
	assert.False(t, result.Stale)
	assert.Equal(t, "Eagle Peak", result.Items[0].Name)
	assert.Equal(t, "easy", result.Items[0].Difficulty)
	assert.Equal(t, "open", result.Items[0].Status)
	assert.Nil(t, result.Items[0].Alert)
	assert.True(t, trail.IsCanonicalID(result.Items[0].ID))

	rec = f.do(t, http.MethodGet, "/v1/trails/recommendations?location=boulder,%20%20co", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cache", rec.Header().Get("X-Recommendation-Source"))

	rec = f.do(t, http.MethodGet, "/v1/trails/recommendations?location=Boulder,%20CO&limit=1", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[models.TrailRecommendations](t, rec).Items, 1)
}

func TestRouter_Recommendations_Validation(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		field string
	}{
		{"missing location", "", "location"},
		{"blank location", "?location=%20%20", "location"},
		{"bad limit", "?location=Boulder&limit=abc", "limit"},
		{"negative limit", "?location=Boulder&limit=-2", "limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/v1/trails/recommendations"+tt.query, nil, "")
			require.Equal(t, http.StatusBadRequest, rec.Code)
			problem := decode[models.Problem](t, rec)
			require.NotEmpty(t, problem.Errors)
			assert.Equal(t, tt.field, problem.Errors[0].Field)
		})
	}
}

func TestRouter_Recommendations_Degraded(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := newFixture(t)
		f.setFlag(t, featureflags.FlagDisableRecommendations, true)

		rec := f.do(t, http.MethodGet, "/v1/trails/recommendations?location=Boulder", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "300", rec.Header().Get("Retry-After"))
	})

	t.Run("provider down without cache", func(t *testing.T) {
		f := newFixture(t)
		f.provider.err = errors.New("connection reset")

		rec := f.do(t, http.MethodGet, "/v1/trails/recommendations?location=Boulder", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	})

	t.Run("cached only without cache", func(t *testing.T) {
		f := newFixture(t)
		f.setFlag(t, featureflags.FlagRecommendationsCachedOnly, true)

		rec := f.do(t, http.MethodGet, "/v1/trails/recommendations?location=Boulder", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRouter_Normalize(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/trails/normalize", threeTrails, "")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.TrailList](t, rec)
	require.Len(t, list.Items, 3)
	assert.Equal(t, "warning", list.Items[1].Status)
	require.NotNil(t, list.Items[1].Alert)
	assert.Equal(t, "Weather conditions: Excellent", *list.Items[1].Alert)

	for _, body := range []string{`null`, `{"unexpected":true}`, `not json`} {
		rec = f.do(t, http.MethodPost, "/v1/trails/normalize", []byte(body), "")
		require.Equal(t, http.StatusOK, rec.Code, body)
		list = decode[models.TrailList](t, rec)
		assert.NotNil(t, list.Items, body)
		assert.Empty(t, list.Items, body)
	}
}

func TestRouter_RejectsNonJSONBody(t *testing.T) {
	f := newFixture(t)

	req := httptest.NewRequest(http.MethodPost, "/v1/trails/normalize", strings.NewReader("a,b"))
	req.Header.Set("Content-Type", "text/csv")
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
}

func TestRouter_TrailStatus(t *testing.T) {
	f := newFixture(t)
	trailID := trail.NameID("Eagle Peak")

	rec := f.do(t, http.MethodGet, "/v1/trails/"+trailID+"/status", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[models.TrailStatus](t, rec)
	assert.False(t, status.IsSaved)
	assert.False(t, status.IsCompleted)

	rec = f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trailID, validSnapshot(), testUserID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/trails/"+strings.ToUpper(trailID)+"/status", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[models.TrailStatus](t, rec)
	assert.Equal(t, trailID, status.TrailID)
	assert.True(t, status.IsSaved)
	assert.False(t, status.IsCompleted)

	rec = f.do(t, http.MethodGet, "/v1/trails/not-a-uuid/status", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	status = decode[models.TrailStatus](t, rec)
	assert.False(t, status.IsSaved)
}

func TestRouter_SavedTrails(t *testing.T) {
	f := newFixture(t)
	trailID := trail.NameID("Eagle Peak")
	path := "/v1/me/saved-trails/" + trailID

	rec := f.do(t, http.MethodPut, path, validSnapshot(), "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPut, path, validSnapshot(), testUserID)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, path, rec.Header().Get("Location"))
	assert.False(t, decode[models.SaveTrailResult](t, rec).AlreadySaved)

	rec = f.do(t, http.MethodPut, path, validSnapshot(), testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[models.SaveTrailResult](t, rec).AlreadySaved)

	rec = f.do(t, http.MethodGet, "/v1/me/saved-trails", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.SavedTrailList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, trailID, list.Items[0].TrailID)
	assert.Equal(t, "Eagle Peak", list.Items[0].Trail.Name)

	rec = f.do(t, http.MethodDelete, path, nil, testUserID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodDelete, path, nil, testUserID)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/me/saved-trails", nil, testUserID)
	assert.Empty(t, decode[models.SavedTrailList](t, rec).Items)
}

func TestRouter_SavedTrails_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/me/saved-trails/eagle-peak", validSnapshot(), testUserID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem := decode[models.Problem](t, rec)
	assert.Equal(t, models.ProblemTypeInvalidTrailID, problem.Type)

	bad := validSnapshot()
	bad.Name = " "
	rec = f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trail.NameID("x"), bad, testUserID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	problem = decode[models.Problem](t, rec)
	require.NotEmpty(t, problem.Errors)
	assert.Equal(t, "trail.name", problem.Errors[0].Field)

	rec = f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trail.NameID("x"), []byte(`{"name":`), testUserID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.setFlag(t, featureflags.FlagTrailStatusReadOnly, true)
	rec = f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trail.NameID("x"), validSnapshot(), testUserID)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_CompletedTrails(t *testing.T) {
	f := newFixture(t)
	trailID := trail.NameID("Eagle Peak")
	path := "/v1/me/completed-trails/" + trailID

	body := models.CompleteTrailRequest{
		Rating:           5,
		ReviewText:       "  Great views  ",
		DifficultyRating: "moderate",
		DurationMinutes:  135,
		Trail:            validSnapshot(),
	}

	rec := f.do(t, http.MethodPut, path, body, testUserID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	status := decode[models.TrailStatus](t, rec)
	assert.True(t, status.IsCompleted)
	assert.False(t, status.IsSaved)

	rec = f.do(t, http.MethodPut, path, body, testUserID)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, models.ProblemTypeAlreadyCompleted, decode[models.Problem](t, rec).Type)

	rec = f.do(t, http.MethodGet, "/v1/me/completed-trails", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[models.CompletedTrailList](t, rec)
	require.Len(t, list.Items, 1)
	assert.Equal(t, 5, list.Items[0].Rating)
	assert.Equal(t, "Great views", list.Items[0].ReviewText)
	assert.Equal(t, "moderate", list.Items[0].DifficultyRating)

	invalid := body
	invalid.Rating = 9
	rec = f.do(t, http.MethodPut, "/v1/me/completed-trails/"+trail.NameID("Bear Lake"), invalid, testUserID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "rating", decode[models.Problem](t, rec).Errors[0].Field)

	rec = f.do(t, http.MethodDelete, path, nil, testUserID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = f.do(t, http.MethodPut, path, body, testUserID)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRouter_TrailLogExport(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trail.NameID("Eagle Peak"), validSnapshot(), testUserID)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/me/trail-log.csv", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "trail-log.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "kind,trail_id,trail_name"))
	assert.Contains(t, lines[1], "Eagle Peak")
}

func TestRouter_Me(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/me", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[models.Me](t, rec)
	assert.Equal(t, testUserID, me.UserID)
	assert.Equal(t, testEmail, me.Email)
	assert.Equal(t, testEmail, me.Profile.DisplayName)
	assert.Zero(t, me.SavedCount)

	rec = f.do(t, http.MethodPut, "/v1/me/saved-trails/"+trail.NameID("Eagle Peak"), validSnapshot(), testUserID)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/me", nil, testUserID)
	assert.Equal(t, 1, decode[models.Me](t, rec).SavedCount)
}

type brokenStatusRepo struct {
	*trailstatus.InMemoryRepository
}

func (brokenStatusRepo) ListSaved(context.Context, string) ([]*trailstatus.SavedTrail, error) {
	return nil, errors.New("connection reset")
}

type brokenProfileRepo struct {
	*profile.InMemoryRepository
}

func (brokenProfileRepo) Get(context.Context, string) (*profile.Profile, error) {
	return nil, errors.New("connection reset")
}

func TestRouter_Me_DegradesFailedReads(t *testing.T) {
	status := trailstatus.NewInMemoryRepository()
	f := newFixture(t, func(st *stores) {
		st.status = brokenStatusRepo{status}
		st.profiles = brokenProfileRepo{profile.NewInMemoryRepository()}
	})

	rec := f.do(t, http.MethodPut, "/v1/me/completed-trails/"+trail.NameID("Eagle Peak"), models.CompleteTrailRequest{
		Rating: 5,
		Trail:  validSnapshot(),
	}, testUserID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = f.do(t, http.MethodGet, "/v1/me", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	me := decode[models.Me](t, rec)
	assert.Equal(t, testUserID, me.UserID)
	assert.Equal(t, testUserID, me.Profile.UserID)
	assert.Equal(t, testEmail, me.Profile.DisplayName)
	assert.Zero(t, me.SavedCount)
	assert.Equal(t, 1, me.CompletedCount)
}

func TestRouter_Profile(t *testing.T) {
	f := newFixture(t)

	username := "trail_runner"
	rec := f.do(t, http.MethodPut, "/v1/me/profile", models.ProfileInput{Username: &username}, testUserID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, username, decode[models.Profile](t, rec).DisplayName)

	rec = f.do(t, http.MethodGet, "/v1/me/profile", nil, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decode[models.Profile](t, rec)
	require.NotNil(t, p.Username)
	assert.Equal(t, username, *p.Username)

	invalid := "no spaces allowed"
	rec = f.do(t, http.MethodPut, "/v1/me/profile", models.ProfileInput{Username: &invalid}, testUserID)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "username", decode[models.Problem](t, rec).Errors[0].Field)
}

func TestRouter_Social(t *testing.T) {
	f := newFixture(t)

	username := "birder"
	rec := f.do(t, http.MethodPut, "/v1/me/profile", models.ProfileInput{Username: &username}, testUserID)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/social/posts", models.CreatePostRequest{
		Type:     "species",
		ImageURL: "https://cdn.example.com/heron.jpg",
		Caption:  "Spotted at the lake",
		Predictions: []models.SpeciesPrediction{
			{Label: "Great Egret", Score: 0.21},
			{Label: "Great Blue Heron", Score: 0.74},
		},
	}, testUserID)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode[models.Post](t, rec)
	require.NotNil(t, post.Species)
	assert.Equal(t, "Great Blue Heron", post.Species.Label)

	likePath := "/v1/social/posts/" + post.ID + "/like"
	rec = f.do(t, http.MethodPut, likePath, nil, adminUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[models.LikeResult](t, rec).LikeCount)
	rec = f.do(t, http.MethodPut, likePath, nil, adminUserID)
	assert.Equal(t, 1, decode[models.LikeResult](t, rec).LikeCount)

	rec = f.do(t, http.MethodPost, "/v1/social/posts/"+post.ID+"/comments",
		models.CreateCommentRequest{Content: "  Beautiful!  "}, adminUserID)
	require.Equal(t, http.StatusCreated, rec.Code)
	comment := decode[models.Comment](t, rec)
	assert.Equal(t, "Beautiful!", comment.Content)
	assert.Equal(t, profile.UnknownUser, comment.Author.Username)

	rec = f.do(t, http.MethodGet, "/v1/social/feed", nil, adminUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[models.Feed](t, rec)
	require.Len(t, feed.Items, 1)
	assert.Equal(t, "birder", feed.Items[0].Author.Username)
	assert.Equal(t, 1, feed.Items[0].LikeCount)
	assert.True(t, feed.Items[0].LikedByMe)
	assert.Len(t, feed.Items[0].Comments, 1)

	rec = f.do(t, http.MethodGet, "/v1/social/feed", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Feed](t, rec).Items[0].LikedByMe)

	rec = f.do(t, http.MethodDelete, likePath, nil, adminUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Zero(t, decode[models.LikeResult](t, rec).LikeCount)
}

func TestRouter_Social_Errors(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/social/posts", models.CreatePostRequest{ImageURL: "https://cdn.example.com/a.jpg"}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/social/posts", models.CreatePostRequest{}, testUserID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/social/posts/missing/like", nil, testUserID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPut, "/v1/social/posts/"+trail.NameID("nothing")+"/like", nil, testUserID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	f.setFlag(t, featureflags.FlagDisableSocialPosting, true)
	rec = f.do(t, http.MethodPost, "/v1/social/posts", models.CreatePostRequest{ImageURL: "https://cdn.example.com/a.jpg"}, testUserID)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_AdminFeatureFlags(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/admin/feature-flags", nil, testUserID)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/admin/feature-flags", nil, adminUserID)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[featureflags.FlagList](t, rec)
	assert.Len(t, list.Items, len(featureflags.DefaultFlags()))

	rec = f.do(t, http.MethodPut, "/v1/admin/feature-flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagTrailStatusReadOnly, Value: true}},
		Reason:  "database maintenance",
	}, adminUserID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, f.flags.TrailStatusReadOnly(context.Background()))

	rec = f.do(t, http.MethodPut, "/v1/admin/feature-flags", featureflags.FlagUpdateRequest{
		Updates: []featureflags.FlagUpdate{{Key: featureflags.FlagRecommendationLimit, Value: 1000}},
		Reason:  "too many",
	}, adminUserID)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodDelete, "/v1/admin/feature-flags/"+featureflags.FlagTrailStatusReadOnly, nil, adminUserID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.False(t, f.flags.TrailStatusReadOnly(context.Background()))

	rec = f.do(t, http.MethodDelete, "/v1/admin/feature-flags/unknown_flag", nil, adminUserID)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/admin/feature-flags/invalidate", nil, adminUserID)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
