package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/recommendation"
	"github.com/trailhub/trailhub/internal/recommendation/upstream"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

// Retry-After hints for degraded recommendation responses.
const (
	recommendationsDisabledRetry    = 5 * time.Minute
	recommendationsUnavailableRetry = 30 * time.Second
)

// TrailsHandler handles trail search and per-trail status endpoints.
type TrailsHandler struct {
	recommendations *recommendation.Service
	normalizer      *trail.Normalizer
	status          *trailstatus.Service
	logger          zerolog.Logger
}

// NewTrailsHandler creates a new TrailsHandler.
func NewTrailsHandler(recommendations *recommendation.Service, normalizer *trail.Normalizer, status *trailstatus.Service, logger zerolog.Logger) *TrailsHandler {
	return &TrailsHandler{
		recommendations: recommendations,
		normalizer:      normalizer,
		status:          status,
		logger:          logger,
	}
}

// Recommendations handles GET /v1/trails/recommendations - normalized trails near a location.
func (h *TrailsHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	limit, fieldErr := parseLimit(r, "limit")
	if fieldErr != nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{*fieldErr})
		return
	}

	result, err := h.recommendations.Search(r.Context(), recommendation.Query{
		Location: r.URL.Query().Get("location"),
		Limit:    limit,
	})
	if err != nil {
		var validationErr *recommendation.ValidationError
		switch {
		case errors.As(err, &validationErr):
			response.BadRequest(w, r, "validation failed", validationErr.Errors)
		case errors.Is(err, recommendation.ErrRecommendationsDisabled):
			response.ServiceUnavailable(w, r, "trail recommendations are temporarily disabled", recommendationsDisabledRetry)
		case errors.Is(err, recommendation.ErrNoCachedData):
			response.ServiceUnavailable(w, r, "no cached recommendations for this location", recommendationsUnavailableRetry)
		case errors.Is(err, recommendation.ErrProviderUnavailable):
			response.ServiceUnavailable(w, r, "trail recommendations are temporarily unavailable", recommendationsUnavailableRetry)
		default:
			h.logger.Error().Err(err).Msg("recommendation search failed")
			response.InternalError(w, r, "internal server error")
		}
		return
	}

	w.Header().Set("X-Recommendation-Source", string(result.Source))
	response.JSON(w, r, http.StatusOK, models.TrailRecommendations{
		Items:     toAPISummaries(result.Trails),
		Stale:     result.Stale,
		FetchedAt: models.Timestamp(result.FetchedAt),
	})
}

// Normalize handles POST /v1/trails/normalize - normalize a raw recommendation payload.
// Unusable payloads yield an empty list rather than an error.
func (h *TrailsHandler) Normalize(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, upstream.MaxResponseBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.BadRequest(w, r, "request body too large", nil)
			return
		}
		response.BadRequest(w, r, "unable to read request body", nil)
		return
	}

	response.JSON(w, r, http.StatusOK, models.TrailList{
		Items: toAPISummaries(h.normalizer.TransformResponse(body)),
	})
}

// GetStatus handles GET /v1/trails/{trailId}/status - saved and completed
// state for the caller. Anonymous callers get both false.
func (h *TrailsHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	trailID := chi.URLParam(r, "trailId")

	status, err := h.status.CheckStatus(r.Context(), trailID, GetUserID(r.Context()))
	if err != nil {
		h.logger.Error().Err(err).Str("trail_id", trailID).Msg("trail status check failed")
		response.InternalError(w, r, "internal server error")
		return
	}

	id, ok := trail.CanonicalID(trailID)
	if !ok {
		id = strings.TrimSpace(trailID)
	}
	response.JSON(w, r, http.StatusOK, models.TrailStatus{
		TrailID:     id,
		IsSaved:     status.IsSaved,
		IsCompleted: status.IsCompleted,
	})
}

func toAPISummaries(items []trail.Summary) []models.TrailSummary {
	out := make([]models.TrailSummary, 0, len(items))
	for _, s := range items {
		out = append(out, models.TrailSummary{
			ID:         s.ID,
			Name:       s.Name,
			Image:      s.Image,
			Difficulty: string(s.Difficulty),
			Rating:     s.Rating,
			Distance:   s.Distance,
			Time:       s.Time,
			Status:     string(s.Status),
			Alert:      s.Alert,
		})
	}
	return out
}

func toAPISnapshot(s trail.Snapshot) models.TrailSnapshot {
	return models.TrailSnapshot{
		Name:       s.Name,
		Image:      s.Image,
		Difficulty: string(s.Difficulty),
		Rating:     s.Rating,
		Distance:   s.Distance,
		Time:       s.Time,
	}
}

func fromAPISnapshot(s models.TrailSnapshot) trail.Snapshot {
	return trail.Snapshot{
		Name:       s.Name,
		Image:      s.Image,
		Difficulty: trail.Difficulty(s.Difficulty),
		Rating:     s.Rating,
		Distance:   s.Distance,
		Time:       s.Time,
	}
}
