package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/featureflags"
)

// FeatureFlagsHandler handles feature flag endpoints.
type FeatureFlagsHandler struct {
	service *featureflags.Service
	logger  zerolog.Logger
}

// NewFeatureFlagsHandler creates a new FeatureFlagsHandler.
func NewFeatureFlagsHandler(service *featureflags.Service, logger zerolog.Logger) *FeatureFlagsHandler {
	return &FeatureFlagsHandler{service: service, logger: logger}
}

// ListFeatureFlags handles GET /v1/admin/feature-flags - list all feature flags.
func (h *FeatureFlagsHandler) ListFeatureFlags(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// UpsertFeatureFlags handles PUT /v1/admin/feature-flags - update feature flags.
func (h *FeatureFlagsHandler) UpsertFeatureFlags(w http.ResponseWriter, r *http.Request) {
	var req featureflags.FlagUpdateRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if _, err := h.service.ApplyUpdates(r.Context(), GetUserID(r.Context()), &req); err != nil {
		var validationErr *featureflags.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation failed", validationErr.Errors)
			return
		}
		h.logger.Error().Err(err).Msg("feature flag update failed")
		response.InternalError(w, r, "internal server error")
		return
	}

	response.JSON(w, r, http.StatusOK, featureflags.FlagList{Items: h.service.List(r.Context())})
}

// ResetFeatureFlag handles DELETE /v1/admin/feature-flags/{key} - restore the default value.
func (h *FeatureFlagsHandler) ResetFeatureFlag(w http.ResponseWriter, r *http.Request) {
	err := h.service.Reset(r.Context(), GetUserID(r.Context()), chi.URLParam(r, "key"))
	if err != nil {
		if errors.Is(err, featureflags.ErrFlagNotFound) {
			response.NotFound(w, r, "feature flag not found")
			return
		}
		h.logger.Error().Err(err).Msg("feature flag reset failed")
		response.InternalError(w, r, "internal server error")
		return
	}
	response.NoContent(w, r)
}

// InvalidateCache handles POST /v1/admin/feature-flags/invalidate - invalidate flag cache.
func (h *FeatureFlagsHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.service.InvalidateCache()
	response.NoContent(w, r)
}
