package handler

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/profile"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

// trailLogFilename is the download name of the CSV trail log.
const trailLogFilename = "trail-log.csv"

// MeHandler handles the authenticated user's endpoints.
type MeHandler struct {
	status   *trailstatus.Service
	profiles *profile.Service
	logger   zerolog.Logger
}

// NewMeHandler creates a new MeHandler.
func NewMeHandler(status *trailstatus.Service, profiles *profile.Service, logger zerolog.Logger) *MeHandler {
	return &MeHandler{status: status, profiles: profiles, logger: logger}
}

// GetMe handles GET /v1/me - the caller's profile and trail counts.
func (h *MeHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := GetUserID(ctx)
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	// Each read degrades on its own: a failed lookup shows as an empty
	// profile or a zero count.
	var (
		p                  = &profile.Profile{ID: userID}
		savedN, completedN int
		g                  errgroup.Group
	)
	g.Go(func() error {
		found, err := h.profiles.Get(ctx, userID)
		if err != nil {
			h.logger.Warn().Err(err).Msg("profile lookup failed, showing empty profile")
			return nil
		}
		p = found
		return nil
	})
	g.Go(func() error {
		saved, err := h.status.ListSaved(ctx, userID)
		if err != nil {
			h.logger.Warn().Err(err).Msg("saved trails lookup failed, showing zero")
			return nil
		}
		savedN = len(saved)
		return nil
	})
	g.Go(func() error {
		completed, err := h.status.ListCompleted(ctx, userID)
		if err != nil {
			h.logger.Warn().Err(err).Msg("completions lookup failed, showing zero")
			return nil
		}
		completedN = len(completed)
		return nil
	})
	_ = g.Wait()

	email := getEmail(ctx)
	response.JSON(w, r, http.StatusOK, models.Me{
		UserID:         userID,
		Email:          email,
		Profile:        p.ToAPI(email),
		SavedCount:     savedN,
		CompletedCount: completedN,
	})
}

// GetProfile handles GET /v1/me/profile.
func (h *MeHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error().Err(err).Msg("profile lookup failed")
		response.InternalError(w, r, "internal server error")
		return
	}
	response.JSON(w, r, http.StatusOK, p.ToAPI(getEmail(r.Context())))
}

// UpdateProfile handles PUT /v1/me/profile - create or update the profile.
func (h *MeHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var input models.ProfileInput
	if err := decodeJSON(w, r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	p, err := h.profiles.Upsert(r.Context(), userID, &input)
	if err != nil {
		var validationErr *profile.ValidationError
		if errors.As(err, &validationErr) {
			response.BadRequest(w, r, "validation failed", validationErr.Errors)
			return
		}
		h.logger.Error().Err(err).Msg("profile update failed")
		response.InternalError(w, r, "internal server error")
		return
	}
	response.JSON(w, r, http.StatusOK, p.ToAPI(getEmail(r.Context())))
}

// SaveTrail handles PUT /v1/me/saved-trails/{trailId}. The body is the trail
// snapshot. A first save returns 201; repeating it returns 200.
func (h *MeHandler) SaveTrail(w http.ResponseWriter, r *http.Request) {
	trailID := chi.URLParam(r, "trailId")

	var snapshot models.TrailSnapshot
	if err := decodeJSON(w, r, &snapshot, true); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	result, err := h.status.Save(r.Context(), trailID, GetUserID(r.Context()), fromAPISnapshot(snapshot))
	if err != nil {
		h.writeStatusError(w, r, err)
		return
	}

	id, _ := trail.CanonicalID(trailID)
	if result == trailstatus.SaveAlreadySaved {
		response.JSON(w, r, http.StatusOK, models.SaveTrailResult{TrailID: id, AlreadySaved: true})
		return
	}
	response.Created(w, r, "/v1/me/saved-trails/"+id, models.SaveTrailResult{TrailID: id})
}

// UnsaveTrail handles DELETE /v1/me/saved-trails/{trailId}.
func (h *MeHandler) UnsaveTrail(w http.ResponseWriter, r *http.Request) {
	if err := h.status.Unsave(r.Context(), chi.URLParam(r, "trailId"), GetUserID(r.Context())); err != nil {
		h.writeStatusError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// ListSavedTrails handles GET /v1/me/saved-trails - newest first.
func (h *MeHandler) ListSavedTrails(w http.ResponseWriter, r *http.Request) {
	items, err := h.status.ListSaved(r.Context(), GetUserID(r.Context()))
	if err != nil {
		h.writeStatusError(w, r, err)
		return
	}

	out := make([]models.SavedTrail, 0, len(items))
	for _, s := range items {
		out = append(out, models.SavedTrail{
			ID:        s.ID,
			TrailID:   s.TrailID,
			Trail:     toAPISnapshot(s.Trail),
			CreatedAt: models.Timestamp(s.CreatedAt),
		})
	}
	response.JSON(w, r, http.StatusOK, models.SavedTrailList{Items: out})
}

// CompleteTrail handles PUT /v1/me/completed-trails/{trailId}. A trail can be
// completed once; repeats return 409.
func (h *MeHandler) CompleteTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	trailID := chi.URLParam(r, "trailId")
	userID := GetUserID(ctx)

	var req models.CompleteTrailRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	input := trailstatus.CompletionInput{
		Rating:           req.Rating,
		ReviewText:       req.ReviewText,
		DifficultyRating: trail.Difficulty(req.DifficultyRating),
		DurationMinutes:  req.DurationMinutes,
	}
	if err := h.status.Complete(ctx, trailID, userID, input, fromAPISnapshot(req.Trail)); err != nil {
		h.writeStatusError(w, r, err)
		return
	}

	id, _ := trail.CanonicalID(trailID)
	status := models.TrailStatus{TrailID: id, IsCompleted: true}
	if st, err := h.status.CheckStatus(ctx, id, userID); err == nil {
		status.IsSaved = st.IsSaved
	}
	response.Created(w, r, "/v1/me/completed-trails/"+id, status)
}

// UncompleteTrail handles DELETE /v1/me/completed-trails/{trailId}.
func (h *MeHandler) UncompleteTrail(w http.ResponseWriter, r *http.Request) {
	if err := h.status.Uncomplete(r.Context(), chi.URLParam(r, "trailId"), GetUserID(r.Context())); err != nil {
		h.writeStatusError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// ListCompletedTrails handles GET /v1/me/completed-trails - newest first.
func (h *MeHandler) ListCompletedTrails(w http.ResponseWriter, r *http.Request) {
	items, err := h.status.ListCompleted(r.Context(), GetUserID(r.Context()))
	if err != nil {
		h.writeStatusError(w, r, err)
		return
	}

	out := make([]models.CompletedTrail, 0, len(items))
	for _, c := range items {
		out = append(out, models.CompletedTrail{
			ID:               c.ID,
			TrailID:          c.TrailID,
			Rating:           c.Rating,
			ReviewText:       c.ReviewText,
			DifficultyRating: string(c.DifficultyRating),
			DurationMinutes:  c.DurationMinutes,
			Trail:            toAPISnapshot(c.Trail),
			CompletedAt:      models.Timestamp(c.CompletedAt),
		})
	}
	response.JSON(w, r, http.StatusOK, models.CompletedTrailList{Items: out})
}

// ExportTrailLog handles GET /v1/me/trail-log.csv - the saved and completed
// trails as a CSV download.
func (h *MeHandler) ExportTrailLog(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	rows, err := h.status.ExportCSV(r.Context(), GetUserID(r.Context()), &buf)
	if err != nil {
		h.writeStatusError(w, r, err)
		return
	}

	response.CSVAttachment(w, r, trailLogFilename)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn().Err(err).Int("rows", rows).Msg("trail log download interrupted")
	}
}

// writeStatusError maps trail status errors to problem responses.
func (h *MeHandler) writeStatusError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *trailstatus.ValidationError
	switch {
	case errors.Is(err, trailstatus.ErrUnauthenticated):
		response.Unauthorized(w, r, "user not authenticated")
	case errors.Is(err, trailstatus.ErrInvalidTrailID):
		response.InvalidTrailID(w, r)
	case errors.Is(err, trailstatus.ErrWritesDisabled):
		response.ServiceUnavailable(w, r, "trail status changes are temporarily disabled", 0)
	case errors.Is(err, trailstatus.ErrAlreadyCompleted):
		response.AlreadyCompleted(w, r)
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
	default:
		h.logger.Error().Err(err).Msg("trail status request failed")
		response.InternalError(w, r, "internal server error")
	}
}
