package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/api/response"
	"github.com/trailhub/trailhub/internal/social"
)

// SocialHandler handles community feed endpoints.
type SocialHandler struct {
	service *social.Service
	logger  zerolog.Logger
}

// NewSocialHandler creates a new SocialHandler.
func NewSocialHandler(service *social.Service, logger zerolog.Logger) *SocialHandler {
	return &SocialHandler{service: service, logger: logger}
}

// ListFeed handles GET /v1/social/feed - newest posts first, cursor paginated.
func (h *SocialHandler) ListFeed(w http.ResponseWriter, r *http.Request) {
	limit, fieldErr := parseLimit(r, "limit")
	if fieldErr != nil {
		response.BadRequest(w, r, "validation failed", []models.FieldError{*fieldErr})
		return
	}

	feed, err := h.service.ListFeed(r.Context(), GetUserID(r.Context()), limit, r.URL.Query().Get("cursor"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, feed)
}

// CreatePost handles POST /v1/social/posts.
func (h *SocialHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var input models.CreatePostRequest
	if err := decodeJSON(w, r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	post, err := h.service.CreatePost(r.Context(), userID, &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/social/posts/"+post.ID, post)
}

// LikePost handles PUT /v1/social/posts/{postId}/like.
func (h *SocialHandler) LikePost(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	result, err := h.service.Like(r.Context(), userID, chi.URLParam(r, "postId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// UnlikePost handles DELETE /v1/social/posts/{postId}/like.
func (h *SocialHandler) UnlikePost(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	result, err := h.service.Unlike(r.Context(), userID, chi.URLParam(r, "postId"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// AddComment handles POST /v1/social/posts/{postId}/comments.
func (h *SocialHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	userID := GetUserID(r.Context())
	if userID == "" {
		response.Unauthorized(w, r, "user not authenticated")
		return
	}

	var input models.CreateCommentRequest
	if err := decodeJSON(w, r, &input, false); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	postID := chi.URLParam(r, "postId")
	comment, err := h.service.AddComment(r.Context(), userID, postID, &input)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.Created(w, r, "/v1/social/posts/"+postID, comment)
}

func (h *SocialHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *social.ValidationError
	switch {
	case errors.As(err, &validationErr):
		response.BadRequest(w, r, "validation failed", validationErr.Errors)
	case errors.Is(err, social.ErrPostNotFound):
		response.NotFound(w, r, "post not found")
	case errors.Is(err, social.ErrPostingDisabled):
		response.ServiceUnavailable(w, r, "posting is temporarily disabled", 0)
	default:
		h.logger.Error().Err(err).Msg("social request failed")
		response.InternalError(w, r, "internal server error")
	}
}
