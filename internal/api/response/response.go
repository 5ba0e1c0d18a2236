// Package response provides utilities for HTTP response handling.
package response

import (
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/trailhub/trailhub/internal/api/middleware"
	"github.com/trailhub/trailhub/internal/api/models"
)

// JSON writes a JSON response with the given status code.
// Includes X-Request-Id header for correlation.
func JSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Error writes a Problem+JSON error response.
func Error(w http.ResponseWriter, r *http.Request, problem *models.Problem) {
	problem.Write(w, r)
}

// BadRequest writes a 400 Bad Request error response.
func BadRequest(w http.ResponseWriter, r *http.Request, detail string, errors []models.FieldError) {
	Error(w, r, models.NewBadRequest(traceID(r), detail, errors))
}

// InvalidTrailID writes the 400 response for a malformed trail identifier.
func InvalidTrailID(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewInvalidTrailID(traceID(r)))
}

// Unauthorized writes a 401 Unauthorized error response.
func Unauthorized(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewProblem(models.ProblemTypeUnauthorized, traceID(r), detail))
}

// Forbidden writes a 403 Forbidden error response.
func Forbidden(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewProblem(models.ProblemTypeForbidden, traceID(r), detail))
}

// NotFound writes a 404 Not Found error response.
func NotFound(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewProblem(models.ProblemTypeNotFound, traceID(r), detail))
}

// Conflict writes a 409 Conflict error response.
func Conflict(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewProblem(models.ProblemTypeConflict, traceID(r), detail))
}

// AlreadyCompleted writes the 409 response for a duplicate trail completion.
func AlreadyCompleted(w http.ResponseWriter, r *http.Request) {
	Error(w, r, models.NewAlreadyCompleted(traceID(r)))
}

// InternalError writes a 500 Internal Server Error response.
func InternalError(w http.ResponseWriter, r *http.Request, detail string) {
	Error(w, r, models.NewProblem(models.ProblemTypeInternal, traceID(r), detail))
}

// ServiceUnavailable writes a 503 Service Unavailable error response.
// A positive retryAfter sets the Retry-After header.
func ServiceUnavailable(w http.ResponseWriter, r *http.Request, detail string, retryAfter time.Duration) {
	if retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds())))
	}
	Error(w, r, models.NewProblem(models.ProblemTypeUnavailable, traceID(r), detail))
}

// Created writes a 201 Created response with Location header.
// Includes X-Request-Id header for correlation.
func Created(w http.ResponseWriter, r *http.Request, location string, data interface{}) {
	if location != "" {
		w.Header().Set("Location", location)
	}
	JSON(w, r, http.StatusCreated, data)
}

// NoContent writes a 204 No Content response.
// Includes X-Request-Id header for correlation.
func NoContent(w http.ResponseWriter, r *http.Request) {
	setRequestID(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// CSVAttachment prepares headers for a CSV download. The caller streams the
// body afterwards.
func CSVAttachment(w http.ResponseWriter, r *http.Request, filename string) {
	setRequestID(w, r)
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Cache-Control", "no-store")
}

func setRequestID(w http.ResponseWriter, r *http.Request) {
	if requestID := middleware.GetRequestID(r.Context()); requestID != "" {
		w.Header().Set("X-Request-Id", requestID)
	}
}

func traceID(r *http.Request) string {
	return middleware.GetRequestID(r.Context())
}
