package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError represents a validation error on a specific field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ProblemBase prefixes every problem type URI.
const ProblemBase = "https://api.trailhub.app/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation       = ProblemBase + "validation-error"
	ProblemTypeInvalidTrailID   = ProblemBase + "invalid-trail-id"
	ProblemTypeUnauthorized     = ProblemBase + "unauthorized"
	ProblemTypeForbidden        = ProblemBase + "forbidden"
	ProblemTypeTLSRequired      = ProblemBase + "tls-required"
	ProblemTypeNotFound         = ProblemBase + "not-found"
	ProblemTypeConflict         = ProblemBase + "conflict"
	ProblemTypeAlreadyCompleted = ProblemBase + "already-completed"
	ProblemTypeUnsupportedMedia = ProblemBase + "unsupported-media-type"
	ProblemTypeTooManyRequests  = ProblemBase + "too-many-requests"
	ProblemTypeInternal         = ProblemBase + "internal-error"
	ProblemTypeUnavailable      = ProblemBase + "service-unavailable"
)

type problemKind struct {
	title  string
	status int
}

var problemKinds = map[string]problemKind{
	ProblemTypeValidation:       {"Validation error", http.StatusBadRequest},
	ProblemTypeInvalidTrailID:   {"Invalid trail ID format", http.StatusBadRequest},
	ProblemTypeUnauthorized:     {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeForbidden:        {"Forbidden", http.StatusForbidden},
	ProblemTypeTLSRequired:      {"TLS required", http.StatusForbidden},
	ProblemTypeNotFound:         {"Not found", http.StatusNotFound},
	ProblemTypeConflict:         {"Conflict", http.StatusConflict},
	ProblemTypeAlreadyCompleted: {"Already completed", http.StatusConflict},
	ProblemTypeUnsupportedMedia: {"Unsupported media type", http.StatusUnsupportedMediaType},
	ProblemTypeTooManyRequests:  {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:         {"Internal server error", http.StatusInternalServerError},
	ProblemTypeUnavailable:      {"Service unavailable", http.StatusServiceUnavailable},
}

// NewProblem creates a problem of a known type; the title and status follow
// from the type. Unknown types are reported as internal errors.
func NewProblem(problemType, traceID, detail string) *Problem {
	kind, ok := problemKinds[problemType]
	if !ok {
		problemType = ProblemTypeInternal
		kind = problemKinds[problemType]
	}
	return &Problem{
		Type:    problemType,
		Title:   kind.title,
		Status:  kind.status,
		Detail:  detail,
		TraceID: traceID,
	}
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errs []FieldError) *Problem {
	p.Errors = errs
	return p
}

// Write sends the problem for request r, using the request path as the
// instance.
func (p *Problem) Write(w http.ResponseWriter, r *http.Request) {
	if p.Instance == "" && r != nil {
		p.Instance = r.URL.Path
	}
	w.Header().Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		w.Header().Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p)
}

// NewBadRequest creates a 400 validation problem.
func NewBadRequest(traceID, detail string, errs []FieldError) *Problem {
	return NewProblem(ProblemTypeValidation, traceID, detail).WithErrors(errs)
}

// NewInvalidTrailID creates the 400 problem for a trail identifier that is
// not a canonical UUID.
func NewInvalidTrailID(traceID string) *Problem {
	return NewProblem(ProblemTypeInvalidTrailID, traceID, "trail id must be a UUID").
		WithErrors([]FieldError{{Field: "trailId", Message: "must be a UUID", Code: "invalid_format"}})
}

// NewAlreadyCompleted creates the 409 problem for a repeated completion.
func NewAlreadyCompleted(traceID string) *Problem {
	return NewProblem(ProblemTypeAlreadyCompleted, traceID, "you have already completed this trail")
}
