// Package trailstatus tracks which trails a user has saved and completed.
package trailstatus

import (
	"errors"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/trail"
)

// Service errors.
var (
	// ErrInvalidTrailID is returned by mutating operations when the trail id
	// is not a canonical UUID.
	ErrInvalidTrailID = errors.New("invalid trail ID format")

	// ErrUnauthenticated is returned when a mutating operation has no user.
	ErrUnauthenticated = errors.New("user not authenticated")

	// ErrAlreadyCompleted is returned when the user already completed the trail.
	ErrAlreadyCompleted = errors.New("trail already completed")

	// ErrWritesDisabled is returned while trail status writes are switched off.
	ErrWritesDisabled = errors.New("trail status writes are disabled")
)

// Repository errors.
var (
	// ErrDuplicate is returned when an insert hits the (trail_id, user_id)
	// uniqueness constraint.
	ErrDuplicate = errors.New("record already exists for trail and user")
)

// Status is the saved/completed state of one trail for one user.
type Status struct {
	IsSaved     bool
	IsCompleted bool
}

// SaveResult reports whether Save created a record.
type SaveResult string

const (
	SaveCreated      SaveResult = "created"
	SaveAlreadySaved SaveResult = "already_saved"
)

// SavedTrail is a saved_trails row.
type SavedTrail struct {
	ID        string
	TrailID   string
	UserID    string
	Trail     trail.Snapshot
	CreatedAt time.Time
}

// Completion is a trail_completions row.
type Completion struct {
	ID               string
	TrailID          string
	UserID           string
	Rating           int
	ReviewText       string
	DifficultyRating trail.Difficulty
	DurationMinutes  int
	Trail            trail.Snapshot
	CompletedAt      time.Time
}

// CompletionInput holds the user-submitted part of a completion.
type CompletionInput struct {
	Rating           int
	ReviewText       string
	DifficultyRating trail.Difficulty
	DurationMinutes  int
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
