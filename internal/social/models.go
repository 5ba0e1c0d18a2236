// Package social implements the community feed: photo posts about trails
// and spotted species, with likes and comments.
package social

import (
	"errors"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
)

// Service and repository errors.
var (
	ErrPostNotFound = errors.New("post not found")

	// ErrPostingDisabled is returned for new posts and comments while the
	// disable_social_posting flag is on.
	ErrPostingDisabled = errors.New("social posting is disabled")
)

// Validation limits.
const (
	MaxCaptionLength  = 2000
	MaxCommentLength  = 1000
	MaxImageURLLength = 2048
	DefaultFeedLimit  = 20
	MaxFeedLimit      = 50
)

// PostType distinguishes trail photos from species sightings.
type PostType string

const (
	PostTypeTrail   PostType = "trail"
	PostTypeSpecies PostType = "species"
)

// Valid reports whether t is a known post type.
func (t PostType) Valid() bool {
	return t == PostTypeTrail || t == PostTypeSpecies
}

// Species is the top classifier prediction kept with a species post.
type Species struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Post is a stored feed post.
type Post struct {
	ID        string
	UserID    string
	Type      PostType
	ImageURL  string
	Caption   string
	Species   *Species
	CreatedAt time.Time
}

// Comment is a stored comment on a post.
type Comment struct {
	ID        string
	PostID    string
	UserID    string
	Content   string
	CreatedAt time.Time
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
