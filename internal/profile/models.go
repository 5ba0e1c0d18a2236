// Package profile manages public user profiles: the username and avatar
// shown on saved trails, completions and the community feed.
//
// Account identity (email, sessions) lives with the hosted auth provider.
// Only the public fields are stored here, keyed by the auth subject.
package profile

import (
	"errors"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
)

// UnknownUser is the display name used when a user has neither a username
// nor an email.
const UnknownUser = "Unknown User"

// Validation limits.
const (
	MinUsernameLength  = 3
	MaxUsernameLength  = 30
	MaxAvatarURLLength = 2048
)

// ErrProfileNotFound is returned by repositories when no profile exists.
var ErrProfileNotFound = errors.New("profile not found")

// Profile is a stored user profile.
type Profile struct {
	// ID is the auth subject of the owning user.
	ID        string
	Username  *string
	AvatarURL *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DisplayName returns the username, then email, then UnknownUser.
func (p *Profile) DisplayName(email string) string {
	if p != nil && p.Username != nil && *p.Username != "" {
		return *p.Username
	}
	if email != "" {
		return email
	}
	return UnknownUser
}

// ToAPI converts the profile to its API representation.
func (p *Profile) ToAPI(email string) models.Profile {
	return models.Profile{
		UserID:      p.ID,
		Username:    p.Username,
		AvatarURL:   p.AvatarURL,
		DisplayName: p.DisplayName(email),
		CreatedAt:   models.Timestamp(p.CreatedAt),
		UpdatedAt:   models.Timestamp(p.UpdatedAt),
	}
}

func copyProfile(p *Profile) *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Username != nil {
		v := *p.Username
		c.Username = &v
	}
	if p.AvatarURL != nil {
		v := *p.AvatarURL
		c.AvatarURL = &v
	}
	return &c
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}
