package profile

import (
	"context"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/trailhub/trailhub/internal/api/models"
)

var usernameRegex = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// Service provides profile operations.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a new profile service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Get returns the user's profile. A user who never saved a profile gets an
// empty one rather than an error.
func (s *Service) Get(ctx context.Context, userID string) (*Profile, error) {
	p, err := s.repo.Get(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return &Profile{ID: userID}, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

// GetMany returns profiles for ids. Users without a stored profile get an
// empty one so every id resolves.
func (s *Service) GetMany(ctx context.Context, ids []string) (map[string]*Profile, error) {
	unique := make([]string, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		unique = append(unique, id)
	}

	found, err := s.repo.GetMany(ctx, unique)
	if err != nil {
		return nil, err
	}
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			found[id] = &Profile{ID: id}
		}
	}
	return found, nil
}

// Upsert applies input to the user's profile, creating it if needed.
// Nil fields are left unchanged; empty strings clear the field.
func (s *Service) Upsert(ctx context.Context, userID string, input *models.ProfileInput) (*Profile, error) {
	if fieldErrors := validateInput(input); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	p, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if input.Username != nil {
		p.Username = optional(*input.Username)
	}
	if input.AvatarURL != nil {
		p.AvatarURL = optional(*input.AvatarURL)
	}
	p.UpdatedAt = now

	if err := s.repo.Upsert(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func validateInput(input *models.ProfileInput) []models.FieldError {
	var errs []models.FieldError

	if input.Username != nil {
		username := strings.TrimSpace(*input.Username)
		switch {
		case username == "":
		case len(username) < MinUsernameLength || len(username) > MaxUsernameLength:
			errs = append(errs, models.FieldError{Field: "username", Message: "must be 3 to 30 characters", Code: "invalid_length"})
		case !usernameRegex.MatchString(username):
			errs = append(errs, models.FieldError{Field: "username", Message: "may contain only letters, digits, '_', '.' and '-'", Code: "invalid_format"})
		}
	}

	if input.AvatarURL != nil {
		avatar := strings.TrimSpace(*input.AvatarURL)
		if avatar != "" {
			u, err := url.Parse(avatar)
			switch {
			case len(avatar) > MaxAvatarURLLength:
				errs = append(errs, models.FieldError{Field: "avatarUrl", Message: "must be at most 2048 characters", Code: "too_long"})
			case err != nil || (u.Scheme != "https" && u.Scheme != "http") || u.Host == "":
				errs = append(errs, models.FieldError{Field: "avatarUrl", Message: "must be an http or https URL", Code: "invalid_format"})
			}
		}
	}

	return errs
}
