package trailstatus

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/trailhub/trailhub/internal/api/models"
	"github.com/trailhub/trailhub/internal/featureflags"
	"github.com/trailhub/trailhub/internal/trail"
)

// Validation constants.
const (
	MinRating          = 1
	MaxRating          = 5
	MaxReviewLength    = 2000
	MaxDurationMinutes = 7 * 24 * 60
	MaxTrailNameLength = 200
)

// FlagChecker reports whether a boolean feature flag is on.
type FlagChecker interface {
	IsEnabled(ctx context.Context, key string) bool
}

// ServiceConfig holds configuration for the trail status service.
type ServiceConfig struct {
	Repository Repository
	Flags      FlagChecker // optional
	Logger     zerolog.Logger
	Now        func() time.Time // optional, defaults to time.Now
}

// Service reconciles saved and completed trail state against the store.
type Service struct {
	repo   Repository
	flags  FlagChecker
	logger zerolog.Logger
	now    func() time.Time
}

// NewService creates a new trail status service.
func NewService(cfg ServiceConfig) *Service {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:   cfg.Repository,
		flags:  cfg.Flags,
		logger: cfg.Logger.With().Str("component", "trail_status").Logger(),
		now:    now,
	}
}

// CheckStatus reports whether the user saved and completed the trail.
// Non-canonical trail ids and anonymous callers get an empty status without
// touching the store.
func (s *Service) CheckStatus(ctx context.Context, trailID, userID string) (Status, error) {
	id, ok := trail.CanonicalID(trailID)
	if !ok || strings.TrimSpace(userID) == "" {
		return Status{}, nil
	}

	var status Status
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		saved, err := s.repo.SavedExists(gctx, id, userID)
		if err != nil {
			return fmt.Errorf("check saved: %w", err)
		}
		status.IsSaved = saved
		return nil
	})
	g.Go(func() error {
		completed, err := s.repo.CompletionExists(gctx, id, userID)
		if err != nil {
			return fmt.Errorf("check completed: %w", err)
		}
		status.IsCompleted = completed
		return nil
	})
	if err := g.Wait(); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Save records that the user saved the trail. Saving an already saved trail
// succeeds with SaveAlreadySaved.
func (s *Service) Save(ctx context.Context, trailID, userID string, snapshot trail.Snapshot) (SaveResult, error) {
	return s.save(ctx, trailID, userID, snapshot, time.Time{})
}

// save stores a saved trail stamped at, or now when at is zero.
func (s *Service) save(ctx context.Context, trailID, userID string, snapshot trail.Snapshot, at time.Time) (SaveResult, error) {
	id, err := s.checkWrite(ctx, trailID, userID)
	if err != nil {
		return "", err
	}
	if fieldErrors := validateSnapshot(snapshot); len(fieldErrors) > 0 {
		return "", &ValidationError{Errors: fieldErrors}
	}

	exists, err := s.repo.SavedExists(ctx, id, userID)
	if err != nil {
		return "", fmt.Errorf("check saved: %w", err)
	}
	if exists {
		return SaveAlreadySaved, nil
	}

	saved := &SavedTrail{
		ID:        uuid.New().String(),
		TrailID:   id,
		UserID:    userID,
		Trail:     snapshot,
		CreatedAt: s.stamp(at),
	}
	if err := s.repo.InsertSaved(ctx, saved); err != nil {
		if errors.Is(err, ErrDuplicate) {
			s.logger.Debug().Str("trail_id", id).Msg("concurrent save resolved by unique constraint")
			return SaveAlreadySaved, nil
		}
		return "", fmt.Errorf("insert saved trail: %w", err)
	}

	s.logger.Info().Str("trail_id", id).Str("user_id", userID).Msg("trail saved")
	return SaveCreated, nil
}

// Unsave removes the saved record, if any.
func (s *Service) Unsave(ctx context.Context, trailID, userID string) error {
	id, err := s.checkWrite(ctx, trailID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteSaved(ctx, id, userID); err != nil {
		return fmt.Errorf("delete saved trail: %w", err)
	}
	return nil
}

// Complete records a completion. A trail can be completed once per user;
// repeats return ErrAlreadyCompleted and store nothing.
func (s *Service) Complete(ctx context.Context, trailID, userID string, input CompletionInput, snapshot trail.Snapshot) error {
	return s.complete(ctx, trailID, userID, input, snapshot, time.Time{})
}

// complete stores a completion stamped at, or now when at is zero.
func (s *Service) complete(ctx context.Context, trailID, userID string, input CompletionInput, snapshot trail.Snapshot, at time.Time) error {
	id, err := s.checkWrite(ctx, trailID, userID)
	if err != nil {
		return err
	}
	fieldErrors := validateCompletion(input)
	fieldErrors = append(fieldErrors, validateSnapshot(snapshot)...)
	if len(fieldErrors) > 0 {
		return &ValidationError{Errors: fieldErrors}
	}

	exists, err := s.repo.CompletionExists(ctx, id, userID)
	if err != nil {
		return fmt.Errorf("check completed: %w", err)
	}
	if exists {
		return ErrAlreadyCompleted
	}

	completion := &Completion{
		ID:               uuid.New().String(),
		TrailID:          id,
		UserID:           userID,
		Rating:           input.Rating,
		ReviewText:       strings.TrimSpace(input.ReviewText),
		DifficultyRating: input.DifficultyRating,
		DurationMinutes:  input.DurationMinutes,
		Trail:            snapshot,
		CompletedAt:      s.stamp(at),
	}
	if err := s.repo.InsertCompletion(ctx, completion); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return ErrAlreadyCompleted
		}
		return fmt.Errorf("insert completion: %w", err)
	}

	s.logger.Info().Str("trail_id", id).Str("user_id", userID).Int("rating", input.Rating).Msg("trail completed")
	return nil
}

// Uncomplete removes the completion record, if any.
func (s *Service) Uncomplete(ctx context.Context, trailID, userID string) error {
	id, err := s.checkWrite(ctx, trailID, userID)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteCompletion(ctx, id, userID); err != nil {
		return fmt.Errorf("delete completion: %w", err)
	}
	return nil
}

// ListSaved returns the user's saved trails, newest first.
func (s *Service) ListSaved(ctx context.Context, userID string) ([]*SavedTrail, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	items, err := s.repo.ListSaved(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list saved trails: %w", err)
	}
	return items, nil
}

// ListCompleted returns the user's completions, newest first.
func (s *Service) ListCompleted(ctx context.Context, userID string) ([]*Completion, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, ErrUnauthenticated
	}
	items, err := s.repo.ListCompletions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list completions: %w", err)
	}
	return items, nil
}

func (s *Service) stamp(at time.Time) time.Time {
	if at.IsZero() {
		return s.now().UTC()
	}
	return at.UTC()
}

// checkWrite validates the caller and trail id of a mutating call and
// returns the canonical id. Nothing is read from the store.
func (s *Service) checkWrite(ctx context.Context, trailID, userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", ErrUnauthenticated
	}
	id, ok := trail.CanonicalID(trailID)
	if !ok {
		return "", ErrInvalidTrailID
	}
	if s.flags != nil && s.flags.IsEnabled(ctx, featureflags.FlagTrailStatusReadOnly) {
		return "", ErrWritesDisabled
	}
	return id, nil
}

func validateCompletion(input CompletionInput) []models.FieldError {
	var errs []models.FieldError

	if input.Rating < MinRating || input.Rating > MaxRating {
		errs = append(errs, models.FieldError{
			Field:   "rating",
			Message: fmt.Sprintf("must be between %d and %d", MinRating, MaxRating),
			Code:    "OUT_OF_RANGE",
		})
	}
	if !input.DifficultyRating.Valid() {
		errs = append(errs, models.FieldError{
			Field:   "difficultyRating",
			Message: "must be one of easy, moderate, hard",
			Code:    "INVALID_VALUE",
		})
	}
	if input.DurationMinutes <= 0 || input.DurationMinutes > MaxDurationMinutes {
		errs = append(errs, models.FieldError{
			Field:   "durationMinutes",
			Message: fmt.Sprintf("must be between 1 and %d", MaxDurationMinutes),
			Code:    "OUT_OF_RANGE",
		})
	}
	if utf8.RuneCountInString(input.ReviewText) > MaxReviewLength {
		errs = append(errs, models.FieldError{
			Field:   "reviewText",
			Message: fmt.Sprintf("must be at most %d characters", MaxReviewLength),
			Code:    "TOO_LONG",
		})
	}

	return errs
}

func validateSnapshot(snap trail.Snapshot) []models.FieldError {
	var errs []models.FieldError

	name := strings.TrimSpace(snap.Name)
	switch {
	case name == "":
		errs = append(errs, models.FieldError{Field: "trail.name", Message: "required", Code: "REQUIRED"})
	case utf8.RuneCountInString(name) > MaxTrailNameLength:
		errs = append(errs, models.FieldError{
			Field:   "trail.name",
			Message: fmt.Sprintf("must be at most %d characters", MaxTrailNameLength),
			Code:    "TOO_LONG",
		})
	}
	if !snap.Difficulty.Valid() {
		errs = append(errs, models.FieldError{
			Field:   "trail.difficulty",
			Message: "must be one of easy, moderate, hard",
			Code:    "INVALID_VALUE",
		})
	}
	if !finiteInRange(snap.Rating, 0, MaxRating) {
		errs = append(errs, models.FieldError{Field: "trail.rating", Message: "must be between 0 and 5", Code: "OUT_OF_RANGE"})
	}
	if !finiteInRange(snap.Distance, 0, math.MaxFloat64) {
		errs = append(errs, models.FieldError{Field: "trail.distance", Message: "must be a non-negative number", Code: "OUT_OF_RANGE"})
	}

	return errs
}

func finiteInRange(v, lo, hi float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= lo && v <= hi
}
