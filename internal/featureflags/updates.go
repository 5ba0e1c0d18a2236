package featureflags

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/trailhub/trailhub/internal/api/models"
)

// MaxReasonLength bounds the audit reason of an update request.
const MaxReasonLength = 500

// FlagList is the admin listing of every known flag.
type FlagList struct {
	Items []Flag `json:"items"`
}

// FlagUpdate sets one flag.
type FlagUpdate struct {
	Key   string      `json:"key"`
	Value interface{} `json:"value"`
}

// FlagUpdateRequest is an audited batch of flag changes.
type FlagUpdateRequest struct {
	Updates []FlagUpdate `json:"updates"`
	Reason  string       `json:"reason"`
}

// ValidationError represents validation errors.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	return "validation failed"
}

// ValidateUpdate checks an update request against the known flags and
// their value types.
func ValidateUpdate(req *FlagUpdateRequest) []models.FieldError {
	var errs []models.FieldError

	if len(req.Updates) == 0 {
		errs = append(errs, models.FieldError{Field: "updates", Message: "must contain at least one update", Code: "required"})
	}
	reason := strings.TrimSpace(req.Reason)
	switch {
	case reason == "":
		errs = append(errs, models.FieldError{Field: "reason", Message: "is required", Code: "required"})
	case len(reason) > MaxReasonLength:
		errs = append(errs, models.FieldError{
			Field:   "reason",
			Message: fmt.Sprintf("must be at most %d characters", MaxReasonLength),
			Code:    "too_long",
		})
	}

	seen := make(map[string]bool, len(req.Updates))
	for i, u := range req.Updates {
		field := fmt.Sprintf("updates[%d]", i)
		if seen[u.Key] {
			errs = append(errs, models.FieldError{Field: field + ".key", Message: "is duplicated", Code: "duplicate"})
			continue
		}
		seen[u.Key] = true

		d, ok := Lookup(u.Key)
		if !ok {
			errs = append(errs, models.FieldError{Field: field + ".value", Message: fmt.Sprintf("unknown flag %q", u.Key), Code: "invalid_value"})
			continue
		}
		if msg := d.Check(u.Value); msg != "" {
			errs = append(errs, models.FieldError{Field: field + ".value", Message: msg, Code: "invalid_value"})
		}
	}
	return errs
}

// ApplyUpdates validates and stores an update request on behalf of actor.
// The returned flags carry their new values.
func (s *Service) ApplyUpdates(ctx context.Context, actor string, req *FlagUpdateRequest) ([]*Flag, error) {
	if fieldErrors := ValidateUpdate(req); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	flags := make([]*Flag, 0, len(req.Updates))
	for _, u := range req.Updates {
		flags = append(flags, &Flag{Key: u.Key, Value: u.Value})
	}
	if err := s.SetFlags(ctx, flags); err != nil {
		return nil, err
	}

	for _, f := range flags {
		s.logger.Info().
			Str("actor", actor).
			Str("flag", f.Key).
			Interface("value", f.Value).
			Str("reason", strings.TrimSpace(req.Reason)).
			Msg("feature flag updated")
	}
	return flags, nil
}

// Reset removes a stored override so the flag falls back to its default.
func (s *Service) Reset(ctx context.Context, actor, key string) error {
	if _, ok := Lookup(key); !ok {
		return ErrFlagNotFound
	}
	if err := s.repo.DeleteFlag(ctx, key); err != nil {
		return err
	}
	s.forget(key)

	s.logger.Info().Str("actor", actor).Str("flag", key).Msg("feature flag reset to default")
	return nil
}

// List returns every flag, defaults merged with stored overrides, sorted by key.
func (s *Service) List(ctx context.Context) []Flag {
	all := s.GetAllFlags(ctx)
	out := make([]Flag, 0, len(all))
	for _, d := range Definitions() {
		out = append(out, *all[d.Key])
		delete(all, d.Key)
	}
	// Overrides for keys no longer defined still show up, after the known ones.
	stale := make([]Flag, 0, len(all))
	for _, f := range all {
		stale = append(stale, *f)
	}
	sort.Slice(stale, func(i, j int) bool { return stale[i].Key < stale[j].Key })
	return append(out, stale...)
}
