package featureflags

import (
	"context"
	"errors"
)

// ErrFlagNotFound means no override is stored for a key; callers fall back
// to the definition's default.
var ErrFlagNotFound = errors.New("feature flag not found")

// Repository stores flag overrides. Only keys an operator has changed are
// present; everything else resolves to its Definition default.
type Repository interface {
	GetFlag(ctx context.Context, key string) (*Flag, error)

	// GetAllFlags returns the stored overrides keyed by flag key.
	GetAllFlags(ctx context.Context) (map[string]*Flag, error)

	SetFlag(ctx context.Context, flag *Flag) error

	// SetFlags writes a batch of overrides. Either all are stored or none.
	SetFlags(ctx context.Context, flags []*Flag) error

	// DeleteFlag drops the override so the key reverts to its default.
	// Deleting a key with no override is not an error.
	DeleteFlag(ctx context.Context, key string) error
}
