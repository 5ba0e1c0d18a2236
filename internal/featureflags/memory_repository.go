package featureflags

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Used in development mode and tests.
type InMemoryRepository struct {
	mu    sync.RWMutex
	flags map[string]Flag
	now   func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		flags: make(map[string]Flag),
		now:   time.Now,
	}
}

// NewInMemoryRepositoryWithFlags creates a new in-memory repository with initial flags.
func NewInMemoryRepositoryWithFlags(flags map[string]*Flag) *InMemoryRepository {
	repo := NewInMemoryRepository()
	for k, v := range flags {
		repo.flags[k] = *v
	}
	return repo
}

// GetFlag retrieves a single feature flag by key.
func (r *InMemoryRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	flag, ok := r.flags[key]
	if !ok {
		return nil, ErrFlagNotFound
	}
	return &flag, nil
}

// GetAllFlags retrieves all feature flags.
func (r *InMemoryRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]*Flag, len(r.flags))
	for k, v := range r.flags {
		flag := v
		result[k] = &flag
	}
	return result, nil
}

// SetFlag creates or updates a feature flag. A zero UpdatedAt is stamped
// with the current time.
func (r *InMemoryRepository) SetFlag(ctx context.Context, flag *Flag) error {
	return r.SetFlags(ctx, []*Flag{flag})
}

// SetFlags creates or updates multiple feature flags.
func (r *InMemoryRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	for _, flag := range flags {
		if flag.UpdatedAt.IsZero() {
			flag.UpdatedAt = now
		}
		r.flags[flag.Key] = *flag
	}
	return nil
}

// DeleteFlag removes a feature flag by key.
func (r *InMemoryRepository) DeleteFlag(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.flags, key)
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
