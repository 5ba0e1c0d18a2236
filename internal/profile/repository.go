package profile

import (
	"context"
	"sync"
)

// Repository defines the interface for profile persistence.
type Repository interface {
	// Get retrieves a profile by user ID.
	Get(ctx context.Context, id string) (*Profile, error)

	// GetMany retrieves the profiles that exist among ids, keyed by ID.
	GetMany(ctx context.Context, ids []string) (map[string]*Profile, error)

	// Upsert creates or replaces a profile. CreatedAt is kept on update
	// and written back to p.
	Upsert(ctx context.Context, p *Profile) error
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// Get retrieves a profile by user ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return copyProfile(p), nil
}

// GetMany retrieves the profiles that exist among ids.
func (r *InMemoryRepository) GetMany(_ context.Context, ids []string) (map[string]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Profile, len(ids))
	for _, id := range ids {
		if p, ok := r.profiles[id]; ok {
			out[id] = copyProfile(p)
		}
	}
	return out, nil
}

// Upsert creates or replaces a profile.
func (r *InMemoryRepository) Upsert(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.profiles[p.ID]; ok {
		p.CreatedAt = existing.CreatedAt
	}
	r.profiles[p.ID] = copyProfile(p)
	return nil
}
