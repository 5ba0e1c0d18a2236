package trailstatus

import (
	"context"
	"sort"
	"sync"
)

type pairKey struct {
	trailID string
	userID  string
}

// InMemoryRepository is an in-memory implementation of Repository.
// This is intended for testing. Production should use PostgresRepository.
type InMemoryRepository struct {
	mu          sync.RWMutex
	saved       map[pairKey]*SavedTrail
	completions map[pairKey]*Completion
}

// NewInMemoryRepository creates a new in-memory trail status repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		saved:       make(map[pairKey]*SavedTrail),
		completions: make(map[pairKey]*Completion),
	}
}

// SavedExists reports whether the user saved the trail.
func (r *InMemoryRepository) SavedExists(_ context.Context, trailID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.saved[pairKey{trailID, userID}]
	return ok, nil
}

// CompletionExists reports whether the user completed the trail.
func (r *InMemoryRepository) CompletionExists(_ context.Context, trailID, userID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.completions[pairKey{trailID, userID}]
	return ok, nil
}

// InsertSaved stores a saved trail.
func (r *InMemoryRepository) InsertSaved(_ context.Context, saved *SavedTrail) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{saved.TrailID, saved.UserID}
	if _, ok := r.saved[key]; ok {
		return ErrDuplicate
	}
	cpy := *saved
	r.saved[key] = &cpy
	return nil
}

// DeleteSaved removes a saved trail.
func (r *InMemoryRepository) DeleteSaved(_ context.Context, trailID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.saved, pairKey{trailID, userID})
	return nil
}

// InsertCompletion stores a completion.
func (r *InMemoryRepository) InsertCompletion(_ context.Context, completion *Completion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := pairKey{completion.TrailID, completion.UserID}
	if _, ok := r.completions[key]; ok {
		return ErrDuplicate
	}
	cpy := *completion
	r.completions[key] = &cpy
	return nil
}

// DeleteCompletion removes a completion.
func (r *InMemoryRepository) DeleteCompletion(_ context.Context, trailID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.completions, pairKey{trailID, userID})
	return nil
}

// ListSaved returns the user's saved trails, newest first.
func (r *InMemoryRepository) ListSaved(_ context.Context, userID string) ([]*SavedTrail, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*SavedTrail
	for _, s := range r.saved {
		if s.UserID == userID {
			cpy := *s
			items = append(items, &cpy)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	return items, nil
}

// ListCompletions returns the user's completions, newest first.
func (r *InMemoryRepository) ListCompletions(_ context.Context, userID string) ([]*Completion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var items []*Completion
	for _, c := range r.completions {
		if c.UserID == userID {
			cpy := *c
			items = append(items, &cpy)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CompletedAt.After(items[j].CompletedAt)
	})
	return items, nil
}

// Counts returns the number of saved and completion records held.
func (r *InMemoryRepository) Counts() (saved, completed int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.saved), len(r.completions)
}

var _ Repository = (*InMemoryRepository)(nil)
