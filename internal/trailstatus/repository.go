package trailstatus

import "context"

// Repository defines persistence for saved trails and completions.
// Implementations must enforce at most one saved record and one completion
// per (trail, user) pair and report violations as ErrDuplicate.
type Repository interface {
	// SavedExists reports whether the user saved the trail.
	SavedExists(ctx context.Context, trailID, userID string) (bool, error)

	// CompletionExists reports whether the user completed the trail.
	CompletionExists(ctx context.Context, trailID, userID string) (bool, error)

	// InsertSaved stores a saved trail. Returns ErrDuplicate if the pair exists.
	InsertSaved(ctx context.Context, saved *SavedTrail) error

	// DeleteSaved removes a saved trail. Missing records are not an error.
	DeleteSaved(ctx context.Context, trailID, userID string) error

	// InsertCompletion stores a completion. Returns ErrDuplicate if the pair exists.
	InsertCompletion(ctx context.Context, completion *Completion) error

	// DeleteCompletion removes a completion. Missing records are not an error.
	DeleteCompletion(ctx context.Context, trailID, userID string) error

	// ListSaved returns the user's saved trails, newest first.
	ListSaved(ctx context.Context, userID string) ([]*SavedTrail, error)

	// ListCompletions returns the user's completions, newest first.
	ListCompletions(ctx context.Context, userID string) ([]*Completion, error)
}
