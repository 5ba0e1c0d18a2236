package social

import (
	"context"
	"time"
)

// ListOptions contains options for listing posts.
type ListOptions struct {
	Limit int
	// Cursor is the ID of the last post of the previous page.
	Cursor string
}

// ListResult contains the results of listing posts.
type ListResult struct {
	Items      []*Post
	NextCursor string
}

// Repository defines the interface for feed persistence.
type Repository interface {
	// CreatePost stores a new post.
	CreatePost(ctx context.Context, post *Post) error

	// GetPost retrieves a post by ID. Returns ErrPostNotFound if missing.
	GetPost(ctx context.Context, id string) (*Post, error)

	// ListPosts returns posts newest first. An unknown cursor yields an
	// empty page.
	ListPosts(ctx context.Context, opts ListOptions) (*ListResult, error)

	// LikeCounts returns the like count per post. Posts without likes are
	// absent from the map.
	LikeCounts(ctx context.Context, postIDs []string) (map[string]int, error)

	// LikedBy returns the subset of postIDs the user has liked.
	LikedBy(ctx context.Context, postIDs []string, userID string) (map[string]bool, error)

	// AddLike records a like. Liking twice is not an error.
	AddLike(ctx context.Context, postID, userID string, at time.Time) error

	// RemoveLike deletes a like. Missing likes are not an error.
	RemoveLike(ctx context.Context, postID, userID string) error

	// CreateComment stores a new comment.
	CreateComment(ctx context.Context, comment *Comment) error

	// ListComments returns comments per post, oldest first.
	ListComments(ctx context.Context, postIDs []string) (map[string][]*Comment, error)
}
