package social

import (
	"context"
	"sort"
	"sync"
	"time"
)

type likeKey struct {
	postID string
	userID string
}

// InMemoryRepository is an in-memory implementation of Repository.
type InMemoryRepository struct {
	mu       sync.RWMutex
	posts    map[string]*Post
	likes    map[likeKey]time.Time
	comments map[string][]*Comment
}

// NewInMemoryRepository creates a new in-memory feed repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		posts:    make(map[string]*Post),
		likes:    make(map[likeKey]time.Time),
		comments: make(map[string][]*Comment),
	}
}

// CreatePost stores a new post.
func (r *InMemoryRepository) CreatePost(_ context.Context, p *Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.posts[p.ID] = copyPost(p)
	return nil
}

// GetPost retrieves a post by ID.
func (r *InMemoryRepository) GetPost(_ context.Context, id string) (*Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, ErrPostNotFound
	}
	return copyPost(p), nil
}

// ListPosts returns posts newest first.
func (r *InMemoryRepository) ListPosts(_ context.Context, opts ListOptions) (*ListResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	posts := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		posts = append(posts, p)
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})

	start := 0
	if opts.Cursor != "" {
		start = len(posts)
		for i, p := range posts {
			if p.ID == opts.Cursor {
				start = i + 1
				break
			}
		}
	}

	result := &ListResult{Items: []*Post{}}
	end := min(start+opts.Limit, len(posts))
	for _, p := range posts[start:end] {
		result.Items = append(result.Items, copyPost(p))
	}
	if end < len(posts) && len(result.Items) > 0 {
		result.NextCursor = result.Items[len(result.Items)-1].ID
	}
	return result, nil
}

// LikeCounts returns the like count per post.
func (r *InMemoryRepository) LikeCounts(_ context.Context, postIDs []string) (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	wanted := toSet(postIDs)
	counts := make(map[string]int)
	for k := range r.likes {
		if wanted[k.postID] {
			counts[k.postID]++
		}
	}
	return counts, nil
}

// LikedBy returns the subset of postIDs the user has liked.
func (r *InMemoryRepository) LikedBy(_ context.Context, postIDs []string, userID string) (map[string]bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	liked := make(map[string]bool)
	for _, id := range postIDs {
		if _, ok := r.likes[likeKey{postID: id, userID: userID}]; ok {
			liked[id] = true
		}
	}
	return liked, nil
}

// AddLike records a like.
func (r *InMemoryRepository) AddLike(_ context.Context, postID, userID string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[postID]; !ok {
		return ErrPostNotFound
	}
	key := likeKey{postID: postID, userID: userID}
	if _, ok := r.likes[key]; !ok {
		r.likes[key] = at
	}
	return nil
}

// RemoveLike deletes a like.
func (r *InMemoryRepository) RemoveLike(_ context.Context, postID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.likes, likeKey{postID: postID, userID: userID})
	return nil
}

// CreateComment stores a new comment.
func (r *InMemoryRepository) CreateComment(_ context.Context, c *Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[c.PostID]; !ok {
		return ErrPostNotFound
	}
	stored := *c
	r.comments[c.PostID] = append(r.comments[c.PostID], &stored)
	return nil
}

// ListComments returns comments per post, oldest first.
func (r *InMemoryRepository) ListComments(_ context.Context, postIDs []string) (map[string][]*Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string][]*Comment)
	for _, id := range postIDs {
		comments := r.comments[id]
		if len(comments) == 0 {
			continue
		}
		copied := make([]*Comment, 0, len(comments))
		for _, c := range comments {
			cc := *c
			copied = append(copied, &cc)
		}
		sort.SliceStable(copied, func(i, j int) bool {
			return copied[i].CreatedAt.Before(copied[j].CreatedAt)
		})
		out[id] = copied
	}
	return out, nil
}

func copyPost(p *Post) *Post {
	c := *p
	if p.Species != nil {
		s := *p.Species
		c.Species = &s
	}
	return &c
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}
