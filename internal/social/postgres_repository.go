package social

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// foreignKeyViolation is the PostgreSQL error code for a missing referenced row.
const foreignKeyViolation = "23503"

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL feed repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// CreatePost stores a new post.
func (r *PostgresRepository) CreatePost(ctx context.Context, p *Post) error {
	species, err := encodeSpecies(p.Species)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO posts (id, user_id, type, image_url, caption, species_data, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		p.ID, p.UserID, string(p.Type), p.ImageURL, p.Caption, species, p.CreatedAt,
	)
	return err
}

// GetPost retrieves a post by ID.
func (r *PostgresRepository) GetPost(ctx context.Context, id string) (*Post, error) {
	query := `
		SELECT id, user_id, type, image_url, caption, species_data, created_at
		FROM posts
		WHERE id = $1
	`

	p, err := scanPost(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPostNotFound
		}
		return nil, err
	}
	return p, nil
}

// ListPosts returns posts newest first.
func (r *PostgresRepository) ListPosts(ctx context.Context, opts ListOptions) (*ListResult, error) {
	limit := opts.Limit
	// Fetch one extra to determine if there are more results
	fetchLimit := limit + 1

	var (
		rows pgx.Rows
		err  error
	)
	if opts.Cursor == "" {
		rows, err = r.pool.Query(ctx, `
			SELECT id, user_id, type, image_url, caption, species_data, created_at
			FROM posts
			ORDER BY created_at DESC, id DESC
			LIMIT $1
		`, fetchLimit)
	} else {
		rows, err = r.pool.Query(ctx, `
			SELECT p.id, p.user_id, p.type, p.image_url, p.caption, p.species_data, p.created_at
			FROM posts p, posts c
			WHERE c.id = $1
			  AND (p.created_at, p.id) < (c.created_at, c.id)
			ORDER BY p.created_at DESC, p.id DESC
			LIMIT $2
		`, opts.Cursor, fetchLimit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []*Post{}
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	result := &ListResult{Items: posts}
	if len(posts) > limit {
		result.Items = posts[:limit]
		result.NextCursor = posts[limit-1].ID
	}
	return result, nil
}

// LikeCounts returns the like count per post.
func (r *PostgresRepository) LikeCounts(ctx context.Context, postIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(postIDs) == 0 {
		return counts, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT post_id, COUNT(*)
		FROM likes
		WHERE post_id = ANY($1::uuid[])
		GROUP BY post_id
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		counts[id] = count
	}
	return counts, rows.Err()
}

// LikedBy returns the subset of postIDs the user has liked.
func (r *PostgresRepository) LikedBy(ctx context.Context, postIDs []string, userID string) (map[string]bool, error) {
	liked := make(map[string]bool)
	if len(postIDs) == 0 || userID == "" {
		return liked, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT post_id
		FROM likes
		WHERE post_id = ANY($1::uuid[]) AND user_id = $2
	`, postIDs, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		liked[id] = true
	}
	return liked, rows.Err()
}

// AddLike records a like.
func (r *PostgresRepository) AddLike(ctx context.Context, postID, userID string, at time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO likes (post_id, user_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (post_id, user_id) DO NOTHING
	`, postID, userID, at)
	return mapForeignKey(err)
}

// RemoveLike deletes a like.
func (r *PostgresRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	return err
}

// CreateComment stores a new comment.
func (r *PostgresRepository) CreateComment(ctx context.Context, c *Comment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO comments (id, post_id, user_id, content, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, c.ID, c.PostID, c.UserID, c.Content, c.CreatedAt)
	return mapForeignKey(err)
}

// ListComments returns comments per post, oldest first.
func (r *PostgresRepository) ListComments(ctx context.Context, postIDs []string) (map[string][]*Comment, error) {
	out := make(map[string][]*Comment)
	if len(postIDs) == 0 {
		return out, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT id, post_id, user_id, content, created_at
		FROM comments
		WHERE post_id = ANY($1::uuid[])
		ORDER BY created_at, id
	`, postIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var c Comment
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Content, &c.CreatedAt); err != nil {
			return nil, err
		}
		out[c.PostID] = append(out[c.PostID], &c)
	}
	return out, rows.Err()
}

func scanPost(row pgx.Row) (*Post, error) {
	var (
		p        Post
		postType string
		species  []byte
	)
	if err := row.Scan(&p.ID, &p.UserID, &postType, &p.ImageURL, &p.Caption, &species, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Type = PostType(postType)

	if len(species) > 0 {
		var s Species
		if err := json.Unmarshal(species, &s); err != nil {
			return nil, fmt.Errorf("decoding species_data for post %s: %w", p.ID, err)
		}
		p.Species = &s
	}
	return &p, nil
}

func encodeSpecies(s *Species) ([]byte, error) {
	if s == nil {
		return nil, nil
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding species_data: %w", err)
	}
	return data, nil
}

func mapForeignKey(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == foreignKeyViolation {
		return ErrPostNotFound
	}
	return err
}
