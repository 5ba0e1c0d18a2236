package trailstatus

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trailhub/trailhub/internal/trail"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL trail status repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// SavedExists reports whether the user saved the trail.
func (r *PostgresRepository) SavedExists(ctx context.Context, trailID, userID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM saved_trails WHERE trail_id = $1 AND user_id = $2)`, trailID, userID)
}

// CompletionExists reports whether the user completed the trail.
func (r *PostgresRepository) CompletionExists(ctx context.Context, trailID, userID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM trail_completions WHERE trail_id = $1 AND user_id = $2)`, trailID, userID)
}

func (r *PostgresRepository) exists(ctx context.Context, query, trailID, userID string) (bool, error) {
	var ok bool
	if err := r.pool.QueryRow(ctx, query, trailID, userID).Scan(&ok); err != nil {
		return false, err
	}
	return ok, nil
}

// InsertSaved stores a saved trail.
func (r *PostgresRepository) InsertSaved(ctx context.Context, s *SavedTrail) error {
	query := `
		INSERT INTO saved_trails (
			id, trail_id, user_id,
			trail_name, trail_image, trail_difficulty,
			trail_rating, trail_distance, trail_time,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (trail_id, user_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		s.ID, s.TrailID, s.UserID,
		s.Trail.Name, s.Trail.Image, string(s.Trail.Difficulty),
		s.Trail.Rating, s.Trail.Distance, s.Trail.Time,
		s.CreatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// DeleteSaved removes a saved trail.
func (r *PostgresRepository) DeleteSaved(ctx context.Context, trailID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM saved_trails WHERE trail_id = $1 AND user_id = $2`, trailID, userID)
	return err
}

// InsertCompletion stores a completion.
func (r *PostgresRepository) InsertCompletion(ctx context.Context, c *Completion) error {
	query := `
		INSERT INTO trail_completions (
			id, trail_id, user_id,
			rating, review_text, difficulty_rating, duration_minutes,
			trail_name, trail_image, trail_difficulty, trail_rating, trail_distance, trail_time,
			completed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		ON CONFLICT (trail_id, user_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		c.ID, c.TrailID, c.UserID,
		c.Rating, c.ReviewText, string(c.DifficultyRating), c.DurationMinutes,
		c.Trail.Name, c.Trail.Image, string(c.Trail.Difficulty), c.Trail.Rating, c.Trail.Distance, c.Trail.Time,
		c.CompletedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrDuplicate
	}
	return nil
}

// DeleteCompletion removes a completion.
func (r *PostgresRepository) DeleteCompletion(ctx context.Context, trailID, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM trail_completions WHERE trail_id = $1 AND user_id = $2`, trailID, userID)
	return err
}

// ListSaved returns the user's saved trails, newest first.
func (r *PostgresRepository) ListSaved(ctx context.Context, userID string) ([]*SavedTrail, error) {
	query := `
		SELECT
			id::text, trail_id::text, user_id::text,
			trail_name, trail_image, trail_difficulty,
			trail_rating, trail_distance, trail_time,
			created_at
		FROM saved_trails
		WHERE user_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SavedTrail
	for rows.Next() {
		var (
			s          SavedTrail
			difficulty string
		)
		err := rows.Scan(
			&s.ID, &s.TrailID, &s.UserID,
			&s.Trail.Name, &s.Trail.Image, &difficulty,
			&s.Trail.Rating, &s.Trail.Distance, &s.Trail.Time,
			&s.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan saved trail: %w", err)
		}
		s.Trail.Difficulty = trail.Difficulty(difficulty)
		items = append(items, &s)
	}

	return items, rows.Err()
}

// ListCompletions returns the user's completions, newest first.
func (r *PostgresRepository) ListCompletions(ctx context.Context, userID string) ([]*Completion, error) {
	query := `
		SELECT
			id::text, trail_id::text, user_id::text,
			rating, review_text, difficulty_rating, duration_minutes,
			trail_name, trail_image, trail_difficulty, trail_rating, trail_distance, trail_time,
			completed_at
		FROM trail_completions
		WHERE user_id = $1
		ORDER BY completed_at DESC
	`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Completion, error) {
		var (
			c                      Completion
			rating                 int16
			difficultyRating, diff string
		)
		err := row.Scan(
			&c.ID, &c.TrailID, &c.UserID,
			&rating, &c.ReviewText, &difficultyRating, &c.DurationMinutes,
			&c.Trail.Name, &c.Trail.Image, &diff, &c.Trail.Rating, &c.Trail.Distance, &c.Trail.Time,
			&c.CompletedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.Rating = int(rating)
		c.DifficultyRating = trail.Difficulty(difficultyRating)
		c.Trail.Difficulty = trail.Difficulty(diff)
		return &c, nil
	})
}

var _ Repository = (*PostgresRepository)(nil)
