package trailstatus

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trailhub/trailhub/internal/trail"
)

// Fixed-width UTC timestamps keep ORDER BY on TEXT columns chronological.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteRepository is a SQLite implementation of Repository used for local
// development and the operator CLI. The schema is applied by database.OpenSQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite trail status repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// SavedExists reports whether the user saved the trail.
func (r *SQLiteRepository) SavedExists(ctx context.Context, trailID, userID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM saved_trails WHERE trail_id = ? AND user_id = ?)`, trailID, userID)
}

// CompletionExists reports whether the user completed the trail.
func (r *SQLiteRepository) CompletionExists(ctx context.Context, trailID, userID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM trail_completions WHERE trail_id = ? AND user_id = ?)`, trailID, userID)
}

func (r *SQLiteRepository) exists(ctx context.Context, query, trailID, userID string) (bool, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, query, trailID, userID).Scan(&n); err != nil {
		return false, err
	}
	return n == 1, nil
}

// InsertSaved stores a saved trail.
func (r *SQLiteRepository) InsertSaved(ctx context.Context, s *SavedTrail) error {
	query := `
		INSERT INTO saved_trails (
			id, trail_id, user_id,
			trail_name, trail_image, trail_difficulty,
			trail_rating, trail_distance, trail_time,
			created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trail_id, user_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		s.ID, s.TrailID, s.UserID,
		s.Trail.Name, s.Trail.Image, string(s.Trail.Difficulty),
		s.Trail.Rating, s.Trail.Distance, s.Trail.Time,
		formatSQLiteTime(s.CreatedAt),
	)
	return insertResult(res, err)
}

// DeleteSaved removes a saved trail.
func (r *SQLiteRepository) DeleteSaved(ctx context.Context, trailID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM saved_trails WHERE trail_id = ? AND user_id = ?`, trailID, userID)
	return err
}

// InsertCompletion stores a completion.
func (r *SQLiteRepository) InsertCompletion(ctx context.Context, c *Completion) error {
	query := `
		INSERT INTO trail_completions (
			id, trail_id, user_id,
			rating, review_text, difficulty_rating, duration_minutes,
			trail_name, trail_image, trail_difficulty, trail_rating, trail_distance, trail_time,
			completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (trail_id, user_id) DO NOTHING
	`

	res, err := r.db.ExecContext(ctx, query,
		c.ID, c.TrailID, c.UserID,
		c.Rating, c.ReviewText, string(c.DifficultyRating), c.DurationMinutes,
		c.Trail.Name, c.Trail.Image, string(c.Trail.Difficulty), c.Trail.Rating, c.Trail.Distance, c.Trail.Time,
		formatSQLiteTime(c.CompletedAt),
	)
	return insertResult(res, err)
}

// DeleteCompletion removes a completion.
func (r *SQLiteRepository) DeleteCompletion(ctx context.Context, trailID, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM trail_completions WHERE trail_id = ? AND user_id = ?`, trailID, userID)
	return err
}

// ListSaved returns the user's saved trails, newest first.
func (r *SQLiteRepository) ListSaved(ctx context.Context, userID string) ([]*SavedTrail, error) {
	query := `
		SELECT
			id, trail_id, user_id,
			trail_name, trail_image, trail_difficulty,
			trail_rating, trail_distance, trail_time,
			created_at
		FROM saved_trails
		WHERE user_id = ?
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*SavedTrail
	for rows.Next() {
		var (
			s                   SavedTrail
			difficulty, created string
		)
		err := rows.Scan(
			&s.ID, &s.TrailID, &s.UserID,
			&s.Trail.Name, &s.Trail.Image, &difficulty,
			&s.Trail.Rating, &s.Trail.Distance, &s.Trail.Time,
			&created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan saved trail: %w", err)
		}
		s.Trail.Difficulty = trail.Difficulty(difficulty)
		if s.CreatedAt, err = parseSQLiteTime(created); err != nil {
			return nil, err
		}
		items = append(items, &s)
	}

	return items, rows.Err()
}

// ListCompletions returns the user's completions, newest first.
func (r *SQLiteRepository) ListCompletions(ctx context.Context, userID string) ([]*Completion, error) {
	query := `
		SELECT
			id, trail_id, user_id,
			rating, review_text, difficulty_rating, duration_minutes,
			trail_name, trail_image, trail_difficulty, trail_rating, trail_distance, trail_time,
			completed_at
		FROM trail_completions
		WHERE user_id = ?
		ORDER BY completed_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Completion
	for rows.Next() {
		var (
			c                               Completion
			difficultyRating, diff, created string
		)
		err := rows.Scan(
			&c.ID, &c.TrailID, &c.UserID,
			&c.Rating, &c.ReviewText, &difficultyRating, &c.DurationMinutes,
			&c.Trail.Name, &c.Trail.Image, &diff, &c.Trail.Rating, &c.Trail.Distance, &c.Trail.Time,
			&created,
		)
		if err != nil {
			return nil, fmt.Errorf("scan completion: %w", err)
		}
		c.DifficultyRating = trail.Difficulty(difficultyRating)
		c.Trail.Difficulty = trail.Difficulty(diff)
		if c.CompletedAt, err = parseSQLiteTime(created); err != nil {
			return nil, err
		}
		items = append(items, &c)
	}

	return items, rows.Err()
}

func insertResult(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrDuplicate
	}
	return nil
}

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTimeLayout)
}

func parseSQLiteTime(s string) (time.Time, error) {
	t, err := time.Parse(sqliteTimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ Repository = (*SQLiteRepository)(nil)
