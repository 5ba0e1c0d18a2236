package trailstatus_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trailhub/trailhub/internal/database"
	"github.com/trailhub/trailhub/internal/trail"
	"github.com/trailhub/trailhub/internal/trailstatus"
)

func repositories(t *testing.T) map[string]trailstatus.Repository {
	t.Helper()

	db, err := database.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return map[string]trailstatus.Repository{
		"memory": trailstatus.NewInMemoryRepository(),
		"sqlite": trailstatus.NewSQLiteRepository(db),
	}
}

func TestRepository_Contract(t *testing.T) {
	for name, repo := range repositories(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			base := time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC)

			ok, err := repo.SavedExists(ctx, testTrailID, testUserID)
			require.NoError(t, err)
			assert.False(t, ok)

			older := &trailstatus.SavedTrail{
				ID: "5f1b1a52-1e0a-4c1e-8d2a-111111111111", TrailID: testTrailID, UserID: testUserID,
				Trail: testSnapshot, CreatedAt: base,
			}
			require.NoError(t, repo.InsertSaved(ctx, older))

			dup := *older
			dup.ID = "5f1b1a52-1e0a-4c1e-8d2a-222222222222"
			assert.ErrorIs(t, repo.InsertSaved(ctx, &dup), trailstatus.ErrDuplicate)

			otherTrail := trail.NameID("River Walk")
			newer := &trailstatus.SavedTrail{
				ID: "5f1b1a52-1e0a-4c1e-8d2a-333333333333", TrailID: otherTrail, UserID: testUserID,
				Trail: testSnapshot, CreatedAt: base.Add(90 * time.Second),
			}
			require.NoError(t, repo.InsertSaved(ctx, newer))

			ok, err = repo.SavedExists(ctx, testTrailID, testUserID)
			require.NoError(t, err)
			assert.True(t, ok)

			saved, err := repo.ListSaved(ctx, testUserID)
			require.NoError(t, err)
			require.Len(t, saved, 2)
			assert.Equal(t, otherTrail, saved[0].TrailID)
			assert.Equal(t, testSnapshot, saved[1].Trail)
			assert.True(t, base.Equal(saved[1].CreatedAt))

			completion := &trailstatus.Completion{
				ID: "5f1b1a52-1e0a-4c1e-8d2a-444444444444", TrailID: testTrailID, UserID: testUserID,
				Rating: 4, ReviewText: "muddy", DifficultyRating: trail.DifficultyHard, DurationMinutes: 95,
				Trail: testSnapshot, CompletedAt: base,
			}
			require.NoError(t, repo.InsertCompletion(ctx, completion))
			assert.ErrorIs(t, repo.InsertCompletion(ctx, completion), trailstatus.ErrDuplicate)

			ok, err = repo.CompletionExists(ctx, testTrailID, testUserID)
			require.NoError(t, err)
			assert.True(t, ok)

			completions, err := repo.ListCompletions(ctx, testUserID)
			require.NoError(t, err)
			require.Len(t, completions, 1)
			assert.Equal(t, 4, completions[0].Rating)
			assert.Equal(t, trail.DifficultyHard, completions[0].DifficultyRating)
			assert.Equal(t, 95, completions[0].DurationMinutes)
			assert.Equal(t, "muddy", completions[0].ReviewText)
			assert.Equal(t, testSnapshot, completions[0].Trail)
			assert.True(t, base.Equal(completions[0].CompletedAt))

			require.NoError(t, repo.DeleteSaved(ctx, testTrailID, testUserID))
			require.NoError(t, repo.DeleteSaved(ctx, testTrailID, testUserID))
			require.NoError(t, repo.DeleteCompletion(ctx, testTrailID, testUserID))

			ok, err = repo.SavedExists(ctx, testTrailID, testUserID)
			require.NoError(t, err)
			assert.False(t, ok)
			ok, err = repo.CompletionExists(ctx, testTrailID, testUserID)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestOpenSQLite_AddsCompletionRatingToOlderFiles(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "trailhub.db")

	legacy, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	_, err = legacy.ExecContext(ctx, `CREATE TABLE trail_completions (
		id TEXT PRIMARY KEY, trail_id TEXT NOT NULL, user_id TEXT NOT NULL,
		rating INTEGER NOT NULL, review_text TEXT NOT NULL DEFAULT '',
		difficulty_rating TEXT NOT NULL, duration_minutes INTEGER NOT NULL,
		trail_name TEXT NOT NULL, trail_image TEXT NOT NULL DEFAULT '',
		trail_difficulty TEXT NOT NULL, trail_distance REAL NOT NULL DEFAULT 0,
		trail_time TEXT NOT NULL DEFAULT '', completed_at TEXT NOT NULL,
		UNIQUE (trail_id, user_id))`)
	require.NoError(t, err)
	require.NoError(t, legacy.Close())

	db, err := database.OpenSQLite(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo := trailstatus.NewSQLiteRepository(db)
	require.NoError(t, repo.InsertCompletion(ctx, &trailstatus.Completion{
		ID: "5f1b1a52-1e0a-4c1e-8d2a-555555555555", TrailID: testTrailID, UserID: testUserID,
		Rating: 5, DifficultyRating: trail.DifficultyEasy, DurationMinutes: 60,
		Trail: testSnapshot, CompletedAt: time.Date(2026, 3, 14, 8, 30, 0, 0, time.UTC),
	}))

	completions, err := repo.ListCompletions(ctx, testUserID)
	require.NoError(t, err)
	require.Len(t, completions, 1)
	assert.Equal(t, testSnapshot.Rating, completions[0].Trail.Rating)
}
