package featureflags

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	selectFlagsQuery = `SELECT key, value, updated_at FROM feature_flags`

	upsertFlagQuery = `
		INSERT INTO feature_flags (key, value, updated_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PostgresRepository stores flag overrides in the feature_flags table, one
// JSONB value per key.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a repository backed by pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// flagRow mirrors a feature_flags row.
type flagRow struct {
	Key       string          `db:"key"`
	Value     json.RawMessage `db:"value"`
	UpdatedAt time.Time       `db:"updated_at"`
}

func (row flagRow) flag() (*Flag, error) {
	f := &Flag{Key: row.Key, UpdatedAt: row.UpdatedAt}
	if err := json.Unmarshal(row.Value, &f.Value); err != nil {
		return nil, fmt.Errorf("decoding flag %s: %w", row.Key, err)
	}
	return f, nil
}

// GetFlag returns the stored override for key, or ErrFlagNotFound.
func (r *PostgresRepository) GetFlag(ctx context.Context, key string) (*Flag, error) {
	rows, err := r.pool.Query(ctx, selectFlagsQuery+` WHERE key = $1`, key)
	if err != nil {
		return nil, err
	}
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[flagRow])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrFlagNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.flag()
}

// GetAllFlags returns every stored override keyed by flag key.
func (r *PostgresRepository) GetAllFlags(ctx context.Context) (map[string]*Flag, error) {
	rows, err := r.pool.Query(ctx, selectFlagsQuery)
	if err != nil {
		return nil, err
	}
	stored, err := pgx.CollectRows(rows, pgx.RowToStructByName[flagRow])
	if err != nil {
		return nil, err
	}

	flags := make(map[string]*Flag, len(stored))
	for _, row := range stored {
		f, err := row.flag()
		if err != nil {
			return nil, err
		}
		flags[f.Key] = f
	}
	return flags, nil
}

// SetFlag upserts one override.
func (r *PostgresRepository) SetFlag(ctx context.Context, flag *Flag) error {
	return r.SetFlags(ctx, []*Flag{flag})
}

// SetFlags upserts several overrides in one transaction.
func (r *PostgresRepository) SetFlags(ctx context.Context, flags []*Flag) error {
	batch := &pgx.Batch{}
	for _, flag := range flags {
		value, err := json.Marshal(flag.Value)
		if err != nil {
			return fmt.Errorf("encoding flag %s: %w", flag.Key, err)
		}
		if flag.UpdatedAt.IsZero() {
			flag.UpdatedAt = time.Now()
		}
		batch.Queue(upsertFlagQuery, flag.Key, value, flag.UpdatedAt)
	}

	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
}

// DeleteFlag removes the override for key. Deleting a missing key is not an
// error.
func (r *PostgresRepository) DeleteFlag(ctx context.Context, key string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM feature_flags WHERE key = $1`, key)
	return err
}

var _ Repository = (*PostgresRepository)(nil)
