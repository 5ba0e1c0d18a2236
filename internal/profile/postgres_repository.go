package profile

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository is a PostgreSQL implementation of Repository.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL profile repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a profile by user ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Profile, error) {
	query := `
		SELECT id, username, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = $1
	`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, err
	}
	return p, nil
}

// GetMany retrieves the profiles that exist among ids.
func (r *PostgresRepository) GetMany(ctx context.Context, ids []string) (map[string]*Profile, error) {
	out := make(map[string]*Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT id, username, avatar_url, created_at, updated_at
		FROM profiles
		WHERE id = ANY($1::uuid[])
	`

	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out[p.ID] = p
	}
	return out, rows.Err()
}

// Upsert creates or replaces a profile.
func (r *PostgresRepository) Upsert(ctx context.Context, p *Profile) error {
	query := `
		INSERT INTO profiles (id, username, avatar_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			username = EXCLUDED.username,
			avatar_url = EXCLUDED.avatar_url,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at
	`

	return r.pool.QueryRow(ctx, query,
		p.ID, p.Username, p.AvatarURL, p.CreatedAt, p.UpdatedAt,
	).Scan(&p.CreatedAt)
}

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Username, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}
