package apikey

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists api_keys rows (spec §6: "api_keys(id PK, user_name,
// api_key UNIQUE, role_id, status)"). Grounded on
// internal/repository's Store+pgxpool.Pool idiom and
// other_examples/745ce4c4_..._persistence.go.go's Scan-per-row pattern;
// kept as its own small repository rather than folded into
// internal/repository since api_keys is an auth-plane table, not a
// chain-record entity with a subject/cursor.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository wraps pool for api_keys persistence.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert creates a new Active row. A collision on the generated secret
// value (vanishingly unlikely, but checked rather than assumed) surfaces
// as an ordinary wrapped error for the caller to retry with a fresh
// value.
func (r *Repository) Insert(ctx context.Context, k Key) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO api_keys (id, user_name, api_key, role_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		k.ID, k.UserName, k.Value, k.RoleName, string(k.Status), k.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("apikey: insert: %w", err)
	}
	return nil
}

// FindByValue looks up a key by its secret value, the lookup the
// middleware does on every request.
func (r *Repository) FindByValue(ctx context.Context, value string) (Key, error) {
	return r.queryOne(ctx, `SELECT * FROM api_keys WHERE api_key = $1`, value)
}

// UpdateStatus sets status on the row identified by value, returning the
// updated Key (spec: DbApiKey::update_status).
func (r *Repository) UpdateStatus(ctx context.Context, value string, status Status) (Key, error) {
	return r.queryOne(ctx, `
		UPDATE api_keys SET status = $1 WHERE api_key = $2
		RETURNING *`, string(status), value)
}

// UpdateValue rotates the secret value on the row identified by id,
// returning the updated Key (spec's Supplemented Features: admin
// rotate).
func (r *Repository) UpdateValue(ctx context.Context, id uuid.UUID, newValue string) (Key, error) {
	return r.queryOne(ctx, `
		UPDATE api_keys SET api_key = $1 WHERE id = $2
		RETURNING *`, newValue, id)
}

func (r *Repository) queryOne(ctx context.Context, sql string, args ...any) (Key, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return Key{}, fmt.Errorf("apikey: query: %w", err)
	}
	defer rows.Close()
	row, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[Row])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Key{}, ErrNotFound
		}
		return Key{}, fmt.Errorf("apikey: query: %w", err)
	}
	return row.toKey(), nil
}

// List returns every issued key, ordered by creation time (spec's
// ApiKey::fetch_all).
func (r *Repository) List(ctx context.Context) ([]Key, error) {
	rows, err := r.pool.Query(ctx, `SELECT * FROM api_keys ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("apikey: list: %w", err)
	}
	defer rows.Close()
	out, err := pgx.CollectRows(rows, pgx.RowToStructByName[Row])
	if err != nil {
		return nil, fmt.Errorf("apikey: list: %w", err)
	}
	keys := make([]Key, len(out))
	for i, row := range out {
		keys[i] = row.toKey()
	}
	return keys, nil
}
