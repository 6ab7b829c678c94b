package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores settings as JSONB in the app_settings table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL settings repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Get retrieves a single setting.
func (r *PostgresRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var (
		s   Setting
		raw []byte
	)
	err := r.pool.QueryRow(ctx, `SELECT key, value, updated_at FROM app_settings WHERE key = $1`, key).
		Scan(&s.Key, &raw, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSettingNotFound
		}
		return nil, fmt.Errorf("query setting: %w", err)
	}
	if err := json.Unmarshal(raw, &s.Value); err != nil {
		return nil, fmt.Errorf("decode setting %s: %w", key, err)
	}
	return &s, nil
}

// All retrieves every stored setting.
func (r *PostgresRepository) All(ctx context.Context) (map[string]*Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM app_settings ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	defer rows.Close()

	out := make(map[string]*Setting)
	for rows.Next() {
		var (
			s   Setting
			raw []byte
		)
		if err := rows.Scan(&s.Key, &raw, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		if err := json.Unmarshal(raw, &s.Value); err != nil {
			return nil, fmt.Errorf("decode setting %s: %w", s.Key, err)
		}
		out[s.Key] = &s
	}
	return out, rows.Err()
}

// SetMany upserts settings in one transaction.
func (r *PostgresRepository) SetMany(ctx context.Context, settings []*Setting) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, s := range settings {
		raw, err := json.Marshal(s.Value)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO app_settings (key, value, updated_at) VALUES ($1, $2, now())
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			s.Key, raw)
		if err != nil {
			return fmt.Errorf("upsert setting %s: %w", s.Key, err)
		}
	}
	return tx.Commit(ctx)
}

var _ Repository = (*PostgresRepository)(nil)
