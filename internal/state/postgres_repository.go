package state

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the Postgres SQLSTATE for unique constraint failures.
const uniqueViolation = "23505"

// PostgresRepository stores states in the states table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL state repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const selectStates = `SELECT id::text, code, name, created_at FROM states`

// List returns all states ordered by name.
func (r *PostgresRepository) List(ctx context.Context) ([]*State, error) {
	return r.query(ctx, selectStates+` ORDER BY name`)
}

// GetByCode returns the state with the given code.
func (r *PostgresRepository) GetByCode(ctx context.Context, code string) (*State, error) {
	return r.queryOne(ctx, selectStates+` WHERE code = $1`, code)
}

// GetByID returns the state with the given ID.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*State, error) {
	return r.queryOne(ctx, selectStates+` WHERE id::text = $1`, id)
}

// ListByCodes returns the states matching codes.
func (r *PostgresRepository) ListByCodes(ctx context.Context, codes []string) ([]*State, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return r.query(ctx, selectStates+` WHERE code = ANY($1)`, codes)
}

// Create inserts a state.
func (r *PostgresRepository) Create(ctx context.Context, s *State) error {
	err := r.pool.QueryRow(ctx,
		`INSERT INTO states (id, code, name) VALUES ($1, $2, $3) RETURNING created_at`,
		s.ID, s.Code, s.Name,
	).Scan(&s.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert state: %w", err)
	}
	return nil
}

func (r *PostgresRepository) queryOne(ctx context.Context, query string, args ...interface{}) (*State, error) {
	var s State
	err := r.pool.QueryRow(ctx, query, args...).Scan(&s.ID, &s.Code, &s.Name, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStateNotFound
		}
		return nil, fmt.Errorf("query state: %w", err)
	}
	return &s, nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*State, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	defer rows.Close()

	var out []*State
	for rows.Next() {
		var s State
		if err := rows.Scan(&s.ID, &s.Code, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

var _ Repository = (*PostgresRepository)(nil)
