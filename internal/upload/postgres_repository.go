package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores uploads in the data_uploads table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL upload repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const uploadColumns = `id::text, filename, file_type, source_url, status, error_message,
	object_key, processed_rows, total_rows, created_at, updated_at`

// List returns all uploads, newest first.
func (r *PostgresRepository) List(ctx context.Context) ([]*Upload, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+uploadColumns+` FROM data_uploads ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	defer rows.Close()

	var out []*Upload
	for rows.Next() {
		u, err := scanUpload(rows)
		if err != nil {
			return nil, fmt.Errorf("scan upload: %w", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// Get returns the upload with the given ID.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*Upload, error) {
	u, err := scanUpload(r.pool.QueryRow(ctx, `SELECT `+uploadColumns+` FROM data_uploads WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUploadNotFound
		}
		return nil, fmt.Errorf("query upload: %w", err)
	}
	return u, nil
}

// Create inserts an upload.
func (r *PostgresRepository) Create(ctx context.Context, u *Upload) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO data_uploads (id, filename, file_type, source_url, status, error_message,
			object_key, processed_rows, total_rows)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at`,
		u.ID, u.Filename, u.FileType, u.SourceURL, string(u.Status), u.ErrorMessage,
		u.ObjectKey, u.ProcessedRows, u.TotalRows,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	return nil
}

// Update replaces an upload's mutable fields.
func (r *PostgresRepository) Update(ctx context.Context, u *Upload) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE data_uploads SET status = $2, error_message = $3, object_key = $4,
			processed_rows = $5, total_rows = $6, updated_at = now()
		WHERE id::text = $1
		RETURNING created_at, updated_at`,
		u.ID, string(u.Status), u.ErrorMessage, u.ObjectKey, u.ProcessedRows, u.TotalRows,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUploadNotFound
		}
		return fmt.Errorf("update upload: %w", err)
	}
	return nil
}

func scanUpload(row pgx.Row) (*Upload, error) {
	var (
		u      Upload
		status string
	)
	err := row.Scan(&u.ID, &u.Filename, &u.FileType, &u.SourceURL, &status, &u.ErrorMessage,
		&u.ObjectKey, &u.ProcessedRows, &u.TotalRows, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Status = Status(status)
	return &u, nil
}

var _ Repository = (*PostgresRepository)(nil)
