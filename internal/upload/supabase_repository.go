package upload

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/indiasafety/safetyindex/internal/supabase"
)

const uploadsTable = "data_uploads"

// SupabaseRepository stores uploads in the data_uploads table through PostgREST.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository creates a Supabase-backed upload repository.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

type uploadRow struct {
	ID            string     `json:"id,omitempty"`
	Filename      string     `json:"filename,omitempty"`
	FileType      string     `json:"file_type,omitempty"`
	SourceURL     *string    `json:"source_url,omitempty"`
	Status        string     `json:"status"`
	ErrorMessage  *string    `json:"error_message"`
	ObjectKey     *string    `json:"object_key"`
	ProcessedRows int        `json:"processed_rows"`
	TotalRows     int        `json:"total_rows"`
	CreatedAt     *time.Time `json:"created_at,omitempty"`
	UpdatedAt     *time.Time `json:"updated_at,omitempty"`
}

func (row uploadRow) toUpload() *Upload {
	u := &Upload{
		ID:            row.ID,
		Filename:      row.Filename,
		FileType:      row.FileType,
		SourceURL:     row.SourceURL,
		Status:        Status(row.Status),
		ErrorMessage:  row.ErrorMessage,
		ObjectKey:     row.ObjectKey,
		ProcessedRows: row.ProcessedRows,
		TotalRows:     row.TotalRows,
	}
	if row.CreatedAt != nil {
		u.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		u.UpdatedAt = *row.UpdatedAt
	}
	return u
}

// List returns all uploads, newest first.
func (r *SupabaseRepository) List(ctx context.Context) ([]*Upload, error) {
	var rows []uploadRow
	if err := r.client.Select(ctx, uploadsTable, url.Values{"order": {"created_at.desc"}}, &rows); err != nil {
		return nil, fmt.Errorf("query uploads: %w", err)
	}
	out := make([]*Upload, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toUpload())
	}
	return out, nil
}

// Get returns the upload with the given ID.
func (r *SupabaseRepository) Get(ctx context.Context, id string) (*Upload, error) {
	var rows []uploadRow
	params := url.Values{"id": {supabase.Eq(id)}, "limit": {"1"}}
	if err := r.client.Select(ctx, uploadsTable, params, &rows); err != nil {
		return nil, fmt.Errorf("query upload: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrUploadNotFound
	}
	return rows[0].toUpload(), nil
}

// Create inserts an upload.
func (r *SupabaseRepository) Create(ctx context.Context, u *Upload) error {
	row := uploadRow{
		ID:            u.ID,
		Filename:      u.Filename,
		FileType:      u.FileType,
		SourceURL:     u.SourceURL,
		Status:        string(u.Status),
		ErrorMessage:  u.ErrorMessage,
		ObjectKey:     u.ObjectKey,
		ProcessedRows: u.ProcessedRows,
		TotalRows:     u.TotalRows,
	}
	var rows []uploadRow
	if err := r.client.Insert(ctx, uploadsTable, row, &rows); err != nil {
		return fmt.Errorf("insert upload: %w", err)
	}
	r.stamp(u, rows)
	return nil
}

// Update replaces an upload's mutable fields.
func (r *SupabaseRepository) Update(ctx context.Context, u *Upload) error {
	now := time.Now().UTC()
	patch := uploadRow{
		Status:        string(u.Status),
		ErrorMessage:  u.ErrorMessage,
		ObjectKey:     u.ObjectKey,
		ProcessedRows: u.ProcessedRows,
		TotalRows:     u.TotalRows,
		UpdatedAt:     &now,
	}
	var rows []uploadRow
	if err := r.client.Update(ctx, uploadsTable, url.Values{"id": {supabase.Eq(u.ID)}}, patch, &rows); err != nil {
		return fmt.Errorf("update upload: %w", err)
	}
	if len(rows) == 0 {
		return ErrUploadNotFound
	}
	r.stamp(u, rows)
	return nil
}

func (r *SupabaseRepository) stamp(u *Upload, rows []uploadRow) {
	if len(rows) == 0 {
		return
	}
	if rows[0].CreatedAt != nil {
		u.CreatedAt = *rows[0].CreatedAt
	}
	if rows[0].UpdatedAt != nil {
		u.UpdatedAt = *rows[0].UpdatedAt
	}
}

var _ Repository = (*SupabaseRepository)(nil)
