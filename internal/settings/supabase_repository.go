package settings

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/indiasafety/safetyindex/internal/supabase"
)

const settingsTable = "app_settings"

// SupabaseRepository stores settings in app_settings through PostgREST.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository creates a Supabase-backed settings repository.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

type settingRow struct {
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	UpdatedAt *time.Time  `json:"updated_at,omitempty"`
}

func (row settingRow) toSetting() *Setting {
	s := &Setting{Key: row.Key, Value: row.Value}
	if row.UpdatedAt != nil {
		s.UpdatedAt = *row.UpdatedAt
	}
	return s
}

// Get retrieves a single setting.
func (r *SupabaseRepository) Get(ctx context.Context, key string) (*Setting, error) {
	var rows []settingRow
	if err := r.client.Select(ctx, settingsTable, url.Values{"key": {supabase.Eq(key)}, "limit": {"1"}}, &rows); err != nil {
		return nil, fmt.Errorf("query setting: %w", err)
	}
	if len(rows) == 0 {
		return nil, ErrSettingNotFound
	}
	return rows[0].toSetting(), nil
}

// All retrieves every stored setting.
func (r *SupabaseRepository) All(ctx context.Context) (map[string]*Setting, error) {
	var rows []settingRow
	if err := r.client.Select(ctx, settingsTable, url.Values{"order": {"key.asc"}}, &rows); err != nil {
		return nil, fmt.Errorf("query settings: %w", err)
	}
	out := make(map[string]*Setting, len(rows))
	for _, row := range rows {
		out[row.Key] = row.toSetting()
	}
	return out, nil
}

// SetMany upserts all settings in a single bulk request.
func (r *SupabaseRepository) SetMany(ctx context.Context, settings []*Setting) error {
	if len(settings) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]settingRow, 0, len(settings))
	for _, s := range settings {
		rows = append(rows, settingRow{Key: s.Key, Value: s.Value, UpdatedAt: &now})
	}
	if err := r.client.Upsert(ctx, settingsTable, "key", rows, nil); err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

var _ Repository = (*SupabaseRepository)(nil)
