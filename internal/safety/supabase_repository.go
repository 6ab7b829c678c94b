package safety

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/indiasafety/safetyindex/internal/supabase"
)

const metricsTable = "safety_metrics"

const metricsSelect = "id,state_id,recorded_at,safety_percentage,crime_rate,police_per_capita," +
	"road_safety,healthcare_access,emergency_response,disaster_risk,womens_safety," +
	"data_source_url,created_at,updated_at"

// SupabaseRepository stores records in the safety_metrics table through PostgREST.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository creates a Supabase-backed safety repository.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

type recordRow struct {
	ID                string     `json:"id,omitempty"`
	StateID           string     `json:"state_id"`
	RecordedAt        string     `json:"recorded_at"`
	SafetyPercentage  float64    `json:"safety_percentage"`
	CrimeRate         *float64   `json:"crime_rate"`
	PolicePerCapita   *float64   `json:"police_per_capita"`
	RoadSafety        *float64   `json:"road_safety"`
	HealthcareAccess  *float64   `json:"healthcare_access"`
	EmergencyResponse *float64   `json:"emergency_response"`
	DisasterRisk      *float64   `json:"disaster_risk"`
	WomensSafety      *float64   `json:"womens_safety"`
	DataSourceURL     *string    `json:"data_source_url"`
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	UpdatedAt         *time.Time `json:"updated_at,omitempty"`
}

func toRow(rec *Record) recordRow {
	now := time.Now().UTC()
	return recordRow{
		StateID:           rec.StateID,
		RecordedAt:        FormatDate(rec.RecordedAt),
		SafetyPercentage:  rec.SafetyPercentage,
		CrimeRate:         rec.CrimeRate,
		PolicePerCapita:   rec.PolicePerCapita,
		RoadSafety:        rec.RoadSafety,
		HealthcareAccess:  rec.HealthcareAccess,
		EmergencyResponse: rec.EmergencyResponse,
		DisasterRisk:      rec.DisasterRisk,
		WomensSafety:      rec.WomensSafety,
		DataSourceURL:     rec.DataSourceURL,
		UpdatedAt:         &now,
	}
}

func (row recordRow) toRecord() (*Record, error) {
	raw := row.RecordedAt
	if len(raw) > len("2006-01-02") {
		raw = raw[:len("2006-01-02")]
	}
	recordedAt, err := ParseDate(raw)
	if err != nil {
		return nil, fmt.Errorf("record %s: %w", row.ID, err)
	}
	rec := &Record{
		ID:                row.ID,
		StateID:           row.StateID,
		RecordedAt:        recordedAt,
		SafetyPercentage:  row.SafetyPercentage,
		CrimeRate:         row.CrimeRate,
		PolicePerCapita:   row.PolicePerCapita,
		RoadSafety:        row.RoadSafety,
		HealthcareAccess:  row.HealthcareAccess,
		EmergencyResponse: row.EmergencyResponse,
		DisasterRisk:      row.DisasterRisk,
		WomensSafety:      row.WomensSafety,
		DataSourceURL:     row.DataSourceURL,
	}
	if row.CreatedAt != nil {
		rec.CreatedAt = *row.CreatedAt
	}
	if row.UpdatedAt != nil {
		rec.UpdatedAt = *row.UpdatedAt
	}
	return rec, nil
}

// ListByDate returns records at date ordered by percentage descending.
func (r *SupabaseRepository) ListByDate(ctx context.Context, date time.Time) ([]*Record, error) {
	return r.query(ctx, url.Values{
		"recorded_at": {supabase.Eq(FormatDate(date))},
		"order":       {"safety_percentage.desc"},
	})
}

// ListByStatesAndDate returns the records of the given states at date.
func (r *SupabaseRepository) ListByStatesAndDate(ctx context.Context, stateIDs []string, date time.Time) ([]*Record, error) {
	if len(stateIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx, url.Values{
		"state_id":    {supabase.In(stateIDs)},
		"recorded_at": {supabase.Eq(FormatDate(date))},
	})
}

// Get returns the record of a state at date.
func (r *SupabaseRepository) Get(ctx context.Context, stateID string, date time.Time) (*Record, error) {
	recs, err := r.query(ctx, url.Values{
		"state_id":    {supabase.Eq(stateID)},
		"recorded_at": {supabase.Eq(FormatDate(date))},
		"limit":       {"1"},
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ErrRecordNotFound
	}
	return recs[0], nil
}

// History returns all records of a state ordered by date.
func (r *SupabaseRepository) History(ctx context.Context, stateID string) ([]*Record, error) {
	return r.query(ctx, url.Values{
		"state_id": {supabase.Eq(stateID)},
		"order":    {"recorded_at.asc"},
	})
}

// Upsert merges on (state_id, recorded_at). The payload carries no id or
// created_at so an existing row keeps both.
func (r *SupabaseRepository) Upsert(ctx context.Context, rec *Record) error {
	var rows []recordRow
	if err := r.client.Upsert(ctx, metricsTable, "state_id,recorded_at", toRow(rec), &rows); err != nil {
		return fmt.Errorf("upsert safety record: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("upsert safety record: empty response")
	}
	stored, err := rows[0].toRecord()
	if err != nil {
		return err
	}
	rec.ID = stored.ID
	rec.CreatedAt = stored.CreatedAt
	rec.UpdatedAt = stored.UpdatedAt
	return nil
}

func (r *SupabaseRepository) query(ctx context.Context, params url.Values) ([]*Record, error) {
	params.Set("select", metricsSelect)

	var rows []recordRow
	if err := r.client.Select(ctx, metricsTable, params, &rows); err != nil {
		return nil, fmt.Errorf("query safety records: %w", err)
	}
	out := make([]*Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

var _ Repository = (*SupabaseRepository)(nil)
