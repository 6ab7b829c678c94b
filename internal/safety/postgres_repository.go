package safety

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRepository stores records in the safety_metrics table.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a PostgreSQL safety repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const recordColumns = `id::text, state_id::text, recorded_at, safety_percentage,
	crime_rate, police_per_capita, road_safety, healthcare_access,
	emergency_response, disaster_risk, womens_safety, data_source_url,
	created_at, updated_at`

// ListByDate returns records at date ordered by percentage descending.
func (r *PostgresRepository) ListByDate(ctx context.Context, date time.Time) ([]*Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM safety_metrics
		WHERE recorded_at = $1 ORDER BY safety_percentage DESC`, date)
}

// ListByStatesAndDate returns the records of the given states at date.
func (r *PostgresRepository) ListByStatesAndDate(ctx context.Context, stateIDs []string, date time.Time) ([]*Record, error) {
	if len(stateIDs) == 0 {
		return nil, nil
	}
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM safety_metrics
		WHERE state_id::text = ANY($1) AND recorded_at = $2`, stateIDs, date)
}

// Get returns the record of a state at date.
func (r *PostgresRepository) Get(ctx context.Context, stateID string, date time.Time) (*Record, error) {
	rec, err := scanRecord(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM safety_metrics
		WHERE state_id::text = $1 AND recorded_at = $2`, stateID, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("query safety record: %w", err)
	}
	return rec, nil
}

// History returns all records of a state ordered by date.
func (r *PostgresRepository) History(ctx context.Context, stateID string) ([]*Record, error) {
	return r.query(ctx,
		`SELECT `+recordColumns+` FROM safety_metrics
		WHERE state_id::text = $1 ORDER BY recorded_at ASC`, stateID)
}

// Upsert inserts or replaces a record keyed by (state_id, recorded_at).
func (r *PostgresRepository) Upsert(ctx context.Context, rec *Record) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO safety_metrics (
			id, state_id, recorded_at, safety_percentage,
			crime_rate, police_per_capita, road_safety, healthcare_access,
			emergency_response, disaster_risk, womens_safety, data_source_url
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (state_id, recorded_at) DO UPDATE SET
			safety_percentage = EXCLUDED.safety_percentage,
			crime_rate = EXCLUDED.crime_rate,
			police_per_capita = EXCLUDED.police_per_capita,
			road_safety = EXCLUDED.road_safety,
			healthcare_access = EXCLUDED.healthcare_access,
			emergency_response = EXCLUDED.emergency_response,
			disaster_risk = EXCLUDED.disaster_risk,
			womens_safety = EXCLUDED.womens_safety,
			data_source_url = EXCLUDED.data_source_url,
			updated_at = now()
		RETURNING id::text, created_at, updated_at`,
		rec.ID, rec.StateID, rec.RecordedAt, rec.SafetyPercentage,
		rec.CrimeRate, rec.PolicePerCapita, rec.RoadSafety, rec.HealthcareAccess,
		rec.EmergencyResponse, rec.DisasterRisk, rec.WomensSafety, rec.DataSourceURL,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert safety record: %w", err)
	}
	return nil
}

func (r *PostgresRepository) query(ctx context.Context, query string, args ...interface{}) ([]*Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query safety records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan safety record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanRecord(row pgx.Row) (*Record, error) {
	var rec Record
	err := row.Scan(
		&rec.ID, &rec.StateID, &rec.RecordedAt, &rec.SafetyPercentage,
		&rec.CrimeRate, &rec.PolicePerCapita, &rec.RoadSafety, &rec.HealthcareAccess,
		&rec.EmergencyResponse, &rec.DisasterRisk, &rec.WomensSafety, &rec.DataSourceURL,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	rec.RecordedAt = rec.RecordedAt.UTC()
	return &rec, nil
}

var _ Repository = (*PostgresRepository)(nil)
