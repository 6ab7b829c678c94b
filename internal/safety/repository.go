package safety

import (
	"context"
	"time"
)

// Repository defines persistence for safety metric records.
type Repository interface {
	// ListByDate returns all records recorded at date, ordered by
	// safety_percentage descending.
	ListByDate(ctx context.Context, date time.Time) ([]*Record, error)

	// ListByStatesAndDate returns the records of the given states at date.
	ListByStatesAndDate(ctx context.Context, stateIDs []string, date time.Time) ([]*Record, error)

	// Get returns the record of a state at date, or ErrRecordNotFound.
	Get(ctx context.Context, stateID string, date time.Time) (*Record, error)

	// History returns all records of a state ordered by recorded_at ascending.
	History(ctx context.Context, stateID string) ([]*Record, error)

	// Upsert inserts or replaces the record for (state_id, recorded_at).
	// An existing row keeps its ID and created_at; rec is updated in place.
	Upsert(ctx context.Context, rec *Record) error
}
