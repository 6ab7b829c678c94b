package safety

import (
	"context"
	"sort"
	"sync"
	"time"
)

type recordKey struct {
	stateID string
	date    string
}

// InMemoryRepository keeps records in memory, preserving insertion order.
type InMemoryRepository struct {
	mu      sync.RWMutex
	records map[recordKey]*Record
	order   []recordKey
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		records: make(map[recordKey]*Record),
	}
}

func keyOf(stateID string, date time.Time) recordKey {
	return recordKey{stateID: stateID, date: FormatDate(date)}
}

// ListByDate returns records at date ordered by percentage descending.
func (r *InMemoryRepository) ListByDate(_ context.Context, date time.Time) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	day := FormatDate(date)
	var out []*Record
	for _, k := range r.order {
		if k.date == day {
			out = append(out, r.records[k].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SafetyPercentage > out[j].SafetyPercentage
	})
	return out, nil
}

// ListByStatesAndDate returns the records of the given states at date.
func (r *InMemoryRepository) ListByStatesAndDate(_ context.Context, stateIDs []string, date time.Time) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, id := range stateIDs {
		if rec, ok := r.records[keyOf(id, date)]; ok {
			out = append(out, rec.Clone())
		}
	}
	return out, nil
}

// Get returns the record of a state at date.
func (r *InMemoryRepository) Get(_ context.Context, stateID string, date time.Time) (*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[keyOf(stateID, date)]
	if !ok {
		return nil, ErrRecordNotFound
	}
	return rec.Clone(), nil
}

// History returns all records of a state ordered by date.
func (r *InMemoryRepository) History(_ context.Context, stateID string) ([]*Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Record
	for _, k := range r.order {
		if k.stateID == stateID {
			out = append(out, r.records[k].Clone())
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].RecordedAt.Before(out[j].RecordedAt)
	})
	return out, nil
}

// Upsert inserts or replaces a record.
func (r *InMemoryRepository) Upsert(_ context.Context, rec *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyOf(rec.StateID, rec.RecordedAt)
	now := time.Now().UTC()
	if existing, ok := r.records[k]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		rec.CreatedAt = now
		r.order = append(r.order, k)
	}
	rec.UpdatedAt = now
	r.records[k] = rec.Clone()
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
