package state

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/indiasafety/safetyindex/internal/supabase"
)

const statesTable = "states"

// SupabaseRepository reads and writes states through PostgREST.
type SupabaseRepository struct {
	client *supabase.Client
}

// NewSupabaseRepository creates a Supabase-backed state repository.
func NewSupabaseRepository(client *supabase.Client) *SupabaseRepository {
	return &SupabaseRepository{client: client}
}

type stateRow struct {
	ID        string     `json:"id,omitempty"`
	Code      string     `json:"code"`
	Name      string     `json:"name"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

func (row stateRow) toState() *State {
	s := &State{ID: row.ID, Code: row.Code, Name: row.Name}
	if row.CreatedAt != nil {
		s.CreatedAt = *row.CreatedAt
	}
	return s
}

// List returns all states ordered by name.
func (r *SupabaseRepository) List(ctx context.Context) ([]*State, error) {
	return r.selectStates(ctx, url.Values{"order": {"name.asc"}})
}

// GetByCode returns the state with the given code.
func (r *SupabaseRepository) GetByCode(ctx context.Context, code string) (*State, error) {
	return r.selectOne(ctx, url.Values{"code": {supabase.Eq(code)}, "limit": {"1"}})
}

// GetByID returns the state with the given ID.
func (r *SupabaseRepository) GetByID(ctx context.Context, id string) (*State, error) {
	return r.selectOne(ctx, url.Values{"id": {supabase.Eq(id)}, "limit": {"1"}})
}

// ListByCodes returns the states whose codes are in codes.
func (r *SupabaseRepository) ListByCodes(ctx context.Context, codes []string) ([]*State, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	return r.selectStates(ctx, url.Values{"code": {supabase.In(codes)}})
}

// Create inserts a state.
func (r *SupabaseRepository) Create(ctx context.Context, s *State) error {
	var rows []stateRow
	err := r.client.Insert(ctx, statesTable, stateRow{ID: s.ID, Code: s.Code, Name: s.Name}, &rows)
	if err != nil {
		if supabase.IsConflict(err) {
			return ErrDuplicateCode
		}
		return fmt.Errorf("insert state: %w", err)
	}
	if len(rows) > 0 && rows[0].CreatedAt != nil {
		s.CreatedAt = *rows[0].CreatedAt
	}
	return nil
}

func (r *SupabaseRepository) selectOne(ctx context.Context, params url.Values) (*State, error) {
	states, err := r.selectStates(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(states) == 0 {
		return nil, ErrStateNotFound
	}
	return states[0], nil
}

func (r *SupabaseRepository) selectStates(ctx context.Context, params url.Values) ([]*State, error) {
	params.Set("select", "id,code,name,created_at")

	var rows []stateRow
	if err := r.client.Select(ctx, statesTable, params, &rows); err != nil {
		return nil, fmt.Errorf("query states: %w", err)
	}
	out := make([]*State, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toState())
	}
	return out, nil
}

var _ Repository = (*SupabaseRepository)(nil)
