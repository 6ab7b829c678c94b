package state

import (
	"context"
	"sync"

	"github.com/indiasafety/safetyindex/internal/textsort"
)

// InMemoryRepository keeps states in memory. It backs demo mode and tests.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*State
	byCode map[string]string
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*State),
		byCode: make(map[string]string),
	}
}

// List returns all states ordered by name.
func (r *InMemoryRepository) List(_ context.Context) ([]*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*State, 0, len(r.byID))
	for _, s := range r.byID {
		cpy := *s
		out = append(out, &cpy)
	}
	textsort.Stable(out, func(s *State) string { return s.Name }, false)
	return out, nil
}

// GetByCode returns the state with the given code.
func (r *InMemoryRepository) GetByCode(_ context.Context, code string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byCode[code]
	if !ok {
		return nil, ErrStateNotFound
	}
	cpy := *r.byID[id]
	return &cpy, nil
}

// GetByID returns the state with the given ID.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.byID[id]
	if !ok {
		return nil, ErrStateNotFound
	}
	cpy := *s
	return &cpy, nil
}

// ListByCodes returns the states matching codes.
func (r *InMemoryRepository) ListByCodes(_ context.Context, codes []string) ([]*State, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*State, 0, len(codes))
	for _, code := range codes {
		if id, ok := r.byCode[code]; ok {
			cpy := *r.byID[id]
			out = append(out, &cpy)
		}
	}
	return out, nil
}

// Create inserts a state.
func (r *InMemoryRepository) Create(_ context.Context, s *State) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byCode[s.Code]; ok {
		return ErrDuplicateCode
	}
	cpy := *s
	r.byID[s.ID] = &cpy
	r.byCode[s.Code] = s.ID
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
