package settings

import (
	"context"
	"sync"
	"time"
)

// InMemoryRepository keeps settings in memory. Unset keys fall back to defaults
// in the service.
type InMemoryRepository struct {
	mu       sync.RWMutex
	settings map[string]*Setting
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{settings: make(map[string]*Setting)}
}

// Get returns a copy of the setting stored under key.
func (r *InMemoryRepository) Get(_ context.Context, key string) (*Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.settings[key]
	if !ok {
		return nil, ErrSettingNotFound
	}
	cpy := *s
	return &cpy, nil
}

// All returns copies of every stored setting.
func (r *InMemoryRepository) All(_ context.Context) (map[string]*Setting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]*Setting, len(r.settings))
	for k, s := range r.settings {
		cpy := *s
		out[k] = &cpy
	}
	return out, nil
}

// SetMany upserts settings.
func (r *InMemoryRepository) SetMany(_ context.Context, settings []*Setting) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for _, s := range settings {
		r.settings[s.Key] = &Setting{Key: s.Key, Value: s.Value, UpdatedAt: now}
	}
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
