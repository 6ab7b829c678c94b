package upload

import (
	"context"
	"sort"
	"sync"
	"time"
)

// InMemoryRepository keeps the upload history in memory.
type InMemoryRepository struct {
	mu      sync.RWMutex
	uploads map[string]*Upload
	seq     int64
	order   map[string]int64
}

// NewInMemoryRepository creates an empty repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		uploads: make(map[string]*Upload),
		order:   make(map[string]int64),
	}
}

// List returns all uploads, newest first. Uploads created in the same instant
// are ordered by insertion.
func (r *InMemoryRepository) List(_ context.Context) ([]*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Upload, 0, len(r.uploads))
	for _, u := range r.uploads {
		out = append(out, u.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return r.order[out[i].ID] > r.order[out[j].ID]
	})
	return out, nil
}

// Get returns the upload with the given ID.
func (r *InMemoryRepository) Get(_ context.Context, id string) (*Upload, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.uploads[id]
	if !ok {
		return nil, ErrUploadNotFound
	}
	return u.Clone(), nil
}

// Create inserts an upload.
func (r *InMemoryRepository) Create(_ context.Context, u *Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	r.seq++
	r.order[u.ID] = r.seq
	r.uploads[u.ID] = u.Clone()
	return nil
}

// Update replaces an upload's mutable fields.
func (r *InMemoryRepository) Update(_ context.Context, u *Upload) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.uploads[u.ID]
	if !ok {
		return ErrUploadNotFound
	}
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = time.Now().UTC()
	r.uploads[u.ID] = u.Clone()
	return nil
}

var _ Repository = (*InMemoryRepository)(nil)
