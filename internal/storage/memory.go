package storage

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// DefaultMemoryBaseURL is where the API serves objects from the memory store.
const DefaultMemoryBaseURL = "/api/media"

type memoryObject struct {
	data []byte
	attr Object
}

// MemoryStore keeps objects in memory. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
	baseURL string
}

// NewMemoryStore creates an empty store. baseURL defaults to DefaultMemoryBaseURL.
func NewMemoryStore(baseURL string) *MemoryStore {
	if baseURL == "" {
		baseURL = DefaultMemoryBaseURL
	}
	return &MemoryStore{
		objects: make(map[string]memoryObject),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Put stores the contents of r under key.
func (s *MemoryStore) Put(ctx context.Context, key, contentType string, r io.Reader) (*Object, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}

	key = cleanKey(key)
	attr := Object{Key: key, Size: int64(len(data)), ContentType: contentType, Updated: time.Now().UTC()}

	s.mu.Lock()
	s.objects[key] = memoryObject{data: data, attr: attr}
	s.mu.Unlock()

	return &attr, nil
}

// Open returns a reader over the stored bytes. Put replaces an object's
// bytes rather than modifying them, so an open reader keeps the version it
// started with.
func (s *MemoryStore) Open(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objects[cleanKey(key)]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), nil
}

// Stat returns the attributes of key.
func (s *MemoryStore) Stat(key string) (*Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[cleanKey(key)]
	if !ok {
		return nil, ErrObjectNotFound
	}
	attr := obj.attr
	return &attr, nil
}

// List returns objects under prefix ordered by key.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]Object, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prefix = cleanKey(prefix)
	var out []Object
	for key, obj := range s.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, obj.attr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// PublicURL returns baseURL/key.
func (s *MemoryStore) PublicURL(key string) string {
	return s.baseURL + "/" + cleanKey(key)
}

// Name returns "memory".
func (s *MemoryStore) Name() string { return "memory" }

var _ Store = (*MemoryStore)(nil)
