package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

const (
	writeTimeout = 2 * time.Minute
	listTimeout  = 30 * time.Second
)

// GCSStore stores objects in a Google Cloud Storage bucket.
type GCSStore struct {
	client        *storage.Client
	bucket        string
	publicBaseURL string
}

// NewGCSStore creates a store on cfg.Bucket using application default
// credentials, or no authentication when an emulator host is set.
func NewGCSStore(ctx context.Context, cfg Config) (*GCSStore, error) {
	opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
	if cfg.EmulatorHost != "" {
		opts = []option.ClientOption{
			option.WithEndpoint(cfg.EmulatorHost + "/storage/v1/"),
			option.WithoutAuthentication(),
		}
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	return &GCSStore{client: client, bucket: cfg.Bucket, publicBaseURL: cfg.PublicBaseURL}, nil
}

// Put streams r into the bucket under key.
func (s *GCSStore) Put(ctx context.Context, key, contentType string, r io.Reader) (*Object, error) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	key = cleanKey(key)
	if contentType == "" {
		contentType = ContentTypeForKey(key)
	}

	w := s.client.Bucket(s.bucket).Object(key).NewWriter(ctx)
	w.ContentType = contentType
	if _, err := io.Copy(w, r); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("write object %q: %w", key, err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close object %q: %w", key, err)
	}

	attrs := w.Attrs()
	return &Object{Key: key, Size: attrs.Size, ContentType: attrs.ContentType, Updated: attrs.Updated}, nil
}

// Open returns a reader for key.
func (s *GCSStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := s.client.Bucket(s.bucket).Object(cleanKey(key)).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return r, nil
}

// List returns the objects under prefix.
func (s *GCSStore) List(ctx context.Context, prefix string) ([]Object, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	it := s.client.Bucket(s.bucket).Objects(ctx, &storage.Query{Prefix: cleanKey(prefix)})
	var out []Object
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list objects: %w", err)
		}
		out = append(out, Object{
			Key:         attrs.Name,
			Size:        attrs.Size,
			ContentType: attrs.ContentType,
			Updated:     attrs.Updated,
		})
	}
	return out, nil
}

// PublicURL returns the public object URL, honoring PublicBaseURL.
func (s *GCSStore) PublicURL(key string) string {
	key = cleanKey(key)
	if s.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", s.publicBaseURL, s.bucket, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", s.bucket, key)
}

// Name returns "gcs".
func (s *GCSStore) Name() string { return "gcs" }

// Close releases the storage client.
func (s *GCSStore) Close() error {
	return s.client.Close()
}

var _ Store = (*GCSStore)(nil)
