// Package storage retains uploaded files and media in object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"
	"time"
)

// ErrObjectNotFound is returned when a key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Object describes a stored object.
type Object struct {
	Key         string
	Size        int64
	ContentType string
	Updated     time.Time
}

// Store is an object store addressed by slash-separated keys.
type Store interface {
	// Put writes r under key and returns the stored object's attributes.
	Put(ctx context.Context, key, contentType string, r io.Reader) (*Object, error)

	// Open returns a reader for key. The caller closes it.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// List returns the objects whose keys start with prefix, ordered by key.
	List(ctx context.Context, prefix string) ([]Object, error)

	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string

	// Name identifies the backend in status output.
	Name() string
}

// Config holds object storage configuration.
type Config struct {
	// Bucket is the GCS bucket. Empty selects the in-memory store.
	Bucket string

	// PublicBaseURL overrides the public object URL prefix.
	PublicBaseURL string

	// EmulatorHost points the GCS client at a local emulator.
	EmulatorHost string
}

// ConfigFromEnv loads storage configuration from environment variables.
func ConfigFromEnv() Config {
	return Config{
		Bucket:        strings.TrimSpace(os.Getenv("STORAGE_GCS_BUCKET")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_PUBLIC_BASE_URL")), "/"),
		EmulatorHost:  strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")),
	}
}

// Open returns the store selected by cfg.
func Open(ctx context.Context, cfg Config) (Store, error) {
	if cfg.Bucket == "" {
		return NewMemoryStore(cfg.PublicBaseURL), nil
	}
	return NewGCSStore(ctx, cfg)
}

// ContentTypeForKey guesses a content type from the key's extension.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(key)
	switch {
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".csv"):
		return "text/csv"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return "application/octet-stream"
	}
}

func cleanKey(key string) string {
	return strings.TrimLeft(strings.TrimSpace(key), "/")
}
