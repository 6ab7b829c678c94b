package settings

import "context"

// Repository defines storage for settings.
type Repository interface {
	Get(ctx context.Context, key string) (*Setting, error)
	All(ctx context.Context) (map[string]*Setting, error)
	// SetMany upserts all settings or none.
	SetMany(ctx context.Context, settings []*Setting) error
}
