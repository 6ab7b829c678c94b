package upload

import "context"

// Repository defines persistence for the upload history.
type Repository interface {
	// List returns all uploads, newest first.
	List(ctx context.Context) ([]*Upload, error)

	// Get returns the upload with the given ID.
	Get(ctx context.Context, id string) (*Upload, error)

	// Create inserts an upload, filling CreatedAt and UpdatedAt.
	Create(ctx context.Context, u *Upload) error

	// Update replaces the mutable fields of an upload and bumps UpdatedAt.
	Update(ctx context.Context, u *Upload) error
}
