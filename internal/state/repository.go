package state

import "context"

// Repository defines persistence for states.
type Repository interface {
	// List returns all states ordered by name.
	List(ctx context.Context) ([]*State, error)

	// GetByCode returns the state with the given upper-case code.
	GetByCode(ctx context.Context, code string) (*State, error)

	// GetByID returns the state with the given ID.
	GetByID(ctx context.Context, id string) (*State, error)

	// ListByCodes returns the states whose codes are in codes, in no particular order.
	// Unknown codes are skipped.
	ListByCodes(ctx context.Context, codes []string) ([]*State, error)

	// Create inserts a state. Returns ErrDuplicateCode when the code is taken.
	Create(ctx context.Context, s *State) error
}
