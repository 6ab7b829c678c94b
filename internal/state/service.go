package state

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// MaxNameLength bounds state names.
const MaxNameLength = 100

var codePattern = regexp.MustCompile(`^[A-Z]{2}$`)

// Service provides state catalogue operations.
type Service struct {
	repo Repository
	log  zerolog.Logger
}

// NewService creates a state service.
func NewService(repo Repository, log zerolog.Logger) *Service {
	return &Service{repo: repo, log: log.With().Str("component", "state").Logger()}
}

// Repository exposes the underlying repository to sibling services.
func (s *Service) Repository() Repository {
	return s.repo
}

// List returns all states ordered by name.
func (s *Service) List(ctx context.Context) ([]models.State, error) {
	states, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.State, 0, len(states))
	for _, st := range states {
		out = append(out, ToAPIState(st))
	}
	return out, nil
}

// GetByCode looks up a state by code, case-insensitively.
func (s *Service) GetByCode(ctx context.Context, code string) (*models.State, error) {
	st, err := s.repo.GetByCode(ctx, NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	result := ToAPIState(st)
	return &result, nil
}

// Create validates and inserts a new state. The code is upper-cased.
func (s *Service) Create(ctx context.Context, input *models.CreateStateRequest) (*models.State, error) {
	code := NormalizeCode(input.Code)
	name := strings.TrimSpace(input.Name)

	if fieldErrors := validateCreate(code, name); len(fieldErrors) > 0 {
		return nil, &ValidationError{Errors: fieldErrors}
	}

	st := &State{
		ID:        uuid.NewString(),
		Code:      code,
		Name:      name,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, st); err != nil {
		if !errors.Is(err, ErrDuplicateCode) {
			s.log.Error().Err(err).Str("code", code).Msg("failed to create state")
		}
		return nil, err
	}

	s.log.Info().Str("code", code).Str("id", st.ID).Msg("state created")
	result := ToAPIState(st)
	return &result, nil
}

func validateCreate(code, name string) []models.FieldError {
	var errs []models.FieldError
	switch {
	case code == "":
		errs = append(errs, models.FieldError{Field: "code", Message: "is required", Code: models.CodeRequired})
	case !codePattern.MatchString(code):
		errs = append(errs, models.FieldError{Field: "code", Message: "must be two letters", Code: models.CodeInvalid})
	}
	switch {
	case name == "":
		errs = append(errs, models.FieldError{Field: "name", Message: "is required", Code: models.CodeRequired})
	case len(name) > MaxNameLength:
		errs = append(errs, models.FieldError{Field: "name", Message: "must be at most 100 characters", Code: models.CodeOutOfRange})
	}
	return errs
}

// ToAPIState converts a domain state to its API shape.
func ToAPIState(st *State) models.State {
	return models.State{ID: st.ID, Code: st.Code, Name: st.Name}
}
