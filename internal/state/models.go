// Package state manages the catalogue of Indian states and union territories.
package state

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// Errors returned by repositories and the service.
var (
	ErrStateNotFound = errors.New("state not found")
	ErrDuplicateCode = errors.New("state code already exists")
)

// State is a state or union territory.
type State struct {
	ID        string
	Code      string
	Name      string
	CreatedAt time.Time
}

// NormalizeCode trims and upper-cases a state code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidationError carries field-level validation failures.
type ValidationError struct {
	Errors []models.FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s %s", fe.Field, fe.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}
