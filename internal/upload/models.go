// Package upload tracks the data upload history log.
package upload

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// Errors returned by repositories and the service.
var (
	ErrUploadNotFound = errors.New("upload not found")
	ErrNoObject       = errors.New("upload has no retained file")
)

// Status is the processing state of an upload.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Upload is one entry of the upload history.
type Upload struct {
	ID            string
	Filename      string
	FileType      string
	SourceURL     *string
	Status        Status
	ErrorMessage  *string
	ObjectKey     *string
	ProcessedRows int
	TotalRows     int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Clone returns a copy of the upload with its own pointer fields.
func (u *Upload) Clone() *Upload {
	cpy := *u
	cpy.SourceURL = cloneString(u.SourceURL)
	cpy.ErrorMessage = cloneString(u.ErrorMessage)
	cpy.ObjectKey = cloneString(u.ObjectKey)
	return &cpy
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	cpy := *s
	return &cpy
}

// Outcome is the result of processing an upload.
type Outcome struct {
	ProcessedRows int
	TotalRows     int
	FailedRows    int
	// Errors holds the first row-level messages, not necessarily all of them.
	Errors []string
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
