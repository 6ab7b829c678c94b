// Package settings provides admin-managed runtime settings with caching and
// fallback to defaults.
package settings

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// ErrSettingNotFound is returned when a key has no stored value.
var ErrSettingNotFound = errors.New("setting not found")

// Well-known setting keys.
const (
	// KeyCrimeSourceURL links the crime statistics source shown on the dashboard.
	KeyCrimeSourceURL = "crime_source_url"

	// KeyHealthcareSourceURL links the healthcare access source.
	KeyHealthcareSourceURL = "healthcare_source_url"

	// KeyEmailNotificationsUploads toggles admin emails on upload completion.
	KeyEmailNotificationsUploads = "email_notifications_uploads"
)

// Kind is the value type of a setting.
type Kind string

const (
	KindString Kind = "string"
	KindBool   Kind = "bool"
)

// Definition describes a known setting.
type Definition struct {
	Key     string
	Kind    Kind
	Default interface{}
}

var definitions = map[string]Definition{
	KeyCrimeSourceURL:            {Key: KeyCrimeSourceURL, Kind: KindString, Default: "https://ncrb.gov.in/crime-in-india"},
	KeyHealthcareSourceURL:       {Key: KeyHealthcareSourceURL, Kind: KindString, Default: "https://main.mohfw.gov.in/"},
	KeyEmailNotificationsUploads: {Key: KeyEmailNotificationsUploads, Kind: KindBool, Default: false},
}

// Setting is a stored setting value.
type Setting struct {
	Key       string
	Value     interface{}
	UpdatedAt time.Time
}

// Defaults returns the default value of every known setting.
func Defaults() map[string]*Setting {
	out := make(map[string]*Setting, len(definitions))
	for k, d := range definitions {
		out[k] = &Setting{Key: k, Value: d.Default}
	}
	return out
}

// Keys returns the known setting keys in sorted order.
func Keys() []string {
	keys := make([]string, 0, len(definitions))
	for k := range definitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Validate checks a batch of updates against the known definitions.
func Validate(values map[string]interface{}) error {
	var errs []models.FieldError
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		def, ok := definitions[k]
		if !ok {
			errs = append(errs, models.FieldError{Field: k, Message: "is not a known setting", Code: models.CodeInvalid})
			continue
		}
		switch def.Kind {
		case KindString:
			if _, ok := values[k].(string); !ok {
				errs = append(errs, models.FieldError{Field: k, Message: "must be a string", Code: models.CodeInvalid})
			}
		case KindBool:
			if _, ok := values[k].(bool); !ok {
				errs = append(errs, models.FieldError{Field: k, Message: "must be a boolean", Code: models.CodeInvalid})
			}
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// BoolValue returns the setting as a bool, or def when it is not one.
func (s *Setting) BoolValue(def bool) bool {
	if s == nil {
		return def
	}
	if b, ok := s.Value.(bool); ok {
		return b
	}
	return def
}

// StringValue returns the setting as a string, or def when it is not one.
func (s *Setting) StringValue(def string) string {
	if s == nil {
		return def
	}
	if v, ok := s.Value.(string); ok {
		return v
	}
	return def
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
