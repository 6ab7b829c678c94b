// Package safety serves per-state safety index records: the snapshot listing,
// rankings, per-state detail with trend, and multi-state comparison.
package safety

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// DefaultSnapshotDate is the recorded_at pinned as "latest" for listings.
var DefaultSnapshotDate = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC)

// Errors returned by repositories and the service.
var (
	ErrRecordNotFound   = errors.New("safety record not found")
	ErrNoStatesFound    = errors.New("no states found")
	ErrMissingCodes     = errors.New("missing required query parameter: codes")
	ErrUnsupportedOrder = errors.New("unsupported sort order")
)

// Record is one state's safety metrics at a recorded_at date.
type Record struct {
	ID                string
	StateID           string
	RecordedAt        time.Time
	SafetyPercentage  float64
	CrimeRate         *float64
	PolicePerCapita   *float64
	RoadSafety        *float64
	HealthcareAccess  *float64
	EmergencyResponse *float64
	DisasterRisk      *float64
	WomensSafety      *float64
	DataSourceURL     *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	cpy := *r
	cpy.CrimeRate = cloneFloat(r.CrimeRate)
	cpy.PolicePerCapita = cloneFloat(r.PolicePerCapita)
	cpy.RoadSafety = cloneFloat(r.RoadSafety)
	cpy.HealthcareAccess = cloneFloat(r.HealthcareAccess)
	cpy.EmergencyResponse = cloneFloat(r.EmergencyResponse)
	cpy.DisasterRisk = cloneFloat(r.DisasterRisk)
	cpy.WomensSafety = cloneFloat(r.WomensSafety)
	if r.DataSourceURL != nil {
		u := *r.DataSourceURL
		cpy.DataSourceURL = &u
	}
	return &cpy
}

// Metrics returns the nested metrics view of the record.
func (r *Record) Metrics() models.Metrics {
	return models.Metrics{
		Crime:     r.CrimeRate,
		Police:    r.PolicePerCapita,
		Road:      r.RoadSafety,
		Health:    r.HealthcareAccess,
		Emergency: r.EmergencyResponse,
		Disaster:  r.DisasterRisk,
		Women:     r.WomensSafety,
	}
}

// metricFields pairs wire names with the record's metric fields.
func (r *Record) metricFields() []metricField {
	return []metricField{
		{"crime_rate", r.CrimeRate},
		{"police_per_capita", r.PolicePerCapita},
		{"road_safety", r.RoadSafety},
		{"healthcare_access", r.HealthcareAccess},
		{"emergency_response", r.EmergencyResponse},
		{"disaster_risk", r.DisasterRisk},
		{"womens_safety", r.WomensSafety},
	}
}

type metricField struct {
	name  string
	value *float64
}

// Validate checks that the percentage and every present metric lie in [0,100].
func (r *Record) Validate() error {
	var errs []models.FieldError
	if r.StateID == "" {
		errs = append(errs, models.FieldError{Field: "state_id", Message: "is required", Code: models.CodeRequired})
	}
	if r.RecordedAt.IsZero() {
		errs = append(errs, models.FieldError{Field: "recorded_at", Message: "is required", Code: models.CodeRequired})
	}
	if !inRange(r.SafetyPercentage) {
		errs = append(errs, outOfRange("safety_percentage"))
	}
	for _, f := range r.metricFields() {
		if f.value != nil && !inRange(*f.value) {
			errs = append(errs, outOfRange(f.name))
		}
	}
	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

func inRange(v float64) bool {
	return v >= 0 && v <= 100
}

func outOfRange(field string) models.FieldError {
	return models.FieldError{Field: field, Message: "must be between 0 and 100", Code: models.CodeOutOfRange}
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	cpy := *v
	return &cpy
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

// SortField selects the listing order.
type SortField string

const (
	SortBySafety SortField = "safety"
	SortByName   SortField = "name"
)

// ListOptions filters and orders the snapshot listing.
type ListOptions struct {
	// Query is a case-insensitive substring matched against name and code.
	Query string
	// Sort defaults to SortBySafety.
	Sort SortField
	// Descending defaults to true for safety and false for name when unset.
	Descending *bool
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(models.DateLayout, strings.TrimSpace(s), time.UTC)
}

// FormatDate renders a date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format(models.DateLayout)
}

// ParseCodes splits a comma-separated code list, upper-casing and dropping
// empties and duplicates while keeping the first-seen order.
func ParseCodes(raw string) []string {
	seen := make(map[string]struct{})
	var codes []string
	for _, part := range strings.Split(raw, ",") {
		code := strings.ToUpper(strings.TrimSpace(part))
		if code == "" {
			continue
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}
	return codes
}
