// Package ingest imports CSV datasets of safety metrics.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/indiasafety/safetyindex/internal/safety"
)

// Required columns of an import file.
const (
	ColumnStateCode        = "state_code"
	ColumnSafetyPercentage = "safety_percentage"
	ColumnRecordedAt       = "recorded_at"
	ColumnDataSourceURL    = "data_source_url"
)

// metricColumns are the optional per-metric columns, in record field order.
var metricColumns = []string{
	"crime_rate",
	"police_per_capita",
	"road_safety",
	"healthcare_access",
	"emergency_response",
	"disaster_risk",
	"womens_safety",
}

// ErrEmptyFile is returned by Parse for a file with no header row.
var ErrEmptyFile = errors.New("file is empty")

// HeaderError reports required columns missing from the header row.
type HeaderError struct {
	Missing []string
}

func (e *HeaderError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// Row is one parsed data row. Line is the 1-based line number in the file.
type Row struct {
	Line             int
	StateCode        string
	RecordedAt       time.Time
	SafetyPercentage float64
	Metrics          [7]*float64
	DataSourceURL    *string
}

// RowError is a problem with a single data row.
type RowError struct {
	Line int
	Msg  string
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %s", e.Line, e.Msg)
}

// ParseDefaults fill in values the file leaves blank.
type ParseDefaults struct {
	RecordedAt    time.Time
	DataSourceURL *string
}

// Parse reads a CSV import file. Header names are trimmed and matched
// case-insensitively. Rows that cannot be parsed are returned as RowErrors
// alongside the good rows; a malformed header fails the whole file.
func Parse(r io.Reader, defaults ParseDefaults) ([]Row, []RowError, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil, ErrEmptyFile
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range []string{ColumnStateCode, ColumnSafetyPercentage} {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, nil, &HeaderError{Missing: missing}
	}

	var (
		rows    []Row
		rowErrs []RowError
	)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				rowErrs = append(rowErrs, RowError{Line: perr.Line, Msg: perr.Err.Error()})
				continue
			}
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		if blank(record) {
			continue
		}
		line, _ := reader.FieldPos(0)

		row, rowErr := parseRow(record, index, line, defaults)
		if rowErr != nil {
			rowErrs = append(rowErrs, *rowErr)
			continue
		}
		rows = append(rows, row)
	}
	return rows, rowErrs, nil
}

func parseRow(record []string, index map[string]int, line int, defaults ParseDefaults) (Row, *RowError) {
	field := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}
	fail := func(format string, args ...interface{}) (Row, *RowError) {
		return Row{}, &RowError{Line: line, Msg: fmt.Sprintf(format, args...)}
	}

	row := Row{
		Line:          line,
		StateCode:     strings.ToUpper(field(ColumnStateCode)),
		RecordedAt:    defaults.RecordedAt,
		DataSourceURL: defaults.DataSourceURL,
	}
	if row.StateCode == "" {
		return fail("state_code is required")
	}

	raw := field(ColumnSafetyPercentage)
	if raw == "" {
		return fail("safety_percentage is required")
	}
	pct, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fail("invalid safety_percentage %q", raw)
	}
	row.SafetyPercentage = pct

	if v := field(ColumnRecordedAt); v != "" {
		date, err := safety.ParseDate(v)
		if err != nil {
			return fail("invalid recorded_at %q, expected YYYY-MM-DD", v)
		}
		row.RecordedAt = date
	}

	for i, col := range metricColumns {
		v := field(col)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fail("invalid %s %q", col, v)
		}
		row.Metrics[i] = &f
	}

	if v := field(ColumnDataSourceURL); v != "" {
		row.DataSourceURL = &v
	}
	return row, nil
}

func blank(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

// Record converts a row into a safety record for stateID.
func (r Row) Record(stateID string) *safety.Record {
	return &safety.Record{
		StateID:           stateID,
		RecordedAt:        r.RecordedAt,
		SafetyPercentage:  r.SafetyPercentage,
		CrimeRate:         r.Metrics[0],
		PolicePerCapita:   r.Metrics[1],
		RoadSafety:        r.Metrics[2],
		HealthcareAccess:  r.Metrics[3],
		EmergencyResponse: r.Metrics[4],
		DisasterRisk:      r.Metrics[5],
		WomensSafety:      r.Metrics[6],
		DataSourceURL:     r.DataSourceURL,
	}
}

// IsInputError reports whether err was caused by the uploaded file itself
// rather than by storage.
func IsInputError(err error) bool {
	var headerErr *HeaderError
	var parseErr *csv.ParseError
	return errors.As(err, &headerErr) || errors.As(err, &parseErr)
}
