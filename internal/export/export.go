// Package export renders the safety snapshot as downloadable files.
package export

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// Format is an export file format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatXLSX Format = "xlsx"
)

// SheetName is the worksheet holding XLSX exports.
const SheetName = "Safety Index"

// ErrUnsupportedFormat is returned for formats other than csv, json and xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Columns is the header row shared by CSV and XLSX exports. It matches the
// import schema so an export can be re-imported.
var Columns = []string{
	"state_code",
	"state_name",
	"safety_percentage",
	"crime_rate",
	"police_per_capita",
	"road_safety",
	"healthcare_access",
	"emergency_response",
	"disaster_risk",
	"womens_safety",
	"data_source_url",
	"recorded_at",
}

// ParseFormat validates a format name. Empty means CSV.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatCSV, nil
	case FormatCSV, FormatJSON, FormatXLSX:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return "text/csv"
	}
}

// Filename returns safety-data-YYYY-MM-DD.<ext> for the given day.
func Filename(f Format, day time.Time) string {
	return fmt.Sprintf("safety-data-%s.%s", day.UTC().Format(models.DateLayout), f)
}

// Write renders data in format f.
func Write(w io.Writer, f Format, data []models.SafetyData) error {
	switch f {
	case FormatCSV:
		return writeCSV(w, data)
	case FormatJSON:
		return writeJSON(w, data)
	case FormatXLSX:
		return writeXLSX(w, data)
	default:
		return ErrUnsupportedFormat
	}
}

func writeCSV(w io.Writer, data []models.SafetyData) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Columns); err != nil {
		return err
	}
	for _, d := range data {
		row := make([]string, 0, len(Columns))
		for _, v := range cells(d) {
			row = append(row, formatCell(v))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeJSON(w io.Writer, data []models.SafetyData) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(models.NewListResponse(data))
}

func writeXLSX(w io.Writer, data []models.SafetyData) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}

	for i, header := range Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(SheetName, cell, header); err != nil {
			return err
		}
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(Columns), 1)
	if err := f.SetCellStyle(SheetName, "A1", last, bold); err != nil {
		return err
	}
	if err := f.SetColWidth(SheetName, "A", "L", 18); err != nil {
		return err
	}

	for r, d := range data {
		for c, v := range cells(d) {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(SheetName, cell, v); err != nil {
				return err
			}
		}
	}

	_, err = f.WriteTo(w)
	return err
}

// cells returns the row values in Columns order. Missing values are nil.
func cells(d models.SafetyData) []interface{} {
	m := d.Metrics
	return []interface{}{
		d.StateCode,
		d.StateName,
		d.SafetyPercentage,
		floatOrNil(m.Crime),
		floatOrNil(m.Police),
		floatOrNil(m.Road),
		floatOrNil(m.Health),
		floatOrNil(m.Emergency),
		floatOrNil(m.Disaster),
		floatOrNil(m.Women),
		stringOrNil(d.DataSourceURL),
		stringOrNil(d.RecordedAt),
	}
}

func floatOrNil(v *float64) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func stringOrNil(v *string) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func formatCell(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
