// Package sampledata holds the fixed demo dataset of Indian states and union
// territories and seeds it into the state and safety repositories.
package sampledata

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/state"
)

// DataSourceURL is the source link attached to every demo record.
const DataSourceURL = "https://example.com/data-source"

// Entry is one state's demo values at the snapshot date. Metrics are ordered
// crime, police, road, health, emergency, disaster, women.
type Entry struct {
	Code       string
	Name       string
	Percentage float64
	Metrics    [7]float64
}

var entries = []Entry{
	{"GJ", "Gujarat", 80, [7]float64{75, 74, 71, 78, 65, 70, 68}},
	{"CH", "Chandigarh", 78, [7]float64{72, 75, 76, 74, 72, 76, 74}},
	{"GA", "Goa", 77, [7]float64{70, 74, 72, 70, 68, 74, 72}},
	{"LD", "Lakshadweep", 73, [7]float64{68, 71, 69, 67, 65, 71, 69}},
	{"UK", "Uttarakhand", 73, [7]float64{67, 72, 70, 70, 66, 72, 70}},
	{"SK", "Sikkim", 74, [7]float64{68, 72, 70, 68, 65, 68, 72}},
	{"KL", "Kerala", 76, [7]float64{70, 74, 72, 74, 68, 70, 74}},
	{"AN", "Andaman and Nicobar Islands", 75, [7]float64{68, 72, 70, 68, 65, 72, 70}},
	{"TN", "Tamil Nadu", 75, [7]float64{70, 75, 72, 78, 65, 70, 68}},
	{"MH", "Maharashtra", 72, [7]float64{62, 70, 66, 72, 58, 64, 60}},
	{"AR", "Arunachal Pradesh", 70, [7]float64{65, 70, 68, 66, 64, 68, 66}},
	{"PY", "Puducherry", 70, [7]float64{64, 69, 67, 65, 63, 65, 69}},
	{"KA", "Karnataka", 68, [7]float64{65, 72, 68, 70, 60, 66, 64}},
	{"HR", "Haryana", 68, [7]float64{62, 68, 66, 66, 62, 64, 68}},
	{"TS", "Telangana", 66, [7]float64{61, 67, 65, 63, 61, 63, 67}},
	{"ML", "Meghalaya", 66, [7]float64{60, 68, 64, 62, 60, 62, 68}},
	{"WB", "West Bengal", 65, [7]float64{62, 70, 68, 68, 60, 66, 70}},
	{"TR", "Tripura", 65, [7]float64{60, 66, 64, 62, 60, 62, 63}},
	{"AP", "Andhra Pradesh", 65, [7]float64{58, 66, 64, 62, 60, 62, 64}},
	{"PB", "Punjab", 71, [7]float64{66, 71, 69, 69, 65, 67, 71}},
	{"MZ", "Mizoram", 69, [7]float64{64, 70, 68, 66, 62, 66, 70}},
	{"NL", "Nagaland", 67, [7]float64{62, 69, 66, 64, 61, 64, 69}},
	{"DD", "Daman and Diu", 72, [7]float64{68, 70, 68, 68, 64, 66, 70}},
	{"CG", "Chhattisgarh", 64, [7]float64{60, 66, 62, 62, 58, 62, 66}},
	{"AS", "Assam", 62, [7]float64{55, 64, 60, 60, 56, 60, 64}},
	{"MP", "Madhya Pradesh", 63, [7]float64{60, 68, 66, 66, 60, 64, 60}},
	{"MN", "Manipur", 63, [7]float64{58, 66, 62, 60, 58, 60, 62}},
	{"OD", "Odisha", 61, [7]float64{56, 65, 62, 62, 58, 60, 58}},
	{"RJ", "Rajasthan", 61, [7]float64{58, 65, 62, 68, 56, 62, 58}},
	{"JH", "Jharkhand", 60, [7]float64{55, 64, 62, 62, 58, 60, 64}},
	{"JK", "Jammu and Kashmir", 58, [7]float64{53, 62, 60, 60, 56, 58, 62}},
	{"UP", "Uttar Pradesh", 58, [7]float64{55, 66, 64, 64, 56, 60, 56}},
	{"BR", "Bihar", 56, [7]float64{52, 62, 58, 58, 54, 58, 54}},
	{"LA", "Ladakh", 55, [7]float64{50, 60, 58, 56, 52, 56, 60}},
	{"DL", "Delhi", 54, [7]float64{50, 68, 60, 70, 55, 60, 52}},
	{"HP", "Himachal Pradesh", 74, [7]float64{68, 72, 70, 68, 66, 68, 72}},
}

// Entries returns a copy of the demo dataset.
func Entries() []Entry {
	return append([]Entry(nil), entries...)
}

// HistoryValue returns the demo percentage for yearsBack years before the
// snapshot. The series ramps up to the snapshot value with floors of 40 and 45.
func HistoryValue(p float64, yearsBack int) float64 {
	switch yearsBack {
	case 3:
		return math.Max(40, p-4)
	case 2:
		return math.Max(45, p-2)
	default:
		return p
	}
}

// Options controls how Seed assigns identifiers.
type Options struct {
	// Snapshot is the recorded_at of the current values (default: safety.DefaultSnapshotDate).
	Snapshot time.Time

	// NewID generates IDs for new states and records. When nil, states get
	// sequential IDs "1", "2", ... in dataset order and each snapshot record
	// shares its state's ID.
	NewID func() string
}

// Result summarizes a seeding run.
type Result struct {
	StatesCreated  int
	StatesExisting int
	Records        int
}

// Seed creates any missing demo states and upserts their snapshot and three
// years of history. Existing states are matched by code and keep their IDs.
func Seed(ctx context.Context, states state.Repository, records safety.Repository, opts Options) (Result, error) {
	var res Result

	snapshot := opts.Snapshot
	if snapshot.IsZero() {
		snapshot = safety.DefaultSnapshotDate
	}

	for i, e := range entries {
		st, err := states.GetByCode(ctx, e.Code)
		switch {
		case err == nil:
			res.StatesExisting++
		case errors.Is(err, state.ErrStateNotFound):
			st = &state.State{ID: nextID(opts, strconv.Itoa(i+1)), Code: e.Code, Name: e.Name, CreatedAt: time.Now().UTC()}
			if err := states.Create(ctx, st); err != nil {
				return res, fmt.Errorf("create state %s: %w", e.Code, err)
			}
			res.StatesCreated++
		default:
			return res, fmt.Errorf("look up state %s: %w", e.Code, err)
		}

		for back := 3; back >= 1; back-- {
			date := snapshot.AddDate(-back, 0, 0)
			rec := &safety.Record{
				ID:               nextID(opts, fmt.Sprintf("%s-%d", st.ID, date.Year())),
				StateID:          st.ID,
				RecordedAt:       date,
				SafetyPercentage: HistoryValue(e.Percentage, back),
				DataSourceURL:    strPtr(DataSourceURL),
			}
			if err := records.Upsert(ctx, rec); err != nil {
				return res, fmt.Errorf("seed history %s %d: %w", e.Code, date.Year(), err)
			}
			res.Records++
		}

		rec := e.Record(st.ID, snapshot)
		rec.ID = nextID(opts, st.ID)
		if err := records.Upsert(ctx, rec); err != nil {
			return res, fmt.Errorf("seed snapshot %s: %w", e.Code, err)
		}
		res.Records++
	}
	return res, nil
}

// Record builds the snapshot record for e.
func (e Entry) Record(stateID string, recordedAt time.Time) *safety.Record {
	m := e.Metrics
	return &safety.Record{
		StateID:           stateID,
		RecordedAt:        recordedAt,
		SafetyPercentage:  e.Percentage,
		CrimeRate:         floatPtr(m[0]),
		PolicePerCapita:   floatPtr(m[1]),
		RoadSafety:        floatPtr(m[2]),
		HealthcareAccess:  floatPtr(m[3]),
		EmergencyResponse: floatPtr(m[4]),
		DisasterRisk:      floatPtr(m[5]),
		WomensSafety:      floatPtr(m[6]),
		DataSourceURL:     strPtr(DataSourceURL),
	}
}

func nextID(opts Options, sequential string) string {
	if opts.NewID != nil {
		return opts.NewID()
	}
	return sequential
}

func floatPtr(v float64) *float64 { return &v }

func strPtr(s string) *string { return &s }
