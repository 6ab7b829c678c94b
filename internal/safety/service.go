package safety

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/textsort"
)

const (
	snapshotCacheKey  = "snapshot"
	snapshotCacheName = "safety_snapshot"

	// DefaultRankingSize is the length of each rankings list.
	DefaultRankingSize = 4
	// MaxRankingSize caps the rankings limit parameter.
	MaxRankingSize = 10
)

// CacheObserver is notified of snapshot cache lookups.
type CacheObserver interface {
	RecordCacheHit(cache string)
	RecordCacheMiss(cache string)
}

// ServiceConfig holds configuration for the safety service.
type ServiceConfig struct {
	// States resolves state codes and names.
	States state.Repository

	// Records stores safety metric records.
	Records Repository

	// SnapshotDate is the recorded_at treated as latest (default: 2023-01-01).
	SnapshotDate time.Time

	// CacheTTL is how long the snapshot listing is cached (default: 30 seconds).
	CacheTTL time.Duration

	// Observer receives cache hit/miss events. Optional.
	Observer CacheObserver

	// Logger for service operations.
	Logger zerolog.Logger
}

// Service assembles safety views from the state and record repositories.
type Service struct {
	states   state.Repository
	records  Repository
	snapshot time.Time
	cache    *cache.Cache
	observer CacheObserver
	logger   zerolog.Logger

	// generation is bumped on every invalidation. A snapshot fetched under an
	// older generation is returned but not cached.
	mu         sync.Mutex
	generation uint64
}

// NewService creates a new safety service.
func NewService(cfg ServiceConfig) *Service {
	snapshot := cfg.SnapshotDate
	if snapshot.IsZero() {
		snapshot = DefaultSnapshotDate
	}

	ttl := cfg.CacheTTL
	if ttl == 0 {
		ttl = 30 * time.Second
	}

	return &Service{
		states:   cfg.States,
		records:  cfg.Records,
		snapshot: snapshot,
		cache:    cache.New(ttl, 2*ttl),
		observer: cfg.Observer,
		logger:   cfg.Logger.With().Str("component", "safety").Logger(),
	}
}

// SnapshotDate returns the pinned recorded_at used for listings.
func (s *Service) SnapshotDate() time.Time {
	return s.snapshot
}

// InvalidateCache drops the cached snapshot listing.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.cache.Flush()
}

func (s *Service) currentGeneration() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// storeSnapshot caches data unless the cache was invalidated after gen was read.
func (s *Service) storeSnapshot(gen uint64, data []models.SafetyData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generation != gen {
		s.logger.Debug().Msg("snapshot changed during fetch, skipping cache fill")
		return
	}
	s.cache.SetDefault(snapshotCacheKey, data)
}

// CachedItems reports how many entries the listing cache holds.
func (s *Service) CachedItems() int {
	return s.cache.ItemCount()
}

// Snapshot returns every record at the snapshot date joined with its state,
// ordered by safety_percentage descending.
func (s *Service) Snapshot(ctx context.Context) ([]models.SafetyData, error) {
	if cached, ok := s.cache.Get(snapshotCacheKey); ok {
		s.recordCache(true)
		return append([]models.SafetyData(nil), cached.([]models.SafetyData)...), nil
	}
	s.recordCache(false)
	gen := s.currentGeneration()

	states, err := s.states.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	byID := make(map[string]*state.State, len(states))
	for _, st := range states {
		byID[st.ID] = st
	}

	records, err := s.records.ListByDate(ctx, s.snapshot)
	if err != nil {
		return nil, fmt.Errorf("list snapshot records: %w", err)
	}

	out := make([]models.SafetyData, 0, len(records))
	for _, rec := range records {
		st, ok := byID[rec.StateID]
		if !ok {
			s.logger.Warn().Str("state_id", rec.StateID).Msg("snapshot record references unknown state")
			continue
		}
		out = append(out, toSafetyData(rec, st))
	}

	s.storeSnapshot(gen, out)
	return append([]models.SafetyData(nil), out...), nil
}

// List returns the snapshot filtered by opts.Query and ordered by opts.Sort.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]models.SafetyData, error) {
	sortField := opts.Sort
	if sortField == "" {
		sortField = SortBySafety
	}
	if sortField != SortBySafety && sortField != SortByName {
		return nil, ErrUnsupportedOrder
	}

	data, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	if q := strings.ToLower(strings.TrimSpace(opts.Query)); q != "" {
		filtered := data[:0]
		for _, d := range data {
			if strings.Contains(strings.ToLower(d.StateName), q) || strings.Contains(strings.ToLower(d.StateCode), q) {
				filtered = append(filtered, d)
			}
		}
		data = filtered
	}

	switch sortField {
	case SortByName:
		desc := opts.Descending != nil && *opts.Descending
		textsort.Stable(data, func(d models.SafetyData) string { return d.StateName }, desc)
	case SortBySafety:
		desc := opts.Descending == nil || *opts.Descending
		sort.SliceStable(data, func(i, j int) bool {
			if desc {
				return data[i].SafetyPercentage > data[j].SafetyPercentage
			}
			return data[i].SafetyPercentage < data[j].SafetyPercentage
		})
	}
	return data, nil
}

// Rankings returns the n safest and n most concerning states.
func (s *Service) Rankings(ctx context.Context, n int) (*models.Rankings, error) {
	if n <= 0 {
		n = DefaultRankingSize
	}
	if n > MaxRankingSize {
		n = MaxRankingSize
	}

	data, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	safest := append(make([]models.SafetyData, 0, len(data)), data...)
	sort.SliceStable(safest, func(i, j int) bool {
		return safest[i].SafetyPercentage > safest[j].SafetyPercentage
	})
	concerning := append(make([]models.SafetyData, 0, len(data)), data...)
	sort.SliceStable(concerning, func(i, j int) bool {
		return concerning[i].SafetyPercentage < concerning[j].SafetyPercentage
	})

	return &models.Rankings{
		Safest:     head(safest, n),
		Concerning: head(concerning, n),
	}, nil
}

func head(items []models.SafetyData, n int) []models.SafetyData {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// Detail assembles the per-state view for code. A missing snapshot row yields
// a zero percentage and null metrics; a failed history fetch yields an empty trend.
func (s *Service) Detail(ctx context.Context, code string) (*models.StateDetail, error) {
	st, err := s.states.GetByCode(ctx, state.NormalizeCode(code))
	if err != nil {
		return nil, err
	}

	detail := &models.StateDetail{
		State: state.ToAPIState(st),
		Trend: []models.TrendPoint{},
	}

	rec, err := s.records.Get(ctx, st.ID, s.snapshot)
	switch {
	case err == nil:
		detail.SafetyPercentage = rec.SafetyPercentage
		detail.Metrics = rec.Metrics()
		detail.DataSourceURL = rec.DataSourceURL
		recordedAt := FormatDate(rec.RecordedAt)
		detail.RecordedAt = &recordedAt
	case errors.Is(err, ErrRecordNotFound):
	default:
		return nil, fmt.Errorf("get snapshot record: %w", err)
	}

	history, err := s.records.History(ctx, st.ID)
	if err != nil {
		s.logger.Error().Err(err).Str("state_code", st.Code).Msg("failed to fetch history")
		return detail, nil
	}
	for _, h := range history {
		detail.Trend = append(detail.Trend, models.TrendPoint{
			Year:  h.RecordedAt.Year(),
			Value: h.SafetyPercentage,
		})
	}
	return detail, nil
}

// Compare builds radar-chart entries for codes in request order. Unknown codes
// and states without a snapshot row are dropped.
func (s *Service) Compare(ctx context.Context, codes []string) ([]models.CompareEntry, error) {
	if len(codes) == 0 {
		return nil, ErrMissingCodes
	}

	states, err := s.states.ListByCodes(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("resolve states: %w", err)
	}
	if len(states) == 0 {
		return nil, ErrNoStatesFound
	}

	byCode := make(map[string]*state.State, len(states))
	ids := make([]string, 0, len(states))
	for _, st := range states {
		byCode[st.Code] = st
		ids = append(ids, st.ID)
	}

	records, err := s.records.ListByStatesAndDate(ctx, ids, s.snapshot)
	if err != nil {
		return nil, fmt.Errorf("list comparison records: %w", err)
	}
	byStateID := make(map[string]*Record, len(records))
	for _, rec := range records {
		byStateID[rec.StateID] = rec
	}

	out := make([]models.CompareEntry, 0, len(codes))
	for _, code := range codes {
		st, ok := byCode[code]
		if !ok {
			continue
		}
		rec, ok := byStateID[st.ID]
		if !ok {
			continue
		}
		out = append(out, models.CompareEntry{
			Name:             st.Name,
			Metrics:          compareMetrics(rec),
			SafetyPercentage: rec.SafetyPercentage,
			StateCode:        st.Code,
		})
	}
	return out, nil
}

// Create inserts or replaces a record identified by state_id or state_code.
// recorded_at and safety_percentage are required.
func (s *Service) Create(ctx context.Context, req *models.SafetyRecordRequest) (*models.SafetyRecord, error) {
	var fieldErrs []models.FieldError
	if req.StateID == "" && strings.TrimSpace(req.StateCode) == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "state_id", Message: "is required", Code: models.CodeRequired})
	}
	if strings.TrimSpace(req.RecordedAt) == "" {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "recorded_at", Message: "is required", Code: models.CodeRequired})
	}
	if req.SafetyPercentage == nil {
		fieldErrs = append(fieldErrs, models.FieldError{Field: "safety_percentage", Message: "is required", Code: models.CodeRequired})
	}
	if len(fieldErrs) > 0 {
		return nil, &ValidationError{Errors: fieldErrs}
	}

	var (
		st  *state.State
		err error
	)
	if req.StateID != "" {
		st, err = s.states.GetByID(ctx, req.StateID)
	} else {
		st, err = s.states.GetByCode(ctx, state.NormalizeCode(req.StateCode))
	}
	if err != nil {
		return nil, err
	}

	return s.upsertFromRequest(ctx, st, req)
}

// UpsertForState writes a record for the state identified by code. A missing
// recorded_at defaults to the snapshot date.
func (s *Service) UpsertForState(ctx context.Context, code string, req *models.SafetyRecordRequest) (*models.SafetyRecord, error) {
	st, err := s.states.GetByCode(ctx, state.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if req.SafetyPercentage == nil {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "safety_percentage", Message: "is required", Code: models.CodeRequired},
		}}
	}
	return s.upsertFromRequest(ctx, st, req)
}

func (s *Service) upsertFromRequest(ctx context.Context, st *state.State, req *models.SafetyRecordRequest) (*models.SafetyRecord, error) {
	recordedAt := s.snapshot
	if strings.TrimSpace(req.RecordedAt) != "" {
		parsed, err := ParseDate(req.RecordedAt)
		if err != nil {
			return nil, &ValidationError{Errors: []models.FieldError{
				{Field: "recorded_at", Message: "must be a YYYY-MM-DD date", Code: models.CodeInvalid},
			}}
		}
		recordedAt = parsed
	}

	rec := &Record{
		StateID:           st.ID,
		RecordedAt:        recordedAt,
		SafetyPercentage:  *req.SafetyPercentage,
		CrimeRate:         req.CrimeRate,
		PolicePerCapita:   req.PolicePerCapita,
		RoadSafety:        req.RoadSafety,
		HealthcareAccess:  req.HealthcareAccess,
		EmergencyResponse: req.EmergencyResponse,
		DisasterRisk:      req.DisasterRisk,
		WomensSafety:      req.WomensSafety,
		DataSourceURL:     req.DataSourceURL,
	}
	if err := s.Upsert(ctx, rec); err != nil {
		return nil, err
	}

	result := ToAPIRecord(rec)
	return &result, nil
}

// Upsert validates and stores rec, assigning an ID when empty, and drops the
// listing cache.
func (s *Service) Upsert(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if err := s.records.Upsert(ctx, rec); err != nil {
		s.logger.Error().Err(err).Str("state_id", rec.StateID).Msg("failed to upsert safety record")
		return err
	}
	s.InvalidateCache()
	return nil
}

func (s *Service) recordCache(hit bool) {
	if s.observer == nil {
		return
	}
	if hit {
		s.observer.RecordCacheHit(snapshotCacheName)
	} else {
		s.observer.RecordCacheMiss(snapshotCacheName)
	}
}

func toSafetyData(rec *Record, st *state.State) models.SafetyData {
	recordedAt := FormatDate(rec.RecordedAt)
	return models.SafetyData{
		ID:               rec.ID,
		StateCode:        st.Code,
		StateName:        st.Name,
		SafetyPercentage: rec.SafetyPercentage,
		Metrics:          rec.Metrics(),
		DataSourceURL:    rec.DataSourceURL,
		RecordedAt:       &recordedAt,
	}
}

func compareMetrics(rec *Record) models.CompareMetrics {
	return models.CompareMetrics{
		Crime:     deref(rec.CrimeRate),
		Police:    deref(rec.PolicePerCapita),
		Road:      deref(rec.RoadSafety),
		Health:    deref(rec.HealthcareAccess),
		Emergency: deref(rec.EmergencyResponse),
		Disaster:  deref(rec.DisasterRisk),
		Women:     deref(rec.WomensSafety),
	}
}

func deref(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// ToAPIRecord converts a record to its flat API shape.
func ToAPIRecord(rec *Record) models.SafetyRecord {
	out := models.SafetyRecord{
		ID:                rec.ID,
		StateID:           rec.StateID,
		RecordedAt:        FormatDate(rec.RecordedAt),
		SafetyPercentage:  rec.SafetyPercentage,
		CrimeRate:         rec.CrimeRate,
		PolicePerCapita:   rec.PolicePerCapita,
		RoadSafety:        rec.RoadSafety,
		HealthcareAccess:  rec.HealthcareAccess,
		EmergencyResponse: rec.EmergencyResponse,
		DisasterRisk:      rec.DisasterRisk,
		WomensSafety:      rec.WomensSafety,
		DataSourceURL:     rec.DataSourceURL,
	}
	if !rec.CreatedAt.IsZero() {
		ts := models.Timestamp(rec.CreatedAt)
		out.CreatedAt = &ts
	}
	if !rec.UpdatedAt.IsZero() {
		ts := models.Timestamp(rec.UpdatedAt)
		out.UpdatedAt = &ts
	}
	return out
}
