package settings

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// ServiceConfig holds configuration for the settings service.
type ServiceConfig struct {
	Repository Repository
	Logger     zerolog.Logger
	CacheTTL   time.Duration // How long the merged settings are cached
}

// Service serves settings with a TTL cache and falls back to defaults when
// the repository fails.
type Service struct {
	repo     Repository
	logger   zerolog.Logger
	cacheTTL time.Duration

	mu          sync.RWMutex
	cache       map[string]*Setting
	cacheExpiry time.Time
}

// NewService creates a new settings service.
func NewService(cfg ServiceConfig) *Service {
	cacheTTL := cfg.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = time.Minute
	}
	return &Service{
		repo:     cfg.Repository,
		logger:   cfg.Logger.With().Str("component", "settings").Logger(),
		cacheTTL: cacheTTL,
	}
}

// All returns defaults merged with stored values.
func (s *Service) All(ctx context.Context) map[string]*Setting {
	if cached := s.cached(); cached != nil {
		return cached
	}

	result := Defaults()
	stored, err := s.repo.All(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to load settings, using defaults")
		return result
	}
	for k, v := range stored {
		result[k] = v
	}

	s.mu.Lock()
	s.cache = result
	s.cacheExpiry = time.Now().Add(s.cacheTTL)
	s.mu.Unlock()

	return copyMap(result)
}

// Get returns one setting, falling back to its default.
func (s *Service) Get(ctx context.Context, key string) *Setting {
	return s.All(ctx)[key]
}

// Values returns the merged settings as a key/value map.
func (s *Service) Values(ctx context.Context) models.Settings {
	all := s.All(ctx)
	out := make(models.Settings, len(all))
	for k, v := range all {
		out[k] = v.Value
	}
	return out
}

// Update validates and stores a batch of values, then returns the merged settings.
func (s *Service) Update(ctx context.Context, values map[string]interface{}) (models.Settings, error) {
	if len(values) == 0 {
		return nil, &ValidationError{Errors: []models.FieldError{
			{Field: "settings", Message: "must contain at least one setting", Code: models.CodeRequired},
		}}
	}
	if err := Validate(values); err != nil {
		return nil, err
	}

	batch := make([]*Setting, 0, len(values))
	for _, k := range Keys() {
		if v, ok := values[k]; ok {
			batch = append(batch, &Setting{Key: k, Value: v})
		}
	}
	if err := s.repo.SetMany(ctx, batch); err != nil {
		return nil, err
	}

	s.InvalidateCache()
	s.logger.Info().Int("count", len(batch)).Msg("settings updated")
	return s.Values(ctx), nil
}

// EmailNotificationsForUploads reports whether upload emails are enabled.
func (s *Service) EmailNotificationsForUploads(ctx context.Context) bool {
	return s.Get(ctx, KeyEmailNotificationsUploads).BoolValue(false)
}

// InvalidateCache clears the cached settings.
func (s *Service) InvalidateCache() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache = nil
	s.cacheExpiry = time.Time{}
}

func (s *Service) cached() map[string]*Setting {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cache == nil || time.Now().After(s.cacheExpiry) {
		return nil
	}
	return copyMap(s.cache)
}

func copyMap(in map[string]*Setting) map[string]*Setting {
	out := make(map[string]*Setting, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// IsNotFound reports whether err means the setting does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrSettingNotFound)
}
