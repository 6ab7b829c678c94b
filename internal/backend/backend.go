// Package backend selects and opens the data store behind the API: Supabase
// PostgREST, a direct Postgres connection, or the in-memory sample dataset.
package backend

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/database"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/sampledata"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/supabase"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// Kind names a data backend.
type Kind string

const (
	KindAuto     Kind = ""
	KindSupabase Kind = "supabase"
	KindPostgres Kind = "postgres"
	KindMock     Kind = "mock"
)

// Config selects and configures the backend.
type Config struct {
	// Kind forces a backend. KindAuto picks Supabase, then Postgres, then mock.
	Kind         Kind
	Supabase     supabase.Config
	Database     database.Config
	SnapshotDate time.Time
	// Migrate applies the embedded schema when opening Postgres.
	Migrate bool
}

// ConfigFromEnv reads DATA_BACKEND, SNAPSHOT_DATE, DB_MIGRATE and the
// Supabase and database settings.
func ConfigFromEnv() (Config, error) {
	cfg := Config{
		Kind:         Kind(strings.ToLower(strings.TrimSpace(os.Getenv("DATA_BACKEND")))),
		Supabase:     supabase.ConfigFromEnv(),
		Database:     database.ConfigFromEnv(),
		SnapshotDate: safety.DefaultSnapshotDate,
		Migrate:      getEnvOrDefault("DB_MIGRATE", "true") == "true",
	}
	switch cfg.Kind {
	case KindAuto, KindSupabase, KindPostgres, KindMock:
	default:
		return cfg, fmt.Errorf("unknown DATA_BACKEND %q", cfg.Kind)
	}
	if raw := os.Getenv("SNAPSHOT_DATE"); raw != "" {
		date, err := safety.ParseDate(raw)
		if err != nil {
			return cfg, fmt.Errorf("parse SNAPSHOT_DATE: %w", err)
		}
		cfg.SnapshotDate = date
	}
	return cfg, nil
}

// Options carries collaborators for the Supabase client.
type Options struct {
	HTTPClient *http.Client
	Registry   *resilience.Registry
	Observer   supabase.Observer
	Logger     zerolog.Logger
}

// Backend bundles the repositories of one data store.
type Backend struct {
	Kind     Kind
	States   state.Repository
	Safety   safety.Repository
	Uploads  upload.Repository
	Settings settings.Repository

	ping  func(ctx context.Context) error
	close func()
}

// Open resolves cfg.Kind and opens the matching store.
func Open(ctx context.Context, cfg Config, opts Options) (*Backend, error) {
	log := opts.Logger.With().Str("component", "backend").Logger()

	kind := cfg.Kind
	if kind == KindAuto {
		switch {
		case cfg.Supabase.Configured():
			kind = KindSupabase
		case cfg.Database.Configured():
			kind = KindPostgres
		default:
			kind = KindMock
			log.Warn().Msg("no data store configured, serving the sample dataset")
		}
	}

	var (
		b   *Backend
		err error
	)
	switch kind {
	case KindSupabase:
		b, err = openSupabase(cfg, opts)
	case KindPostgres:
		b, err = openPostgres(ctx, cfg)
	case KindMock:
		b, err = OpenMock(ctx, cfg.SnapshotDate)
	default:
		err = fmt.Errorf("unknown backend %q", kind)
	}
	if err != nil {
		return nil, err
	}

	log.Info().Str("backend", string(b.Kind)).Msg("data backend ready")
	return b, nil
}

func openSupabase(cfg Config, opts Options) (*Backend, error) {
	client, err := supabase.NewClient(cfg.Supabase, supabase.Options{
		HTTPClient: opts.HTTPClient,
		Registry:   opts.Registry,
		Observer:   opts.Observer,
		Logger:     opts.Logger,
	})
	if err != nil {
		return nil, err
	}
	return &Backend{
		Kind:     KindSupabase,
		States:   state.NewSupabaseRepository(client),
		Safety:   safety.NewSupabaseRepository(client),
		Uploads:  upload.NewSupabaseRepository(client),
		Settings: settings.NewSupabaseRepository(client),
		ping:     client.Ping,
		close:    func() {},
	}, nil
}

func openPostgres(ctx context.Context, cfg Config) (*Backend, error) {
	if !cfg.Database.Configured() {
		return nil, fmt.Errorf("postgres backend requires DATABASE_URL or DB_HOST")
	}
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	if cfg.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return &Backend{
		Kind:     KindPostgres,
		States:   state.NewPostgresRepository(pool),
		Safety:   safety.NewPostgresRepository(pool),
		Uploads:  upload.NewPostgresRepository(pool),
		Settings: settings.NewPostgresRepository(pool),
		ping:     pool.Ping,
		close:    pool.Close,
	}, nil
}

// OpenMock returns in-memory repositories seeded with the sample dataset.
func OpenMock(ctx context.Context, snapshot time.Time) (*Backend, error) {
	states := state.NewInMemoryRepository()
	records := safety.NewInMemoryRepository()
	if _, err := sampledata.Seed(ctx, states, records, sampledata.Options{Snapshot: snapshot}); err != nil {
		return nil, fmt.Errorf("seed sample data: %w", err)
	}
	return &Backend{
		Kind:     KindMock,
		States:   states,
		Safety:   records,
		Uploads:  upload.NewInMemoryRepository(),
		Settings: settings.NewInMemoryRepository(),
		ping:     func(context.Context) error { return nil },
		close:    func() {},
	}, nil
}

// UsingSupabase reports whether requests go to Supabase.
func (b *Backend) UsingSupabase() bool {
	return b.Kind == KindSupabase
}

// Name returns the backend kind as a string.
func (b *Backend) Name() string {
	return string(b.Kind)
}

// Ping checks that the store is reachable.
func (b *Backend) Ping(ctx context.Context) error {
	return b.ping(ctx)
}

// Close releases pooled connections.
func (b *Backend) Close() {
	b.close()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
