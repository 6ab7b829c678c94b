// Package main provides the entrypoint for the safety index API server.
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api"
	"github.com/indiasafety/safetyindex/internal/api/handler"
	"github.com/indiasafety/safetyindex/internal/api/middleware"
	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/auth"
	"github.com/indiasafety/safetyindex/internal/backend"
	"github.com/indiasafety/safetyindex/internal/images"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/telemetry"
	"github.com/indiasafety/safetyindex/internal/upload"
	"github.com/indiasafety/safetyindex/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "safetyindex-api"

	// Setup structured logging
	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting safety index API")

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	// Initialize OpenTelemetry
	ctx := context.Background()
	telemetryCfg := telemetry.ConfigFromEnv(serviceName, Version)

	tp, err := telemetry.Init(ctx, telemetryCfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	if telemetryCfg.Enabled {
		log.Info().
			Str("otlp_endpoint", telemetryCfg.OTLPEndpoint).
			Msg("OpenTelemetry initialized")
	}

	// Initialize metrics
	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}
	storeMetrics, err := middleware.NewStoreMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize store metrics")
		os.Exit(1)
	}

	// Open the record store (Supabase, Postgres, or the seeded mock dataset)
	backendCfg, err := backend.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backend configuration")
	}
	registry := resilience.NewRegistry()
	store, err := backend.Open(ctx, backendCfg, backend.Options{
		Registry: registry,
		Observer: storeMetrics,
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open data backend")
	}
	defer store.Close()
	log.Info().
		Str("backend", store.Name()).
		Bool("using_supabase", store.UsingSupabase()).
		Msg("data backend ready")

	// Object storage for images and retained CSV files
	objects, err := storage.Open(ctx, storage.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open object storage")
	}
	if closer, ok := objects.(io.Closer); ok {
		defer closer.Close()
	}
	log.Info().Str("storage", objects.Name()).Msg("object storage ready")

	// Domain services
	stateService := state.NewService(store.States, log)
	safetyService := safety.NewService(safety.ServiceConfig{
		States:       store.States,
		Records:      store.Safety,
		SnapshotDate: backendCfg.SnapshotDate,
		Observer:     storeMetrics,
		Logger:       log,
	})
	uploadService := upload.NewService(store.Uploads, log)
	settingsService := settings.NewService(settings.ServiceConfig{
		Repository: store.Settings,
		Logger:     log,
		CacheTTL:   1 * time.Minute,
	})
	imageService := images.NewService(objects, log)
	importer := ingest.New(ingest.Config{
		States:  store.States,
		Safety:  safetyService,
		Uploads: uploadService,
		Store:   objects,
		Logger:  log,
	})
	log.Info().Msg("services initialized")

	// Admin JWT validation
	jwtService := auth.NewJWTService(auth.ConfigFromEnv())
	var tokenValidator middleware.TokenValidator
	if jwtService.Configured() {
		tokenValidator = jwtService
	} else {
		log.Warn().Msg("AUTH_JWT_SECRET not set - admin endpoints will reject all requests")
	}

	// Background re-import queue (optional)
	var enqueuer handler.Enqueuer
	workerCfg := worker.ConfigFromEnv()
	if workerCfg.Enabled() {
		publisher, err := worker.NewPublisher(ctx, workerCfg)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create job publisher")
		}
		defer publisher.Close()
		enqueuer = publisher
		log.Info().Str("topic", workerCfg.Topic).Msg("job publisher initialized")
	}

	// Create router with configuration
	router := api.NewRouter(api.RouterConfig{
		Version:         Version,
		BuildTime:       BuildTime,
		Logger:          log,
		ServiceName:     serviceName,
		Metrics:         metrics,
		RequireTLS:      os.Getenv("REQUIRE_TLS") == "true",
		TokenValidator:  tokenValidator,
		Store:           store,
		Registry:        registry,
		Subsystems:      subsystems(objects, safetyService, workerCfg),
		StateService:    stateService,
		SafetyService:   safetyService,
		UploadService:   uploadService,
		SettingsService: settingsService,
		ImageService:    imageService,
		Importer:        importer,
		MediaStore:      mediaStore(objects),
		Enqueuer:        enqueuer,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("addr", server.Addr).
			Msg("server listening")

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// mediaStore returns the store to serve under /api/media. GCS objects are
// fetched from their public bucket URL instead.
func mediaStore(objects storage.Store) storage.Store {
	if _, ok := objects.(*storage.MemoryStore); ok {
		return objects
	}
	return nil
}

// subsystems lists the components reported on the admin status page beyond
// the data backend.
func subsystems(objects storage.Store, safetyService *safety.Service, workerCfg worker.Config) []handler.Subsystem {
	return []handler.Subsystem{
		{
			Name: "storage:" + objects.Name(),
			Check: func(ctx context.Context) (models.HealthStatus, string) {
				if _, err := objects.List(ctx, images.Prefix); err != nil {
					return models.HealthStatusFail, err.Error()
				}
				if objects.Name() == "memory" {
					return models.HealthStatusDegraded, "objects are not persisted across restarts"
				}
				return models.HealthStatusOK, ""
			},
		},
		{
			Name: "cache:safety",
			Check: func(context.Context) (models.HealthStatus, string) {
				if safetyService.CachedItems() == 0 {
					return models.HealthStatusOK, "empty"
				}
				return models.HealthStatusOK, "warm"
			},
		},
		{
			Name: "queue:pubsub",
			Check: func(context.Context) (models.HealthStatus, string) {
				if !workerCfg.Enabled() {
					return models.HealthStatusOK, "disabled; re-imports run inline"
				}
				return models.HealthStatusOK, workerCfg.Topic
			},
		},
	}
}
