// Package main provides the entrypoint for the CSV re-import worker.
package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/middleware"
	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/backend"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/telemetry"
	"github.com/indiasafety/safetyindex/internal/upload"
	"github.com/indiasafety/safetyindex/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "safetyindex-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting worker")

	// Worker also exposes health endpoint for Cloud Run
	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8080"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.ConfigFromEnv(serviceName, Version))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shutdown telemetry")
		}
	}()

	workerCfg := worker.ConfigFromEnv()
	if !workerCfg.Enabled() {
		log.Fatal().Msg("PUBSUB_PROJECT_ID is required")
	}

	backendCfg, err := backend.ConfigFromEnv()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid backend configuration")
	}
	store, err := backend.Open(ctx, backendCfg, backend.Options{
		Registry: resilience.NewRegistry(),
		Logger:   log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open data backend")
	}
	defer store.Close()

	objects, err := storage.Open(ctx, storage.ConfigFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open object storage")
	}
	if closer, ok := objects.(io.Closer); ok {
		defer closer.Close()
	}

	safetyService := safety.NewService(safety.ServiceConfig{
		States:       store.States,
		Records:      store.Safety,
		SnapshotDate: backendCfg.SnapshotDate,
		Logger:       log,
	})
	importer := ingest.New(ingest.Config{
		States:  store.States,
		Safety:  safetyService,
		Uploads: upload.NewService(store.Uploads, log),
		Store:   objects,
		Logger:  log,
	})

	dispatcher := worker.NewDispatcher(worker.DispatcherConfig{
		Reprocessor: importer,
		Pinger:      store,
		Concurrency: workerCfg.Concurrency,
		JobTimeout:  workerCfg.JobTimeout,
		Logger:      log,
	})

	handler, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
		Config:     workerCfg,
		Dispatcher: dispatcher,
		Logger:     log,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create pubsub handler")
	}
	defer handler.Close()

	// Health endpoint reports job counters
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, models.Health{
			Status:  models.HealthStatusOK,
			Time:    models.Timestamp(time.Now()),
			Details: dispatcher.MetricsSnapshot(),
		})
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	go func() {
		if err := handler.Start(ctx); err != nil {
			log.Error().Err(err).Msg("pubsub handler stopped")
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down worker")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
