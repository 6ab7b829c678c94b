// Package api provides the HTTP API for the safety index dashboard.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/handler"
	"github.com/indiasafety/safetyindex/internal/api/middleware"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/images"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// RouterConfig holds configuration for the router.
type RouterConfig struct {
	Version     string
	BuildTime   string
	Logger      zerolog.Logger
	ServiceName string
	Metrics     *middleware.Metrics
	RequireTLS  bool

	// TokenValidator verifies admin bearer tokens. Without it every admin
	// request is rejected with 401.
	TokenValidator middleware.TokenValidator

	Store      handler.DataStore
	Registry   *resilience.Registry
	Subsystems []handler.Subsystem

	StateService    *state.Service
	SafetyService   *safety.Service
	UploadService   *upload.Service
	SettingsService *settings.Service
	ImageService    *images.Service
	Importer        *ingest.Importer
	MediaStore      storage.Store

	// Enqueuer queues re-imports for the worker. Optional.
	Enqueuer handler.Enqueuer
}

// NewRouter creates a new chi router with all API routes configured.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "safetyindex-api"
	}

	// Global middleware - order matters
	r.Use(middleware.RequestID)            // Generate/propagate request ID first
	r.Use(middleware.Tracing(serviceName)) // Distributed tracing
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware()) // HTTP metrics
	}
	r.Use(middleware.Logger(cfg.Logger))         // Structured logging
	r.Use(middleware.Recovery(cfg.Logger))       // Panic recovery
	r.Use(chimiddleware.RealIP)                  // Real IP extraction
	r.Use(middleware.SecurityHeaders)            // Security headers
	r.Use(middleware.RequireTLS(cfg.RequireTLS)) // TLS enforcement behind the load balancer
	r.Use(middleware.ContentTypeJSON)            // JSON content type unless a handler overrides it

	opsHandler := handler.NewOpsHandler(cfg.Version, cfg.BuildTime, cfg.Store, cfg.Registry, cfg.Subsystems...)
	statesHandler := handler.NewStatesHandler(cfg.StateService, cfg.Logger)
	safetyHandler := handler.NewSafetyHandler(cfg.SafetyService, cfg.Logger)
	uploadsHandler := handler.NewUploadsHandler(cfg.UploadService, cfg.Logger)
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Importer: cfg.Importer,
		Uploads:  cfg.UploadService,
		Safety:   cfg.SafetyService,
		Settings: cfg.SettingsService,
		Images:   cfg.ImageService,
		Enqueuer: cfg.Enqueuer,
		Logger:   cfg.Logger,
	})

	authMiddleware := rejectAll
	if cfg.TokenValidator != nil {
		authMiddleware = middleware.Auth(cfg.TokenValidator)
	}

	publicRateLimit := middleware.RateLimitByIP(middleware.PublicRateLimit)   // 300 req/min
	uploadRateLimit := middleware.RateLimitByUser(middleware.UploadRateLimit) // 10 req/min per admin

	r.Route("/api", func(r chi.Router) {
		// Ops endpoints (public)
		r.Route("/ops", func(r chi.Router) {
			r.Get("/health", opsHandler.HealthCheck)
			r.Get("/ready", opsHandler.ReadinessCheck)
		})

		// Public dashboard API
		r.Group(func(r chi.Router) {
			r.Use(publicRateLimit)
			r.Use(middleware.RequireJSON)

			r.Get("/_status", opsHandler.StoreStatus)

			r.Route("/states", func(r chi.Router) {
				r.Get("/", statesHandler.ListStates)
				r.Post("/", statesHandler.CreateState)
			})

			r.Route("/safety", func(r chi.Router) {
				r.Get("/", safetyHandler.ListSafety)
				r.Post("/", safetyHandler.CreateRecord)
				r.Get("/rankings", safetyHandler.GetRankings)
				r.Get("/compare", safetyHandler.CompareStates)
				r.Get("/{code}", safetyHandler.GetStateDetail)
				r.Put("/{code}", safetyHandler.UpsertStateRecord)
			})

			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", uploadsHandler.ListUploads)
				r.Post("/", uploadsHandler.CreateUpload)
			})
		})

		// Media served from the in-memory store
		if cfg.MediaStore != nil {
			mediaHandler := handler.NewMediaHandler(cfg.MediaStore, cfg.Logger)
			r.With(publicRateLimit).Get("/media/*", mediaHandler.ServeMedia)
		}

		// Admin endpoints (admin JWT required)
		r.Route("/admin", func(r chi.Router) {
			r.Use(authMiddleware)
			r.Use(middleware.RequireAdmin)
			r.Use(middleware.RateLimitByUser(middleware.AdminRateLimit)) // 60 req/min per admin

			r.Get("/status", opsHandler.SystemStatus)
			r.Get("/export", adminHandler.Export)

			r.Group(func(r chi.Router) {
				r.Use(uploadRateLimit)
				r.Use(middleware.RequireContentType("multipart/form-data"))
				r.Post("/upload", adminHandler.UploadCSV)
				r.Post("/images", adminHandler.UploadImage)
			})
			r.Get("/images", adminHandler.ListImages)
			r.With(uploadRateLimit).Post("/uploads/{id}/reprocess", adminHandler.ReprocessUpload)

			r.Route("/settings", func(r chi.Router) {
				r.Get("/", adminHandler.GetSettings)
				r.With(middleware.RequireJSON).Put("/", adminHandler.UpdateSettings)
				r.Post("/invalidate", adminHandler.InvalidateCache)
			})
		})
	})

	return r
}

// rejectAll stands in for the auth middleware when no token validator is
// configured.
func rejectAll(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		response.Unauthorized(w, r, "admin authentication is not configured")
	})
}
