// Package handler provides HTTP handlers for the safety index API.
package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/resilience"
)

// readyTimeout bounds the backend ping behind the readiness probe.
const readyTimeout = 3 * time.Second

// DataStore reports which record store serves requests.
type DataStore interface {
	Name() string
	UsingSupabase() bool
	Ping(ctx context.Context) error
}

// Subsystem is an optional named component reported by the admin status page.
type Subsystem struct {
	Name  string
	Check func(ctx context.Context) (models.HealthStatus, string)
}

// OpsHandler handles operational endpoints.
type OpsHandler struct {
	version    string
	buildTime  string
	store      DataStore
	registry   *resilience.Registry
	subsystems []Subsystem
}

// NewOpsHandler creates a new OpsHandler.
func NewOpsHandler(version, buildTime string, store DataStore, registry *resilience.Registry, subsystems ...Subsystem) *OpsHandler {
	return &OpsHandler{
		version:    version,
		buildTime:  buildTime,
		store:      store,
		registry:   registry,
		subsystems: subsystems,
	}
}

// HealthCheck handles GET /api/ops/health - liveness check.
func (h *OpsHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
		Details: map[string]interface{}{
			"version":   h.version,
			"buildTime": h.buildTime,
		},
	}
	response.JSON(w, r, http.StatusOK, health)
}

// ReadinessCheck handles GET /api/ops/ready - pings the record store.
func (h *OpsHandler) ReadinessCheck(w http.ResponseWriter, r *http.Request) {
	health := models.Health{
		Status: models.HealthStatusOK,
		Time:   models.Timestamp(time.Now()),
	}
	if h.store == nil {
		response.JSON(w, r, http.StatusOK, health)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	health.Details = map[string]interface{}{"backend": h.store.Name()}
	if err := h.store.Ping(ctx); err != nil {
		health.Status = models.HealthStatusFail
		health.Details["error"] = err.Error()
		response.JSON(w, r, http.StatusServiceUnavailable, health)
		return
	}
	response.JSON(w, r, http.StatusOK, health)
}

// StoreStatus handles GET /api/_status - which backend serves data.
func (h *OpsHandler) StoreStatus(w http.ResponseWriter, r *http.Request) {
	status := models.StoreStatus{Backend: "mock"}
	if h.store != nil {
		status.Backend = h.store.Name()
		status.UsingSupabase = h.store.UsingSupabase()
	}
	response.JSON(w, r, http.StatusOK, status)
}

// SystemStatus handles GET /api/admin/status - subsystem and upstream
// circuit breaker status.
func (h *OpsHandler) SystemStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := models.SystemStatus{
		Status:     models.HealthStatusOK,
		Time:       models.Timestamp(time.Now()),
		Subsystems: []models.SubsystemStatus{},
		Providers:  []models.ProviderStatus{},
	}

	if h.store != nil {
		sub := models.SubsystemStatus{Name: "backend:" + h.store.Name(), Status: models.HealthStatusOK}
		if err := h.store.Ping(ctx); err != nil {
			sub.Status = models.HealthStatusFail
			sub.Detail = strPtr(err.Error())
		}
		status.Subsystems = append(status.Subsystems, sub)
	}
	for _, s := range h.subsystems {
		health, detail := s.Check(ctx)
		sub := models.SubsystemStatus{Name: s.Name, Status: health}
		if detail != "" {
			sub.Detail = strPtr(detail)
		}
		status.Subsystems = append(status.Subsystems, sub)
	}

	if h.registry != nil {
		for _, p := range h.registry.All() {
			status.Providers = append(status.Providers, toProviderStatus(p))
		}
	}

	status.Status = overallStatus(status)
	response.JSON(w, r, http.StatusOK, status)
}

func toProviderStatus(p *resilience.Health) models.ProviderStatus {
	ps := models.ProviderStatus{Provider: p.Name}
	switch p.Status() {
	case "ok":
		ps.Status = models.HealthStatusOK
	case "degraded":
		ps.Status = models.HealthStatusDegraded
	default:
		ps.Status = models.HealthStatusFail
	}
	if p.LastSuccessAt != nil {
		ts := models.Timestamp(*p.LastSuccessAt)
		ps.LastSuccessAt = &ts
	}
	if p.LastFailureAt != nil {
		ts := models.Timestamp(*p.LastFailureAt)
		ps.LastFailureAt = &ts
	}
	if p.LastError != "" {
		ps.Message = strPtr(p.LastError)
	}
	return ps
}

func overallStatus(s models.SystemStatus) models.HealthStatus {
	result := models.HealthStatusOK
	for _, sub := range s.Subsystems {
		if sub.Status == models.HealthStatusFail {
			return models.HealthStatusFail
		}
		if sub.Status == models.HealthStatusDegraded {
			result = models.HealthStatusDegraded
		}
	}
	for _, p := range s.Providers {
		if p.Status != models.HealthStatusOK {
			result = models.HealthStatusDegraded
		}
	}
	return result
}

func strPtr(s string) *string {
	return &s
}
