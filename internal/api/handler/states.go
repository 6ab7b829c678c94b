package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/state"
)

// StatesHandler handles state endpoints.
type StatesHandler struct {
	service *state.Service
	logger  zerolog.Logger
}

// NewStatesHandler creates a new StatesHandler.
func NewStatesHandler(service *state.Service, logger zerolog.Logger) *StatesHandler {
	return &StatesHandler{service: service, logger: logger}
}

// ListStates handles GET /api/states - all states ordered by name.
func (h *StatesHandler) ListStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.List(w, r, states)
}

// CreateState handles POST /api/states.
func (h *StatesHandler) CreateState(w http.ResponseWriter, r *http.Request) {
	var input models.CreateStateRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	created, err := h.service.Create(r.Context(), &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "/api/safety/"+created.Code, models.DataResponse[models.State]{Data: *created})
}
