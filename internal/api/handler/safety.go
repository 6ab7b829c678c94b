package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/safety"
)

// SafetyHandler handles the safety listing, rankings, comparison and detail
// endpoints.
type SafetyHandler struct {
	service *safety.Service
	logger  zerolog.Logger
}

// NewSafetyHandler creates a new SafetyHandler.
func NewSafetyHandler(service *safety.Service, logger zerolog.Logger) *SafetyHandler {
	return &SafetyHandler{service: service, logger: logger}
}

// ListSafety handles GET /api/safety?q=&sort=safety|name&dir=asc|desc.
func (h *SafetyHandler) ListSafety(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := safety.ListOptions{
		Query: query.Get("q"),
		Sort:  safety.SortField(strings.ToLower(strings.TrimSpace(query.Get("sort")))),
	}

	switch dir := strings.ToLower(strings.TrimSpace(query.Get("dir"))); dir {
	case "":
	case "asc":
		opts.Descending = boolPtr(false)
	case "desc":
		opts.Descending = boolPtr(true)
	default:
		response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
			{Field: "dir", Message: "must be asc or desc", Code: models.CodeInvalid},
		})
		return
	}

	data, err := h.service.List(r.Context(), opts)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.List(w, r, data)
}

// GetRankings handles GET /api/safety/rankings?limit=n.
func (h *SafetyHandler) GetRankings(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
				{Field: "limit", Message: "must be a positive integer", Code: models.CodeInvalid},
			})
			return
		}
		limit = n
	}

	rankings, err := h.service.Rankings(r.Context(), limit)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Data(w, r, *rankings)
}

// CompareStates handles GET /api/safety/compare?codes=A,B,C.
func (h *SafetyHandler) CompareStates(w http.ResponseWriter, r *http.Request) {
	codes := safety.ParseCodes(r.URL.Query().Get("codes"))

	entries, err := h.service.Compare(r.Context(), codes)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.List(w, r, entries)
}

// GetStateDetail handles GET /api/safety/{code}.
func (h *SafetyHandler) GetStateDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.Detail(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Data(w, r, *detail)
}

// UpsertStateRecord handles PUT /api/safety/{code}. recorded_at defaults to
// the snapshot date.
func (h *SafetyHandler) UpsertStateRecord(w http.ResponseWriter, r *http.Request) {
	var input models.SafetyRecordRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	record, err := h.service.UpsertForState(r.Context(), chi.URLParam(r, "code"), &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Data(w, r, *record)
}

// CreateRecord handles POST /api/safety.
func (h *SafetyHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var input models.SafetyRecordRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	record, err := h.service.Create(r.Context(), &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "", models.DataResponse[models.SafetyRecord]{Data: *record})
}

func boolPtr(b bool) *bool {
	return &b
}
