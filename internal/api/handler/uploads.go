package handler

import (
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// UploadsHandler handles the upload history endpoints.
type UploadsHandler struct {
	service *upload.Service
	logger  zerolog.Logger
}

// NewUploadsHandler creates a new UploadsHandler.
func NewUploadsHandler(service *upload.Service, logger zerolog.Logger) *UploadsHandler {
	return &UploadsHandler{service: service, logger: logger}
}

// ListUploads handles GET /api/uploads - newest first.
func (h *UploadsHandler) ListUploads(w http.ResponseWriter, r *http.Request) {
	uploads, err := h.service.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.List(w, r, uploads)
}

// CreateUpload handles POST /api/uploads - records a pending upload.
func (h *UploadsHandler) CreateUpload(w http.ResponseWriter, r *http.Request) {
	var input models.CreateUploadRequest
	if !decodeJSON(w, r, &input) {
		return
	}

	created, err := h.service.Create(r.Context(), &input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Created(w, r, "", models.DataResponse[models.Upload]{Data: *created})
}
