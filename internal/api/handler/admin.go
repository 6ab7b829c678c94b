package handler

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/export"
	"github.com/indiasafety/safetyindex/internal/images"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// MaxCSVSize is the largest accepted CSV upload in bytes.
const MaxCSVSize = 10 << 20

// multipartOverhead allows for form boundaries and the non-file fields.
const multipartOverhead = 64 << 10

// Enqueuer hands re-import jobs to the background worker.
type Enqueuer interface {
	EnqueueReimport(ctx context.Context, uploadIDs ...string) (string, error)
}

// AdminConfig holds the admin handler's collaborators.
type AdminConfig struct {
	Importer *ingest.Importer
	Uploads  *upload.Service
	Safety   *safety.Service
	Settings *settings.Service
	Images   *images.Service
	// Enqueuer is optional. Without it reprocessing runs inline.
	Enqueuer Enqueuer
	Logger   zerolog.Logger
}

// AdminHandler handles the /api/admin endpoints.
type AdminHandler struct {
	importer *ingest.Importer
	uploads  *upload.Service
	safety   *safety.Service
	settings *settings.Service
	images   *images.Service
	enqueuer Enqueuer
	logger   zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(cfg AdminConfig) *AdminHandler {
	return &AdminHandler{
		importer: cfg.Importer,
		uploads:  cfg.Uploads,
		safety:   cfg.Safety,
		settings: cfg.Settings,
		images:   cfg.Images,
		enqueuer: cfg.Enqueuer,
		logger:   cfg.Logger.With().Str("component", "admin").Logger(),
	}
}

// UploadCSV handles POST /api/admin/upload (multipart: file, sourceUrl).
func (h *AdminHandler) UploadCSV(w http.ResponseWriter, r *http.Request) {
	filename, data, ok := h.readFormFile(w, r, "file", MaxCSVSize)
	if !ok {
		return
	}

	var sourceURL *string
	if v := strings.TrimSpace(r.FormValue("sourceUrl")); v != "" {
		sourceURL = &v
	}

	result, err := h.importer.Submit(r.Context(), filename, sourceURL, data)
	if err != nil {
		if ingest.IsInputError(err) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}

	if h.settings != nil && h.settings.EmailNotificationsForUploads(r.Context()) {
		h.logger.Info().
			Str("upload_id", result.UploadID).
			Int("processed_rows", result.ProcessedRows).
			Int("total_rows", result.TotalRows).
			Msg("upload notification requested")
	}

	response.JSON(w, r, http.StatusOK, result)
}

// ReprocessUpload handles POST /api/admin/uploads/{id}/reprocess. With a
// worker queue configured the job is queued and 202 returned.
func (h *AdminHandler) ReprocessUpload(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	u, err := h.uploads.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	if u.ObjectKey == nil {
		writeServiceError(w, r, h.logger, upload.ErrNoObject)
		return
	}

	if h.enqueuer != nil {
		msgID, err := h.enqueuer.EnqueueReimport(r.Context(), id)
		if err != nil {
			h.logger.Error().Err(err).Str("upload_id", id).Msg("failed to enqueue reimport")
			response.ServiceUnavailable(w, r, "the import queue is unavailable")
			return
		}
		response.Accepted(w, r, "", models.DataResponse[map[string]string]{Data: map[string]string{
			"upload_id":  id,
			"message_id": msgID,
		}})
		return
	}

	result, err := h.importer.Reprocess(r.Context(), id)
	if err != nil {
		if ingest.IsInputError(err) {
			response.BadRequest(w, r, err.Error(), nil)
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.JSON(w, r, http.StatusOK, result)
}

// ListImages handles GET /api/admin/images.
func (h *AdminHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	list, err := h.images.List(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.List(w, r, list)
}

// UploadImage handles POST /api/admin/images (multipart: file, type).
func (h *AdminHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	_, data, ok := h.readFormFile(w, r, "file", images.MaxSize)
	if !ok {
		return
	}

	img, err := h.images.Upload(r.Context(), r.FormValue("type"), bytes.NewReader(data))
	if err != nil {
		switch {
		case errors.Is(err, images.ErrTooLarge):
			response.PayloadTooLarge(w, r, err.Error())
		case errors.Is(err, images.ErrUnsupportedType),
			errors.Is(err, images.ErrInvalidKind),
			errors.Is(err, images.ErrEmpty):
			response.BadRequest(w, r, err.Error(), nil)
		default:
			writeServiceError(w, r, h.logger, err)
		}
		return
	}
	response.Created(w, r, img.URL, models.DataResponse[models.Image]{Data: *img})
}

// Export handles GET /api/admin/export?format=csv|json|xlsx.
func (h *AdminHandler) Export(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		response.BadRequest(w, r, "invalid query parameter", []models.FieldError{
			{Field: "format", Message: "must be one of csv, json, xlsx", Code: models.CodeInvalid},
		})
		return
	}

	data, err := h.safety.List(r.Context(), safety.ListOptions{})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}

	var buf bytes.Buffer
	if err := export.Write(&buf, format, data); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Attachment(w, r, export.Filename(format, time.Now()), format.ContentType(), buf.Bytes())
}

// GetSettings handles GET /api/admin/settings - defaults merged with stored values.
func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	response.Data(w, r, h.settings.Values(r.Context()))
}

// UpdateSettings handles PUT /api/admin/settings - upserts a batch of values.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input map[string]interface{}
	if !decodeJSON(w, r, &input) {
		return
	}

	values, err := h.settings.Update(r.Context(), input)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	response.Data(w, r, values)
}

// InvalidateCache handles POST /api/admin/settings/invalidate. It also drops
// the snapshot listing cache.
func (h *AdminHandler) InvalidateCache(w http.ResponseWriter, r *http.Request) {
	h.settings.InvalidateCache()
	if h.safety != nil {
		h.safety.InvalidateCache()
	}
	response.NoContent(w, r)
}

// readFormFile parses a bounded multipart form and returns the named file.
// It writes the error response and returns ok=false on failure.
func (h *AdminHandler) readFormFile(w http.ResponseWriter, r *http.Request, field string, limit int64) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(limit + multipartOverhead); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large") {
			response.PayloadTooLarge(w, r, "file exceeds the upload limit")
			return "", nil, false
		}
		response.BadRequest(w, r, "expected a multipart form", nil)
		return "", nil, false
	}

	file, header, err := r.FormFile(field)
	if err != nil {
		response.BadRequest(w, r, "missing file", []models.FieldError{
			{Field: field, Message: "is required", Code: models.CodeRequired},
		})
		return "", nil, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		response.BadRequest(w, r, "could not read uploaded file", nil)
		return "", nil, false
	}
	if int64(len(data)) > limit {
		response.PayloadTooLarge(w, r, "file exceeds the upload limit")
		return "", nil, false
	}
	return header.Filename, data, true
}
