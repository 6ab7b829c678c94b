package handler

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/images"
	"github.com/indiasafety/safetyindex/internal/storage"
)

// MediaHandler serves public objects from the configured store. Only keys
// under the images prefix are exposed.
type MediaHandler struct {
	store  storage.Store
	logger zerolog.Logger
}

// NewMediaHandler creates a new MediaHandler.
func NewMediaHandler(store storage.Store, logger zerolog.Logger) *MediaHandler {
	return &MediaHandler{store: store, logger: logger}
}

// ServeMedia handles GET /api/media/*.
func (h *MediaHandler) ServeMedia(w http.ResponseWriter, r *http.Request) {
	key := path.Clean("/" + chi.URLParam(r, "*"))[1:]
	if !strings.HasPrefix(key, images.Prefix) {
		response.NotFound(w, r, "media not found")
		return
	}

	rc, err := h.store.Open(r.Context(), key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			response.NotFound(w, r, "media not found")
			return
		}
		writeServiceError(w, r, h.logger, err)
		return
	}
	defer rc.Close()

	w.Header().Set("Content-Type", storage.ContentTypeForKey(key))
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, rc); err != nil {
		h.logger.Warn().Err(err).Str("key", key).Msg("media stream interrupted")
	}
}
