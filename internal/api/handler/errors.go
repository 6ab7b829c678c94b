package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/api/response"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// maxJSONBody bounds JSON request bodies.
const maxJSONBody = 1 << 20

// decodeJSON reads a bounded JSON body into v. It writes a 400 and returns
// false when the body is missing or malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			response.BadRequest(w, r, "request body is required", nil)
		} else {
			response.BadRequest(w, r, "invalid JSON body", nil)
		}
		return false
	}
	return true
}

// fieldErrors extracts field-level errors from any of the domain validation
// error types.
func fieldErrors(err error) ([]models.FieldError, bool) {
	var (
		stateErr    *state.ValidationError
		safetyErr   *safety.ValidationError
		uploadErr   *upload.ValidationError
		settingsErr *settings.ValidationError
	)
	switch {
	case errors.As(err, &stateErr):
		return stateErr.Errors, true
	case errors.As(err, &safetyErr):
		return safetyErr.Errors, true
	case errors.As(err, &uploadErr):
		return uploadErr.Errors, true
	case errors.As(err, &settingsErr):
		return settingsErr.Errors, true
	}
	return nil, false
}

// writeServiceError maps a domain error onto a problem response. Unrecognized
// errors are logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	if errs, ok := fieldErrors(err); ok {
		response.BadRequest(w, r, "validation failed", errs)
		return
	}

	switch {
	case errors.Is(err, state.ErrStateNotFound):
		response.NotFound(w, r, "state not found")
	case errors.Is(err, state.ErrDuplicateCode):
		response.Conflict(w, r, "a state with this code already exists")
	case errors.Is(err, safety.ErrNoStatesFound):
		response.NotFound(w, r, "no states found for the given codes")
	case errors.Is(err, safety.ErrRecordNotFound):
		response.NotFound(w, r, "safety record not found")
	case errors.Is(err, safety.ErrMissingCodes), errors.Is(err, safety.ErrUnsupportedOrder):
		response.BadRequest(w, r, err.Error(), nil)
	case errors.Is(err, upload.ErrUploadNotFound):
		response.NotFound(w, r, "upload not found")
	case errors.Is(err, upload.ErrNoObject):
		response.Conflict(w, r, "upload has no retained file to reprocess")
	default:
		logger.Error().Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		response.InternalError(w, r, "an unexpected error occurred")
	}
}
