package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// Service manages the upload history.
type Service struct {
	repo   Repository
	logger zerolog.Logger
}

// NewService creates a new upload service.
func NewService(repo Repository, logger zerolog.Logger) *Service {
	return &Service{repo: repo, logger: logger.With().Str("component", "upload").Logger()}
}

// List returns the upload history, newest first.
func (s *Service) List(ctx context.Context) ([]models.Upload, error) {
	uploads, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.Upload, 0, len(uploads))
	for _, u := range uploads {
		out = append(out, ToAPIUpload(u))
	}
	return out, nil
}

// Get returns a single upload.
func (s *Service) Get(ctx context.Context, id string) (*Upload, error) {
	return s.repo.Get(ctx, id)
}

// Create records a pending upload from an API request.
func (s *Service) Create(ctx context.Context, input *models.CreateUploadRequest) (*models.Upload, error) {
	var errs []models.FieldError
	if strings.TrimSpace(input.Filename) == "" {
		errs = append(errs, models.FieldError{Field: "filename", Message: "is required", Code: models.CodeRequired})
	}
	if strings.TrimSpace(input.FileType) == "" {
		errs = append(errs, models.FieldError{Field: "file_type", Message: "is required", Code: models.CodeRequired})
	}
	if len(errs) > 0 {
		return nil, &ValidationError{Errors: errs}
	}

	u, err := s.Begin(ctx, strings.TrimSpace(input.Filename), strings.TrimSpace(input.FileType), input.SourceURL)
	if err != nil {
		return nil, err
	}
	result := ToAPIUpload(u)
	return &result, nil
}

// Begin inserts a pending upload.
func (s *Service) Begin(ctx context.Context, filename, fileType string, sourceURL *string) (*Upload, error) {
	if sourceURL != nil && strings.TrimSpace(*sourceURL) == "" {
		sourceURL = nil
	}
	u := &Upload{
		ID:        uuid.NewString(),
		Filename:  filename,
		FileType:  fileType,
		SourceURL: sourceURL,
		Status:    StatusPending,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		s.logger.Error().Err(err).Str("filename", filename).Msg("failed to record upload")
		return nil, fmt.Errorf("create upload: %w", err)
	}
	s.logger.Info().Str("upload_id", u.ID).Str("filename", filename).Msg("upload recorded")
	return u, nil
}

// AttachObject records where the raw file was retained.
func (s *Service) AttachObject(ctx context.Context, id, objectKey string) (*Upload, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	u.ObjectKey = &objectKey
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Complete stores the outcome of an import. The upload is completed when at
// least one row was imported or the file had no rows, and failed otherwise.
func (s *Service) Complete(ctx context.Context, id string, outcome Outcome) (*Upload, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	u.ProcessedRows = outcome.ProcessedRows
	u.TotalRows = outcome.TotalRows
	u.ErrorMessage = summarize(outcome)
	if outcome.ProcessedRows > 0 || outcome.TotalRows == 0 {
		u.Status = StatusCompleted
	} else {
		u.Status = StatusFailed
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("upload_id", id).
		Str("status", string(u.Status)).
		Int("processed_rows", u.ProcessedRows).
		Int("total_rows", u.TotalRows).
		Msg("upload processed")
	return u, nil
}

// Fail marks an upload failed with cause as its error message.
func (s *Service) Fail(ctx context.Context, id string, cause error) (*Upload, error) {
	u, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	msg := cause.Error()
	u.Status = StatusFailed
	u.ErrorMessage = &msg
	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	s.logger.Warn().Str("upload_id", id).Err(cause).Msg("upload failed")
	return u, nil
}

func summarize(o Outcome) *string {
	if o.FailedRows == 0 {
		return nil
	}
	msg := fmt.Sprintf("%d of %d rows failed", o.FailedRows, o.TotalRows)
	if len(o.Errors) > 0 {
		msg += ": " + o.Errors[0]
	}
	return &msg
}

// ToAPIUpload converts an upload to its API shape.
func ToAPIUpload(u *Upload) models.Upload {
	return models.Upload{
		ID:            u.ID,
		Filename:      u.Filename,
		FileType:      u.FileType,
		SourceURL:     u.SourceURL,
		Status:        string(u.Status),
		ErrorMessage:  u.ErrorMessage,
		ObjectKey:     u.ObjectKey,
		ProcessedRows: u.ProcessedRows,
		TotalRows:     u.TotalRows,
		CreatedAt:     models.Timestamp(u.CreatedAt),
		UpdatedAt:     models.Timestamp(u.UpdatedAt),
	}
}
