package ingest

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"

	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/telemetry"
	"github.com/indiasafety/safetyindex/internal/upload"
)

// MaxReportedErrors caps the row errors returned to callers.
const MaxReportedErrors = 10

// FileType is recorded on uploads created by the importer.
const FileType = "text/csv"

// Config holds the importer's collaborators.
type Config struct {
	States  state.Repository
	Safety  *safety.Service
	Uploads *upload.Service
	// Store retains raw files for re-processing. Optional.
	Store  storage.Store
	Logger zerolog.Logger
}

// Importer turns CSV files into safety records and logs them as uploads.
type Importer struct {
	states  state.Repository
	safety  *safety.Service
	uploads *upload.Service
	store   storage.Store
	logger  zerolog.Logger
}

// New creates an importer.
func New(cfg Config) *Importer {
	return &Importer{
		states:  cfg.States,
		safety:  cfg.Safety,
		uploads: cfg.Uploads,
		store:   cfg.Store,
		logger:  cfg.Logger.With().Str("component", "ingest").Logger(),
	}
}

// Import parses r and upserts every valid row. Rows are applied
// independently; failures are collected, not rolled back.
func (im *Importer) Import(ctx context.Context, r io.Reader, sourceURL *string) (upload.Outcome, error) {
	ctx, span := telemetry.Tracer("ingest").Start(ctx, "ingest.Import")
	defer span.End()

	rows, rowErrs, err := Parse(r, ParseDefaults{
		RecordedAt:    im.safety.SnapshotDate(),
		DataSourceURL: sourceURL,
	})
	if errors.Is(err, ErrEmptyFile) {
		return upload.Outcome{}, nil
	}
	if err != nil {
		return upload.Outcome{}, err
	}

	states, err := im.states.List(ctx)
	if err != nil {
		return upload.Outcome{}, fmt.Errorf("list states: %w", err)
	}
	ids := make(map[string]string, len(states))
	for _, st := range states {
		ids[st.Code] = st.ID
	}

	outcome := upload.Outcome{TotalRows: len(rows) + len(rowErrs)}
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}
		stateID, ok := ids[row.StateCode]
		if !ok {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Msg: "unknown state code " + row.StateCode})
			continue
		}
		if err := im.safety.Upsert(ctx, row.Record(stateID)); err != nil {
			rowErrs = append(rowErrs, RowError{Line: row.Line, Msg: rowMessage(err)})
			continue
		}
		outcome.ProcessedRows++
	}

	sort.SliceStable(rowErrs, func(i, j int) bool { return rowErrs[i].Line < rowErrs[j].Line })
	outcome.FailedRows = len(rowErrs)
	span.SetAttributes(
		attribute.Int("ingest.total_rows", outcome.TotalRows),
		attribute.Int("ingest.processed_rows", outcome.ProcessedRows),
	)
	for i := 0; i < len(rowErrs) && i < MaxReportedErrors; i++ {
		outcome.Errors = append(outcome.Errors, rowErrs[i].Error())
	}
	return outcome, nil
}

func rowMessage(err error) string {
	var verr *safety.ValidationError
	if errors.As(err, &verr) {
		msgs := make([]string, 0, len(verr.Errors))
		for _, fe := range verr.Errors {
			msgs = append(msgs, fe.Field+" "+fe.Message)
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

// Submit records a new upload, retains the raw file, imports it and stores the
// outcome on the upload. A file with a malformed header marks the upload
// failed and returns a *HeaderError.
func (im *Importer) Submit(ctx context.Context, filename string, sourceURL *string, data []byte) (*models.ImportResult, error) {
	u, err := im.uploads.Begin(ctx, filename, FileType, sourceURL)
	if err != nil {
		return nil, err
	}

	if im.store != nil {
		key := objectKey(u.ID, filename)
		if _, err := im.store.Put(ctx, key, FileType, bytes.NewReader(data)); err != nil {
			im.logger.Warn().Err(err).Str("upload_id", u.ID).Msg("failed to retain upload file")
		} else if u, err = im.uploads.AttachObject(ctx, u.ID, key); err != nil {
			return nil, err
		}
	}

	return im.process(ctx, u, bytes.NewReader(data))
}

// Reprocess re-runs the import of a retained upload.
func (im *Importer) Reprocess(ctx context.Context, uploadID string) (*models.ImportResult, error) {
	u, err := im.uploads.Get(ctx, uploadID)
	if err != nil {
		return nil, err
	}
	if u.ObjectKey == nil || im.store == nil {
		return nil, upload.ErrNoObject
	}

	rc, err := im.store.Open(ctx, *u.ObjectKey)
	if err != nil {
		return nil, fmt.Errorf("open retained file: %w", err)
	}
	defer rc.Close()

	im.logger.Info().Str("upload_id", uploadID).Msg("reprocessing upload")
	return im.process(ctx, u, rc)
}

func (im *Importer) process(ctx context.Context, u *upload.Upload, r io.Reader) (*models.ImportResult, error) {
	outcome, err := im.Import(ctx, r, u.SourceURL)
	if err != nil {
		if _, failErr := im.uploads.Fail(ctx, u.ID, err); failErr != nil {
			im.logger.Error().Err(failErr).Str("upload_id", u.ID).Msg("failed to mark upload failed")
		}
		return nil, err
	}

	if _, err := im.uploads.Complete(ctx, u.ID, outcome); err != nil {
		return nil, err
	}

	return &models.ImportResult{
		Message:       fmt.Sprintf("Processed %d of %d rows", outcome.ProcessedRows, outcome.TotalRows),
		UploadID:      u.ID,
		ProcessedRows: outcome.ProcessedRows,
		TotalRows:     outcome.TotalRows,
		Errors:        outcome.Errors,
	}, nil
}

func objectKey(uploadID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload.csv"
	}
	return "uploads/" + uploadID + "/" + name
}
