package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/api/models"
)

// Job types carried in Message.JobType.
const (
	JobCSVImport   = "csv_import"
	JobHealthCheck = "health_check"
)

// ErrUnknownJob is returned by Dispatcher.Handle for unrecognised job types.
var ErrUnknownJob = errors.New("unknown job type")

// Message is the JSON payload of a job. A csv_import job names its uploads
// through upload_id, upload_ids, or both.
type Message struct {
	JobType   string   `json:"job_type"`
	UploadID  string   `json:"upload_id,omitempty"`
	UploadIDs []string `json:"upload_ids,omitempty"`
}

// Uploads returns the distinct upload IDs named by m, upload_id first.
func (m Message) Uploads() []string {
	seen := make(map[string]bool, len(m.UploadIDs)+1)
	var ids []string
	for _, id := range append([]string{m.UploadID}, m.UploadIDs...) {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	return ids
}

// Reprocessor re-runs the import of a retained upload.
type Reprocessor interface {
	Reprocess(ctx context.Context, uploadID string) (*models.ImportResult, error)
}

// Pinger checks the data backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ImportResult is the outcome of one upload re-import.
type ImportResult struct {
	UploadID string
	Result   *models.ImportResult
	Err      error
}

// BatchResult summarizes a csv_import job.
type BatchResult struct {
	Results    []ImportResult
	Successful int
	Failed     int
	Duration   time.Duration
}

// Metrics counts processed jobs.
type Metrics struct {
	mu sync.RWMutex

	Jobs           int64
	UploadsOK      int64
	UploadsFailed  int64
	HealthChecks   int64
	LastJobAt      time.Time
	LastJobElapsed time.Duration
}

// Dispatcher decodes job messages and runs them.
type Dispatcher struct {
	reprocessor Reprocessor
	pinger      Pinger
	concurrency int
	jobTimeout  time.Duration
	logger      zerolog.Logger
	metrics     *Metrics
}

// DispatcherConfig holds the dispatcher's collaborators.
type DispatcherConfig struct {
	Reprocessor Reprocessor
	Pinger      Pinger
	Concurrency int
	JobTimeout  time.Duration
	Logger      zerolog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 2
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 2 * time.Minute
	}
	return &Dispatcher{
		reprocessor: cfg.Reprocessor,
		pinger:      cfg.Pinger,
		concurrency: cfg.Concurrency,
		jobTimeout:  cfg.JobTimeout,
		logger:      cfg.Logger.With().Str("component", "worker").Logger(),
		metrics:     &Metrics{},
	}
}

// Handle decodes data and runs the job it describes. A malformed payload or
// an unknown job type is returned as an error wrapping ErrUnknownJob or the
// decode error; callers ack those rather than retry.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) error {
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrUnknownJob, err)
	}

	switch msg.JobType {
	case JobCSVImport:
		ids := msg.Uploads()
		if len(ids) == 0 {
			return fmt.Errorf("%w: %s without upload ids", ErrUnknownJob, JobCSVImport)
		}
		result := d.RunImports(ctx, ids)
		if result.Failed > 0 && result.Successful == 0 {
			return fmt.Errorf("all %d re-imports failed", result.Failed)
		}
		return nil
	case JobHealthCheck:
		return d.HealthCheck(ctx)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownJob, msg.JobType)
	}
}

// RunImports re-imports uploadIDs with bounded concurrency.
func (d *Dispatcher) RunImports(ctx context.Context, uploadIDs []string) *BatchResult {
	start := time.Now()
	result := &BatchResult{Results: make([]ImportResult, len(uploadIDs))}

	ids := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < d.concurrency && w < len(uploadIDs); w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range ids {
				result.Results[i] = d.reimport(ctx, uploadIDs[i])
			}
		}()
	}

feed:
	for i := range uploadIDs {
		select {
		case ids <- i:
		case <-ctx.Done():
			for j := i; j < len(uploadIDs); j++ {
				result.Results[j] = ImportResult{UploadID: uploadIDs[j], Err: ctx.Err()}
			}
			break feed
		}
	}
	close(ids)
	wg.Wait()

	for _, r := range result.Results {
		if r.Err != nil {
			result.Failed++
		} else {
			result.Successful++
		}
	}
	result.Duration = time.Since(start)
	d.recordBatch(result)

	d.logger.Info().
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Dur("duration", result.Duration).
		Msg("csv re-import batch completed")
	return result
}

func (d *Dispatcher) reimport(ctx context.Context, uploadID string) ImportResult {
	jobCtx, cancel := context.WithTimeout(ctx, d.jobTimeout)
	defer cancel()

	res, err := d.reprocessor.Reprocess(jobCtx, uploadID)
	if err != nil {
		d.logger.Warn().Err(err).Str("upload_id", uploadID).Msg("re-import failed")
	}
	return ImportResult{UploadID: uploadID, Result: res, Err: err}
}

// HealthCheck pings the data backend.
func (d *Dispatcher) HealthCheck(ctx context.Context) error {
	d.metrics.mu.Lock()
	d.metrics.HealthChecks++
	d.metrics.mu.Unlock()

	if d.pinger == nil {
		return nil
	}
	if err := d.pinger.Ping(ctx); err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	return nil
}

func (d *Dispatcher) recordBatch(r *BatchResult) {
	d.metrics.mu.Lock()
	defer d.metrics.mu.Unlock()
	d.metrics.Jobs++
	d.metrics.UploadsOK += int64(r.Successful)
	d.metrics.UploadsFailed += int64(r.Failed)
	d.metrics.LastJobAt = time.Now()
	d.metrics.LastJobElapsed = r.Duration
}

// MetricsSnapshot returns the counters as a map for status output.
func (d *Dispatcher) MetricsSnapshot() map[string]interface{} {
	d.metrics.mu.RLock()
	defer d.metrics.mu.RUnlock()
	return map[string]interface{}{
		"jobs":           d.metrics.Jobs,
		"uploads_ok":     d.metrics.UploadsOK,
		"uploads_failed": d.metrics.UploadsFailed,
		"health_checks":  d.metrics.HealthChecks,
		"last_job_at":    d.metrics.LastJobAt,
		"last_job_ms":    d.metrics.LastJobElapsed.Milliseconds(),
	}
}
