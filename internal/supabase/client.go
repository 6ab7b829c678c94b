package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/indiasafety/safetyindex/internal/resilience"
)

// UpstreamName is the registry name of the REST client.
const UpstreamName = "supabase"

const uniqueViolation = "23505"

// ErrNotConfigured is returned by NewClient when URL or key is missing.
var ErrNotConfigured = errors.New("supabase is not configured")

// Observer receives per-call timings.
type Observer interface {
	RecordRequest(backend, operation string, duration time.Duration, err error)
}

// Options carries optional collaborators for NewClient.
type Options struct {
	HTTPClient *http.Client
	Registry   *resilience.Registry
	Observer   Observer
	Logger     zerolog.Logger
	MaxRetries uint64
}

// Client talks to the PostgREST endpoint of a Supabase project.
type Client struct {
	base     string
	key      string
	http     *resilience.Client
	observer Observer
	logger   zerolog.Logger
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, opts Options) (*Client, error) {
	if !cfg.Configured() {
		return nil, ErrNotConfigured
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("parse supabase url: %w", err)
	}

	rc := resilience.DefaultConfig(UpstreamName)
	if cfg.Timeout > 0 {
		rc.Timeout = cfg.Timeout
	}
	if opts.MaxRetries > 0 {
		rc.MaxRetries = opts.MaxRetries
	}
	rc.HTTPClient = opts.HTTPClient
	rc.Registry = opts.Registry

	return &Client{
		base:     strings.TrimRight(cfg.URL, "/") + "/rest/v1/",
		key:      cfg.APIKey(),
		http:     resilience.NewClient(rc),
		observer: opts.Observer,
		logger:   opts.Logger.With().Str("component", "supabase").Logger(),
	}, nil
}

// Select runs GET /rest/v1/<table> with PostgREST query params and decodes
// the JSON array into out.
func (c *Client) Select(ctx context.Context, table string, params url.Values, out any) error {
	return c.do(ctx, http.MethodGet, table, params, nil, "", out)
}

// Insert posts row (an object or slice) and decodes the inserted rows into out.
func (c *Client) Insert(ctx context.Context, table string, row, out any) error {
	return c.do(ctx, http.MethodPost, table, nil, row, "return=representation", out)
}

// Upsert posts row, merging on the onConflict columns.
func (c *Client) Upsert(ctx context.Context, table, onConflict string, row, out any) error {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	return c.do(ctx, http.MethodPost, table, params, row, "resolution=merge-duplicates,return=representation", out)
}

// Update patches the rows matched by params and decodes them into out.
func (c *Client) Update(ctx context.Context, table string, params url.Values, patch, out any) error {
	return c.do(ctx, http.MethodPatch, table, params, patch, "return=representation", out)
}

// Ping checks that the REST endpoint answers for the states table.
func (c *Client) Ping(ctx context.Context) error {
	var rows []json.RawMessage
	return c.Select(ctx, "states", url.Values{"select": {"id"}, "limit": {"1"}}, &rows)
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, body any, prefer string, out any) (err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.RecordRequest(UpstreamName, strings.ToLower(method)+"_"+table, time.Since(start), err)
		}
	}()

	endpoint := c.base + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	var payload io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", table, err)
		}
		payload = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, payload)
	if err != nil {
		return fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := decodeError(resp)
		c.logger.Debug().
			Str("table", table).
			Str("method", method).
			Int("status", resp.StatusCode).
			Str("code", apiErr.Code).
			Msg("supabase request failed")
		return apiErr
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", table, err)
	}
	return nil
}

// APIError is a PostgREST error response.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("supabase: status %d", e.StatusCode)
	}
	return fmt.Sprintf("supabase: status %d: %s", e.StatusCode, e.Message)
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, apiErr); err != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	apiErr.StatusCode = resp.StatusCode
	return apiErr
}

// IsConflict reports whether err is a unique constraint violation.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Code == uniqueViolation || apiErr.StatusCode == http.StatusConflict
}

// Eq builds a PostgREST equality filter value.
func Eq(v string) string {
	return "eq." + v
}

// In builds a PostgREST membership filter value with quoted items.
func In(values []string) string {
	quoted := make([]string, len(values))
	for i, v := range values {
		quoted[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "in.(" + strings.Join(quoted, ",") + ")"
}
