package resilience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker/v2"
)

var (
	// ErrCircuitOpen is returned without calling the upstream while its breaker is open.
	ErrCircuitOpen = errors.New("circuit breaker is open")

	// ErrBodyNotReplayable is returned when a request with a body has no GetBody.
	ErrBodyNotReplayable = errors.New("request body cannot be replayed")
)

// Config configures a Client.
type Config struct {
	// Name identifies the upstream in the registry and breaker.
	Name string

	// Timeout bounds each attempt. Default 10s.
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt. Default 2.
	MaxRetries uint64

	InitialInterval time.Duration // default 100ms
	MaxInterval     time.Duration // default 2s

	// Breaker defaults to DefaultBreakerConfig(Name).
	Breaker *BreakerConfig

	// HTTPClient is used for transport. A new client is created when nil.
	HTTPClient *http.Client

	// Registry, when set, receives the client and its call outcomes.
	Registry *Registry
}

// DefaultConfig returns the retry policy used for upstream data services.
func DefaultConfig(name string) Config {
	breaker := DefaultBreakerConfig(name)
	return Config{
		Name:            name,
		Timeout:         10 * time.Second,
		MaxRetries:      2,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     2 * time.Second,
		Breaker:         &breaker,
	}
}

// Client executes HTTP requests with retries behind a circuit breaker.
type Client struct {
	name     string
	http     *http.Client
	breaker  *gobreaker.CircuitBreaker[*http.Response]
	cfg      Config
	registry *Registry
}

// NewClient creates a Client and registers it when cfg.Registry is set.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.InitialInterval == 0 {
		cfg.InitialInterval = 100 * time.Millisecond
	}
	if cfg.MaxInterval == 0 {
		cfg.MaxInterval = 2 * time.Second
	}
	breakerCfg := DefaultBreakerConfig(cfg.Name)
	if cfg.Breaker != nil {
		breakerCfg = *cfg.Breaker
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	c := &Client{
		name:     cfg.Name,
		http:     httpClient,
		breaker:  NewBreaker[*http.Response](breakerCfg), //nolint:bodyclose // type parameter
		cfg:      cfg,
		registry: cfg.Registry,
	}
	if c.registry != nil {
		c.registry.Register(cfg.Name, c)
	}
	return c
}

// Name returns the upstream name.
func (c *Client) Name() string {
	return c.name
}

// Do sends req, retrying network errors, 429 and 5xx responses with
// exponential backoff. Requests with a body must be replayable via GetBody.
// When retries are exhausted on an error status, the last response is returned
// with a nil error so the caller can read the upstream's message.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return nil, ErrBodyNotReplayable
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.cfg.InitialInterval
	bo.MaxInterval = c.cfg.MaxInterval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, c.cfg.MaxRetries), ctx)

	var last *http.Response
	attempt := func() error {
		resp, err := c.breaker.Execute(func() (*http.Response, error) { //nolint:bodyclose // returned to caller
			return c.send(ctx, req)
		})
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return backoff.Permanent(ErrCircuitOpen)
		}
		if last != nil {
			drain(last)
		}
		last = resp
		if err != nil {
			var status *StatusError
			if errors.As(err, &status) {
				return err
			}
			if ctx.Err() != nil {
				return backoff.Permanent(ctx.Err())
			}
			return err
		}
		return nil
	}

	err := backoff.Retry(attempt, policy)
	c.record(err)
	if err != nil {
		var status *StatusError
		if errors.As(err, &status) && last != nil {
			return last, nil
		}
		if last != nil {
			drain(last)
		}
		return nil, err
	}
	return last, nil
}

func (c *Client) send(ctx context.Context, req *http.Request) (*http.Response, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)

	clone := req.Clone(attemptCtx)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			cancel()
			return nil, fmt.Errorf("replay body: %w", err)
		}
		clone.Body = body
	}

	resp, err := c.http.Do(clone)
	if err != nil {
		cancel()
		return nil, err
	}
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}

	if resp.StatusCode >= http.StatusInternalServerError || resp.StatusCode == http.StatusTooManyRequests {
		return resp, &StatusError{StatusCode: resp.StatusCode}
	}
	return resp, nil
}

func (c *Client) record(err error) {
	if c.registry == nil {
		return
	}
	if err == nil {
		c.registry.RecordSuccess(c.name)
		return
	}
	c.registry.RecordFailure(c.name, err)
}

// State returns the breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// Counts returns the breaker counters.
func (c *Client) Counts() gobreaker.Counts {
	return c.breaker.Counts()
}

// StatusError is a retryable upstream status (429 or 5xx).
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (b *cancelOnClose) Close() error {
	err := b.ReadCloser.Close()
	b.cancel()
	return err
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
