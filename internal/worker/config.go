// Package worker runs background jobs for the safety index: re-importing
// retained CSV uploads and checking the data backend.
package worker

import (
	"os"
	"strconv"
	"time"
)

// Config holds worker settings.
type Config struct {
	// ProjectID is the Google Cloud project hosting the Pub/Sub topic.
	ProjectID string

	// Subscription is consumed by the worker process.
	Subscription string

	// Topic receives jobs published by the API.
	Topic string

	// Concurrency bounds uploads re-imported in parallel per message.
	// Default: 2
	Concurrency int

	// JobTimeout bounds a single upload re-import.
	// Default: 2 minutes
	JobTimeout time.Duration

	// MaxOutstanding is the Pub/Sub flow-control limit.
	// Default: 10
	MaxOutstanding int
}

// DefaultConfig returns the default worker configuration.
func DefaultConfig() Config {
	return Config{
		Subscription:   "safety-jobs-worker",
		Topic:          "safety-jobs",
		Concurrency:    2,
		JobTimeout:     2 * time.Minute,
		MaxOutstanding: 10,
	}
}

// ConfigFromEnv reads PUBSUB_* variables over the defaults.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	cfg.ProjectID = os.Getenv("PUBSUB_PROJECT_ID")
	cfg.Subscription = getEnvOrDefault("PUBSUB_SUBSCRIPTION", cfg.Subscription)
	cfg.Topic = getEnvOrDefault("PUBSUB_TOPIC", cfg.Topic)
	if n, err := strconv.Atoi(os.Getenv("WORKER_CONCURRENCY")); err == nil && n > 0 {
		cfg.Concurrency = n
	}
	if d, err := time.ParseDuration(os.Getenv("WORKER_JOB_TIMEOUT")); err == nil && d > 0 {
		cfg.JobTimeout = d
	}
	return cfg
}

// Enabled reports whether Pub/Sub is configured.
func (c Config) Enabled() bool {
	return c.ProjectID != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
