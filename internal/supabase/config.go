// Package supabase is a small PostgREST client for a hosted Supabase project.
package supabase

import (
	"os"
	"strings"
	"time"
)

// Config holds Supabase connection settings.
type Config struct {
	URL            string
	AnonKey        string
	ServiceRoleKey string
	Timeout        time.Duration
}

// ConfigFromEnv reads SUPABASE_URL and SUPABASE_ANON_KEY, falling back to the
// NEXT_PUBLIC_ prefixed names used by browser deployments.
func ConfigFromEnv() Config {
	timeout, err := time.ParseDuration(getEnvOrDefault("SUPABASE_TIMEOUT", "10s"))
	if err != nil {
		timeout = 10 * time.Second
	}
	return Config{
		URL:            strings.TrimRight(firstEnv("SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"), "/"),
		AnonKey:        firstEnv("SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"),
		ServiceRoleKey: os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		Timeout:        timeout,
	}
}

// Configured reports whether both the project URL and a key are present.
func (c Config) Configured() bool {
	return c.URL != "" && c.APIKey() != ""
}

// APIKey returns the service role key when set, otherwise the anon key.
func (c Config) APIKey() string {
	if c.ServiceRoleKey != "" {
		return c.ServiceRoleKey
	}
	return c.AnonKey
}

func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			return v
		}
	}
	return ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
