package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/telemetry"
)

func TestInit_Disabled(t *testing.T) {
	ctx := context.Background()

	provider, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "safetyindex-test",
		ServiceVersion: "1.0.0",
		Environment:    "test",
		OTLPEndpoint:   "localhost:4317",
		Enabled:        false,
	})

	require.NoError(t, err)
	require.NotNil(t, provider)
	assert.NotNil(t, provider.Tracer)
	assert.NotNil(t, provider.Meter)
	assert.Nil(t, provider.TracerProvider)
	assert.Nil(t, provider.MeterProvider)

	assert.NoError(t, provider.Shutdown(ctx))
}

func TestProvider_Shutdown_NilProviders(t *testing.T) {
	provider := &telemetry.Provider{}
	assert.NoError(t, provider.Shutdown(context.Background()))
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4317")
	t.Setenv("OTEL_SAMPLE_RATIO", "0.25")
	t.Setenv("APP_ENV", "production")

	cfg := telemetry.ConfigFromEnv("safetyindex-api", "v1.2.3")

	assert.True(t, cfg.Enabled)
	assert.Equal(t, "safetyindex-api", cfg.ServiceName)
	assert.Equal(t, "v1.2.3", cfg.ServiceVersion)
	assert.Equal(t, "collector:4317", cfg.OTLPEndpoint)
	assert.Equal(t, "production", cfg.Environment)
	assert.Equal(t, 0.25, cfg.SampleRatio)
	assert.Equal(t, 15*time.Second, cfg.ExportInterval)
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	t.Setenv("OTEL_SAMPLE_RATIO", "2")
	t.Setenv("APP_ENV", "")

	cfg := telemetry.ConfigFromEnv("safetyindex-worker", "dev")

	assert.False(t, cfg.Enabled)
	assert.Equal(t, telemetry.DefaultOTLPEndpoint, cfg.OTLPEndpoint)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, telemetry.DefaultSampleRatio, cfg.SampleRatio)
}

func TestTracer_ReturnsGlobalTracer(t *testing.T) {
	_, span := telemetry.Tracer("ingest").Start(context.Background(), "test")
	defer span.End()
	assert.NotNil(t, span)
}
