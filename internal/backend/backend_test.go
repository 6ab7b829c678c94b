package backend_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/backend"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/supabase"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATA_BACKEND", "SNAPSHOT_DATE", "DATABASE_URL", "DB_HOST",
		"SUPABASE_URL", "SUPABASE_ANON_KEY", "SUPABASE_SERVICE_ROLE_KEY",
		"NEXT_PUBLIC_SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_ANON_KEY",
	} {
		t.Setenv(k, "")
	}
}

func TestConfigFromEnv_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := backend.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, backend.KindAuto, cfg.Kind)
	assert.True(t, cfg.SnapshotDate.Equal(safety.DefaultSnapshotDate))
	assert.False(t, cfg.Supabase.Configured())
	assert.False(t, cfg.Database.Configured())
}

func TestConfigFromEnv_SnapshotAndKind(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_BACKEND", "Mock")
	t.Setenv("SNAPSHOT_DATE", "2024-01-01")

	cfg, err := backend.ConfigFromEnv()
	require.NoError(t, err)
	assert.Equal(t, backend.KindMock, cfg.Kind)
	assert.Equal(t, 2024, cfg.SnapshotDate.Year())
}

func TestConfigFromEnv_Invalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_BACKEND", "mysql")
	_, err := backend.ConfigFromEnv()
	assert.Error(t, err)

	clearEnv(t)
	t.Setenv("SNAPSHOT_DATE", "01/01/2023")
	_, err = backend.ConfigFromEnv()
	assert.Error(t, err)
}

func TestOpen_FallsBackToMock(t *testing.T) {
	b, err := backend.Open(context.Background(), backend.Config{SnapshotDate: safety.DefaultSnapshotDate},
		backend.Options{Logger: zerolog.Nop()})
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, backend.KindMock, b.Kind)
	assert.False(t, b.UsingSupabase())
	assert.Equal(t, "mock", b.Name())
	require.NoError(t, b.Ping(context.Background()))

	states, err := b.States.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, states, 36)

	recs, err := b.Safety.ListByDate(context.Background(), safety.DefaultSnapshotDate)
	require.NoError(t, err)
	assert.Len(t, recs, 36)
}

func TestOpen_MockHonoursSnapshotDate(t *testing.T) {
	snapshot := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	b, err := backend.OpenMock(context.Background(), snapshot)
	require.NoError(t, err)

	recs, err := b.Safety.ListByDate(context.Background(), snapshot)
	require.NoError(t, err)
	assert.Len(t, recs, 36)
}

func TestOpen_ForcedSupabaseRequiresConfig(t *testing.T) {
	_, err := backend.Open(context.Background(), backend.Config{Kind: backend.KindSupabase},
		backend.Options{Logger: zerolog.Nop()})
	assert.ErrorIs(t, err, supabase.ErrNotConfigured)
}

func TestOpen_ForcedPostgresRequiresConfig(t *testing.T) {
	_, err := backend.Open(context.Background(), backend.Config{Kind: backend.KindPostgres},
		backend.Options{Logger: zerolog.Nop()})
	assert.Error(t, err)
}

func TestOpen_PrefersSupabase(t *testing.T) {
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodGet, "https://demo.supabase.co/rest/v1/states",
		httpmock.NewStringResponder(http.StatusOK, `[]`))

	registry := resilience.NewRegistry()
	b, err := backend.Open(context.Background(), backend.Config{
		Supabase: supabase.Config{URL: "https://demo.supabase.co", AnonKey: "anon"},
	}, backend.Options{HTTPClient: hc, Registry: registry, Logger: zerolog.Nop()})
	require.NoError(t, err)

	assert.True(t, b.UsingSupabase())
	require.NoError(t, b.Ping(context.Background()))
	assert.NotNil(t, registry.Health(supabase.UpstreamName))
}
