package state_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/supabase"
)

const restURL = "https://demo.supabase.co/rest/v1/states"

func newSupabaseRepo(t *testing.T) *state.SupabaseRepository {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := supabase.NewClient(
		supabase.Config{URL: "https://demo.supabase.co", AnonKey: "anon"},
		supabase.Options{HTTPClient: hc, Logger: zerolog.Nop()},
	)
	require.NoError(t, err)
	return state.NewSupabaseRepository(client)
}

func TestSupabaseRepository_List(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodGet, restURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "name.asc", req.URL.Query().Get("order"))
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"id":"a","code":"AP","name":"Andhra Pradesh","created_at":"2024-01-02T03:04:05.123+00:00"},
			{"id":"b","code":"AR","name":"Arunachal Pradesh","created_at":"2024-01-02T03:04:05Z"}
		]`), nil
	})

	states, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, states, 2)
	assert.Equal(t, "AP", states[0].Code)
	assert.Equal(t, 2024, states[0].CreatedAt.Year())
}

func TestSupabaseRepository_GetByCodeNotFound(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodGet, restURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "eq.ZZ", req.URL.Query().Get("code"))
		return httpmock.NewStringResponse(http.StatusOK, `[]`), nil
	})

	_, err := repo.GetByCode(context.Background(), "ZZ")
	assert.ErrorIs(t, err, state.ErrStateNotFound)
}

func TestSupabaseRepository_ListByCodes(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodGet, restURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, `in.("KA","KL")`, req.URL.Query().Get("code"))
		return httpmock.NewStringResponse(http.StatusOK, `[{"id":"k","code":"KA","name":"Karnataka"}]`), nil
	})

	states, err := repo.ListByCodes(context.Background(), []string{"KA", "KL"})
	require.NoError(t, err)
	require.Len(t, states, 1)
	assert.Equal(t, "Karnataka", states[0].Name)

	none, err := repo.ListByCodes(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestSupabaseRepository_CreateDuplicate(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodPost, restURL,
		httpmock.NewStringResponder(http.StatusConflict, `{"code":"23505","message":"duplicate key"}`))

	err := repo.Create(context.Background(), &state.State{ID: "x", Code: "KA", Name: "Karnataka"})
	assert.ErrorIs(t, err, state.ErrDuplicateCode)
}

func TestSupabaseRepository_CreateStampsCreatedAt(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodPost, restURL,
		httpmock.NewStringResponder(http.StatusCreated,
			`[{"id":"x","code":"KA","name":"Karnataka","created_at":"2025-05-01T10:00:00Z"}]`))

	s := &state.State{ID: "x", Code: "KA", Name: "Karnataka"}
	require.NoError(t, repo.Create(context.Background(), s))
	assert.Equal(t, 2025, s.CreatedAt.Year())
}
