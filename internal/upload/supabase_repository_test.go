package upload_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/supabase"
	"github.com/indiasafety/safetyindex/internal/upload"
)

const uploadsURL = "https://demo.supabase.co/rest/v1/data_uploads"

func newSupabaseRepo(t *testing.T) *upload.SupabaseRepository {
	t.Helper()
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)

	client, err := supabase.NewClient(
		supabase.Config{URL: "https://demo.supabase.co", AnonKey: "anon"},
		supabase.Options{HTTPClient: hc, Logger: zerolog.Nop()},
	)
	require.NoError(t, err)
	return upload.NewSupabaseRepository(client)
}

func TestSupabaseRepository_ListNewestFirst(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodGet, uploadsURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "created_at.desc", req.URL.Query().Get("order"))
		return httpmock.NewStringResponse(http.StatusOK, `[
			{"id":"u2","filename":"b.csv","file_type":"text/csv","status":"completed","processed_rows":3,"total_rows":3},
			{"id":"u1","filename":"a.csv","file_type":"text/csv","status":"failed","error_message":"bad header"}
		]`), nil
	})

	uploads, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, uploads, 2)
	assert.Equal(t, upload.StatusCompleted, uploads[0].Status)
	require.NotNil(t, uploads[1].ErrorMessage)
	assert.Equal(t, "bad header", *uploads[1].ErrorMessage)
}

func TestSupabaseRepository_UpdatePatchesMutableFields(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodPatch, uploadsURL, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, "eq.u1", req.URL.Query().Get("id"))
		body, _ := io.ReadAll(req.Body)
		var payload map[string]any
		require.NoError(t, json.Unmarshal(body, &payload))
		assert.NotContains(t, payload, "filename")
		assert.Equal(t, "completed", payload["status"])
		assert.EqualValues(t, 4, payload["processed_rows"])
		return httpmock.NewStringResponse(http.StatusOK,
			`[{"id":"u1","status":"completed","updated_at":"2025-02-02T00:00:00Z","created_at":"2025-02-01T00:00:00Z"}]`), nil
	})

	u := &upload.Upload{ID: "u1", Filename: "a.csv", Status: upload.StatusCompleted, ProcessedRows: 4, TotalRows: 4}
	require.NoError(t, repo.Update(context.Background(), u))
	assert.Equal(t, 2, u.UpdatedAt.Day())
}

func TestSupabaseRepository_UpdateMissing(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodPatch, uploadsURL, httpmock.NewStringResponder(http.StatusOK, `[]`))

	err := repo.Update(context.Background(), &upload.Upload{ID: "nope", Status: upload.StatusFailed})
	assert.ErrorIs(t, err, upload.ErrUploadNotFound)
}

func TestSupabaseRepository_GetMissing(t *testing.T) {
	repo := newSupabaseRepo(t)

	httpmock.RegisterResponder(http.MethodGet, uploadsURL, httpmock.NewStringResponder(http.StatusOK, `[]`))

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, upload.ErrUploadNotFound)
}
