package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/api"
	"github.com/indiasafety/safetyindex/internal/api/models"
	"github.com/indiasafety/safetyindex/internal/auth"
	"github.com/indiasafety/safetyindex/internal/backend"
	"github.com/indiasafety/safetyindex/internal/images"
	"github.com/indiasafety/safetyindex/internal/ingest"
	"github.com/indiasafety/safetyindex/internal/resilience"
	"github.com/indiasafety/safetyindex/internal/safety"
	"github.com/indiasafety/safetyindex/internal/settings"
	"github.com/indiasafety/safetyindex/internal/state"
	"github.com/indiasafety/safetyindex/internal/storage"
	"github.com/indiasafety/safetyindex/internal/upload"
)

const testSigningKey = "test-secret-key-for-testing-only"

func testJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey})
}

// generateTestToken issues a token for subject with the given role.
func generateTestToken(t *testing.T, role string) string {
	t.Helper()
	token, _, err := testJWTService().GenerateAccessToken("usr_test123", role)
	require.NoError(t, err)
	return token
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := zerolog.New(io.Discard)

	b, err := backend.OpenMock(context.Background(), safety.DefaultSnapshotDate)
	require.NoError(t, err)

	safetyService := safety.NewService(safety.ServiceConfig{
		States:  b.States,
		Records: b.Safety,
		Logger:  logger,
	})
	uploadService := upload.NewService(b.Uploads, logger)
	store := storage.NewMemoryStore("")

	return api.NewRouter(api.RouterConfig{
		Version:         "test",
		BuildTime:       "2024-01-01T00:00:00Z",
		Logger:          logger,
		TokenValidator:  testJWTService(),
		Store:           b,
		Registry:        resilience.NewRegistry(),
		StateService:    state.NewService(b.States, logger),
		SafetyService:   safetyService,
		UploadService:   uploadService,
		SettingsService: settings.NewService(settings.ServiceConfig{Repository: b.Settings, Logger: logger}),
		ImageService:    images.NewService(store, logger),
		Importer: ingest.New(ingest.Config{
			States:  b.States,
			Safety:  safetyService,
			Uploads: uploadService,
			Store:   store,
			Logger:  logger,
		}),
		MediaStore: store,
	})
}

func serve(router http.Handler, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func adminRequest(t *testing.T, req *http.Request) *http.Request {
	t.Helper()
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, auth.RoleAdmin))
	return req
}

func multipartRequest(t *testing.T, target, field, filename string, content []byte, fields map[string]string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = fw.Write(content)
	require.NoError(t, err)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/ops/health", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "test", health.Details["version"])
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/ops/ready", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	health := decode[models.Health](t, w)
	assert.Equal(t, models.HealthStatusOK, health.Status)
	assert.Equal(t, "mock", health.Details["backend"])
}

func TestRouter_StoreStatus(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/_status", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	status := decode[models.StoreStatus](t, w)
	assert.False(t, status.UsingSupabase)
	assert.Equal(t, "mock", status.Backend)
}

func TestRouter_ListStates(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/states", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.State]](t, w)
	assert.Equal(t, 36, list.Total)
	require.Len(t, list.Data, 36)
	assert.Equal(t, "Andaman and Nicobar Islands", list.Data[0].Name)
}

func TestRouter_CreateState(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, jsonRequest(t, http.MethodPost, "/api/states", models.CreateStateRequest{Code: "xx", Name: "Testland"}))
	assert.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.DataResponse[models.State]](t, w)
	assert.Equal(t, "XX", created.Data.Code)
	assert.NotEmpty(t, created.Data.ID)

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/states", models.CreateStateRequest{Code: "GJ", Name: "Gujarat"}))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "application/problem+json", w.Header().Get("Content-Type"))

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/states", models.CreateStateRequest{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Equal(t, models.ProblemTypeValidation, problem.Type)
	assert.NotEmpty(t, problem.Errors)
	assert.NotEmpty(t, problem.TraceID)
}

func TestRouter_CreateState_InvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/states", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	w := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_CreateState_WrongContentType(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/states", strings.NewReader("code=XX"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := serve(router, req)

	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestRouter_ListSafety(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.SafetyData]](t, w)
	require.Len(t, list.Data, 36)
	assert.Equal(t, "GJ", list.Data[0].StateCode)
	assert.Equal(t, 80.0, list.Data[0].SafetyPercentage)
	for i := 1; i < len(list.Data); i++ {
		assert.GreaterOrEqual(t, list.Data[i-1].SafetyPercentage, list.Data[i].SafetyPercentage)
	}
}

func TestRouter_ListSafety_SortByName(t *testing.T) {
	router := newTestRouter(t)

	asc := decode[models.ListResponse[models.SafetyData]](t,
		serve(router, httptest.NewRequest(http.MethodGet, "/api/safety?sort=name&dir=asc", http.NoBody)))
	desc := decode[models.ListResponse[models.SafetyData]](t,
		serve(router, httptest.NewRequest(http.MethodGet, "/api/safety?sort=name&dir=desc", http.NoBody)))

	require.Len(t, asc.Data, 36)
	require.Len(t, desc.Data, 36)
	assert.Equal(t, "Andaman and Nicobar Islands", asc.Data[0].StateName)
	for i := range asc.Data {
		assert.Equal(t, asc.Data[i].StateCode, desc.Data[len(desc.Data)-1-i].StateCode)
	}
}

func TestRouter_ListSafety_Query(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety?q=pradesh", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.SafetyData]](t, w)
	assert.Equal(t, 5, list.Total)
	for _, d := range list.Data {
		assert.Contains(t, strings.ToLower(d.StateName), "pradesh")
	}
}

func TestRouter_ListSafety_InvalidParams(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name  string
		query string
	}{
		{name: "unknown sort", query: "sort=population"},
		{name: "unknown direction", query: "dir=sideways"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety?"+tt.query, http.NoBody))
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRouter_Rankings(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/rankings", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	rankings := decode[models.DataResponse[models.Rankings]](t, w).Data
	require.Len(t, rankings.Safest, 4)
	require.Len(t, rankings.Concerning, 4)
	assert.Equal(t, "GJ", rankings.Safest[0].StateCode)
	assert.Equal(t, "DL", rankings.Concerning[0].StateCode)

	safest := make(map[string]bool)
	for _, d := range rankings.Safest {
		safest[d.StateCode] = true
	}
	for _, d := range rankings.Concerning {
		assert.False(t, safest[d.StateCode], "state %s in both lists", d.StateCode)
	}
}

func TestRouter_Rankings_Limit(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/rankings?limit=2", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	rankings := decode[models.DataResponse[models.Rankings]](t, w).Data
	assert.Len(t, rankings.Safest, 2)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/rankings?limit=abc", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Compare(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/compare?codes=kl,%20XX,KL", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.CompareEntry]](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, "KL", list.Data[0].StateCode)
	assert.Equal(t, "Kerala", list.Data[0].Name)
	assert.Equal(t, 76.0, list.Data[0].SafetyPercentage)
}

func TestRouter_Compare_Errors(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/compare", http.NoBody))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/compare?codes=XX,YY", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_StateDetail(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/kl", http.NoBody))

	assert.Equal(t, http.StatusOK, w.Code)
	detail := decode[models.DataResponse[models.StateDetail]](t, w).Data
	assert.Equal(t, "Kerala", detail.State.Name)
	assert.Equal(t, 76.0, detail.SafetyPercentage)
	assert.Len(t, detail.Trend, 4)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/ZZ", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_UpsertStateRecord(t *testing.T) {
	router := newTestRouter(t)

	pct := 91.5
	w := serve(router, jsonRequest(t, http.MethodPut, "/api/safety/KL", models.SafetyRecordRequest{SafetyPercentage: &pct}))
	assert.Equal(t, http.StatusOK, w.Code)
	record := decode[models.DataResponse[models.SafetyRecord]](t, w).Data
	assert.Equal(t, "2023-01-01", record.RecordedAt)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/KL", http.NoBody))
	detail := decode[models.DataResponse[models.StateDetail]](t, w).Data
	assert.Equal(t, 91.5, detail.SafetyPercentage)

	outOfRange := 150.0
	w = serve(router, jsonRequest(t, http.MethodPut, "/api/safety/KL", models.SafetyRecordRequest{SafetyPercentage: &outOfRange}))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, jsonRequest(t, http.MethodPut, "/api/safety/ZZ", models.SafetyRecordRequest{SafetyPercentage: &pct}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_CreateRecord(t *testing.T) {
	router := newTestRouter(t)

	pct := 42.0
	w := serve(router, jsonRequest(t, http.MethodPost, "/api/safety", models.SafetyRecordRequest{
		StateCode:        "DL",
		RecordedAt:       "2023-01-01",
		SafetyPercentage: &pct,
	}))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/DL", http.NoBody))
	detail := decode[models.DataResponse[models.StateDetail]](t, w).Data
	assert.Equal(t, 42.0, detail.SafetyPercentage)

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/safety", models.SafetyRecordRequest{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Len(t, problem.Errors, 3)

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/safety", models.SafetyRecordRequest{
		StateCode:        "ZZ",
		RecordedAt:       "2023-01-01",
		SafetyPercentage: &pct,
	}))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Uploads(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, jsonRequest(t, http.MethodPost, "/api/uploads", models.CreateUploadRequest{
		Filename: "ncrb-2023.csv",
		FileType: "text/csv",
	}))
	assert.Equal(t, http.StatusCreated, w.Code)
	created := decode[models.DataResponse[models.Upload]](t, w).Data
	assert.Equal(t, "pending", created.Status)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/uploads", http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.Upload]](t, w)
	require.Len(t, list.Data, 1)
	assert.Equal(t, created.ID, list.Data[0].ID)

	w = serve(router, jsonRequest(t, http.MethodPost, "/api/uploads", models.CreateUploadRequest{}))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Admin_RequiresAuth(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/admin/status", http.NoBody))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/status", http.NoBody)
	req.Header.Set("Authorization", "Bearer not-a-token")
	w = serve(router, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/api/admin/status", http.NoBody)
	req.Header.Set("Authorization", "Bearer "+generateTestToken(t, "authenticated"))
	w = serve(router, req)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRouter_Admin_Unconfigured(t *testing.T) {
	router := api.NewRouter(api.RouterConfig{Logger: zerolog.Nop()})

	req := adminRequest(t, httptest.NewRequest(http.MethodGet, "/api/admin/status", http.NoBody))
	w := serve(router, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Admin_SystemStatus(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, adminRequest(t, httptest.NewRequest(http.MethodGet, "/api/admin/status", http.NoBody)))

	assert.Equal(t, http.StatusOK, w.Code)
	status := decode[models.SystemStatus](t, w)
	assert.Equal(t, models.HealthStatusOK, status.Status)
	require.NotEmpty(t, status.Subsystems)
	assert.Equal(t, "backend:mock", status.Subsystems[0].Name)
	assert.NotNil(t, status.Providers)
}

func TestRouter_Admin_UploadCSV(t *testing.T) {
	router := newTestRouter(t)

	csv := []byte("state_code,safety_percentage\nKL,88\nZZ,50\n")
	req := adminRequest(t, multipartRequest(t, "/api/admin/upload", "file", "update.csv", csv,
		map[string]string{"sourceUrl": "https://example.org/data"}))
	w := serve(router, req)

	require.Equal(t, http.StatusOK, w.Code)
	result := decode[models.ImportResult](t, w)
	assert.Equal(t, 1, result.ProcessedRows)
	assert.Equal(t, 2, result.TotalRows)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ZZ")
	assert.NotEmpty(t, result.UploadID)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/safety/KL", http.NoBody))
	detail := decode[models.DataResponse[models.StateDetail]](t, w).Data
	assert.Equal(t, 88.0, detail.SafetyPercentage)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/uploads", http.NoBody))
	uploads := decode[models.ListResponse[models.Upload]](t, w)
	require.Len(t, uploads.Data, 1)
	assert.Equal(t, "completed", uploads.Data[0].Status)

	// The retained file can be re-imported inline without a worker queue.
	w = serve(router, adminRequest(t, httptest.NewRequest(http.MethodPost,
		"/api/admin/uploads/"+result.UploadID+"/reprocess", http.NoBody)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRouter_Admin_UploadCSV_BadHeader(t *testing.T) {
	router := newTestRouter(t)

	req := adminRequest(t, multipartRequest(t, "/api/admin/upload", "file", "bad.csv",
		[]byte("name,score\nKerala,10\n"), nil))
	w := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	problem := decode[models.Problem](t, w)
	assert.Contains(t, problem.Detail, "state_code")
}

func TestRouter_Admin_UploadCSV_MissingFile(t *testing.T) {
	router := newTestRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("sourceUrl", "https://example.org"))
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/admin/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	w := serve(router, adminRequest(t, req))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Admin_Reprocess_NotFound(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, adminRequest(t, httptest.NewRequest(http.MethodPost,
		"/api/admin/uploads/missing/reprocess", http.NoBody)))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Admin_Images(t *testing.T) {
	router := newTestRouter(t)

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)
	req := adminRequest(t, multipartRequest(t, "/api/admin/images", "file", "logo.png", png,
		map[string]string{"type": "banner"}))
	w := serve(router, req)

	require.Equal(t, http.StatusCreated, w.Code)
	img := decode[models.DataResponse[models.Image]](t, w).Data
	assert.Equal(t, "image/png", img.ContentType)
	assert.True(t, strings.HasPrefix(img.Name, "banner/"))
	assert.True(t, strings.HasPrefix(img.URL, "/api/media/images/banner/"))

	w = serve(router, adminRequest(t, httptest.NewRequest(http.MethodGet, "/api/admin/images", http.NoBody)))
	assert.Equal(t, http.StatusOK, w.Code)
	list := decode[models.ListResponse[models.Image]](t, w)
	assert.Equal(t, 1, list.Total)

	w = serve(router, httptest.NewRequest(http.MethodGet, img.URL, http.NoBody))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, png, w.Body.Bytes())
}

func TestRouter_Admin_Images_Rejected(t *testing.T) {
	router := newTestRouter(t)

	req := adminRequest(t, multipartRequest(t, "/api/admin/images", "file", "notes.txt",
		[]byte("plain text is not an image"), nil))
	w := serve(router, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Media_OnlyImages(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, httptest.NewRequest(http.MethodGet, "/api/media/uploads/secret.csv", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(router, httptest.NewRequest(http.MethodGet, "/api/media/images/../uploads/secret.csv", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRouter_Admin_Export(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		format      string
		contentType string
		extension   string
	}{
		{format: "csv", contentType: "text/csv", extension: ".csv"},
		{format: "json", contentType: "application/json", extension: ".json"},
		{format: "xlsx", contentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", extension: ".xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			w := serve(router, adminRequest(t, httptest.NewRequest(http.MethodGet,
				"/api/admin/export?format="+tt.format, http.NoBody)))

			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), tt.contentType))
			disposition := w.Header().Get("Content-Disposition")
			assert.Contains(t, disposition, "safety-data-")
			assert.Contains(t, disposition, tt.extension)
			assert.NotZero(t, w.Body.Len())
		})
	}

	w := serve(router, adminRequest(t, httptest.NewRequest(http.MethodGet, "/api/admin/export?format=pdf", http.NoBody)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRouter_Admin_Settings(t *testing.T) {
	router := newTestRouter(t)

	w := serve(router, adminRequest(t, httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)))
	assert.Equal(t, http.StatusOK, w.Code)
	values := decode[models.DataResponse[models.Settings]](t, w).Data
	assert.Equal(t, "https://ncrb.gov.in/crime-in-india", values[settings.KeyCrimeSourceURL])
	assert.Equal(t, false, values[settings.KeyEmailNotificationsUploads])

	w = serve(router, adminRequest(t, jsonRequest(t, http.MethodPut, "/api/admin/settings",
		map[string]interface{}{settings.KeyEmailNotificationsUploads: true})))
	assert.Equal(t, http.StatusOK, w.Code)
	values = decode[models.DataResponse[models.Settings]](t, w).Data
	assert.Equal(t, true, values[settings.KeyEmailNotificationsUploads])

	w = serve(router, adminRequest(t, jsonRequest(t, http.MethodPut, "/api/admin/settings",
		map[string]interface{}{"theme": "dark"})))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(router, adminRequest(t, httptest.NewRequest(http.MethodPost, "/api/admin/settings/invalidate", http.NoBody)))
	assert.Equal(t, http.StatusNoContent, w.Code)
}
