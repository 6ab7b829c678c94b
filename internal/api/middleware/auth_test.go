package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/api/middleware"
	"github.com/indiasafety/safetyindex/internal/auth"
)

const testSigningKey = "test-secret-key-for-testing-only"

func newTestJWTService() *auth.JWTService {
	return auth.NewJWTService(auth.JWTConfig{SigningKey: testSigningKey})
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_MissingAuthorizationHeader(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization header")
}

func TestAuth_InvalidAuthorizationFormat(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	tests := []struct {
		name   string
		header string
	}{
		{"no bearer prefix", "token123"},
		{"basic auth", "Basic dXNlcjpwYXNz"},
		{"bearer lowercase no space", "bearer"},
		{"empty bearer", "Bearer "},
		{"just bearer", "Bearer"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)
			req.Header.Set("Authorization", tt.header)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestAuth_InvalidToken(t *testing.T) {
	handler := middleware.Auth(newTestJWTService())(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)
	req.Header.Set("Authorization", "Bearer invalid.jwt.token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid access token")
}

func TestAuth_ValidTokenStoresClaims(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateAccessToken("usr_admin", auth.RoleAdmin)
	require.NoError(t, err)

	var capturedUserID string
	handler := middleware.Auth(svc)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		capturedUserID = middleware.GetUserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	for _, prefix := range []string{"Bearer ", "bearer ", "BEARER "} {
		t.Run(prefix, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)
			req.Header.Set("Authorization", prefix+token)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "usr_admin", capturedUserID)
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestJWTService()
	handler := middleware.Auth(svc)(middleware.RequireAdmin(okHandler()))

	tests := []struct {
		name   string
		role   string
		status int
	}{
		{"admin", auth.RoleAdmin, http.StatusOK},
		{"viewer", "viewer", http.StatusForbidden},
		{"no role", "", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := svc.GenerateAccessToken("usr_1", tt.role)
			require.NoError(t, err)

			req := httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestRequireAdmin_WithoutAuth(t *testing.T) {
	rec := httptest.NewRecorder()
	middleware.RequireAdmin(okHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/settings", http.NoBody))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGetUserID_NoAuth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/states", http.NoBody)
	assert.Empty(t, middleware.GetUserID(req.Context()))
	assert.Nil(t, middleware.GetClaims(req.Context()))
}
