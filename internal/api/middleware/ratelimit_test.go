package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/indiasafety/safetyindex/internal/api/middleware"
	"github.com/indiasafety/safetyindex/internal/auth"
)

func doFrom(handler http.Handler, remoteAddr string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/admin/upload", http.NoBody)
	req.RemoteAddr = remoteAddr
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitByIP_BlocksOverLimit(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 3, WindowLength: time.Minute})(okHandler())

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, doFrom(handler, "10.0.0.1:12345", nil).Code, "request %d", i+1)
	}

	rec := doFrom(handler, "10.0.0.1:12345", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Rate limit exceeded")
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))
}

func TestRateLimitByIP_DifferentIPsHaveSeparateLimits(t *testing.T) {
	handler := middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler())

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, doFrom(handler, "172.16.0.1:12345", nil).Code)
	}
	assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, "172.16.0.1:12345", nil).Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "172.16.0.2:12345", nil).Code)
}

func TestRateLimitByUser_KeysOnUserAcrossIPs(t *testing.T) {
	svc := newTestJWTService()
	token, _, err := svc.GenerateAccessToken("usr_admin", auth.RoleAdmin)
	require.NoError(t, err)

	handler := middleware.Auth(svc)(
		middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 2, WindowLength: time.Minute})(okHandler()),
	)
	header := http.Header{"Authorization": []string{"Bearer " + token}}

	assert.Equal(t, http.StatusOK, doFrom(handler, "192.168.1.1:1", header).Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "192.168.1.2:1", header).Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, "192.168.1.3:1", header).Code)
}

func TestRateLimitByUser_FallsBackToIP(t *testing.T) {
	handler := middleware.RateLimitByUser(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: time.Minute})(okHandler())

	assert.Equal(t, http.StatusOK, doFrom(handler, "198.51.100.1:1", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, doFrom(handler, "198.51.100.1:1", nil).Code)
	assert.Equal(t, http.StatusOK, doFrom(handler, "198.51.100.2:1", nil).Code)
}

func TestRateLimitExceededResponse_Format(t *testing.T) {
	handler := middleware.RequestID(
		middleware.RateLimitByIP(middleware.RateLimitConfig{RequestLimit: 1, WindowLength: 30 * time.Second})(okHandler()),
	)

	assert.Equal(t, http.StatusOK, doFrom(handler, "203.0.113.1:12345", nil).Code)
	rec := doFrom(handler, "203.0.113.1:12345", nil)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	body := rec.Body.String()
	assert.Contains(t, body, "too-many-requests")
	assert.Contains(t, body, "/api/admin/upload")
}

func TestDefaultRateLimitConfigs(t *testing.T) {
	assert.Equal(t, 10, middleware.UploadRateLimit.RequestLimit)
	assert.Equal(t, 60, middleware.AdminRateLimit.RequestLimit)
	assert.Equal(t, 300, middleware.PublicRateLimit.RequestLimit)
	assert.Equal(t, time.Minute, middleware.PublicRateLimit.WindowLength)
}
