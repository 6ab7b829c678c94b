// Package middleware provides HTTP middleware for the safety index API.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

type requestIDKey struct{}

// maxClientRequestIDLength bounds client-supplied IDs echoed into logs and headers.
const maxClientRequestIDLength = 128

// RequestID assigns a request ID, reusing a well-formed X-Request-Id from the
// client, and exposes it in the context and the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-Id"))
		if requestID == "" || len(requestID) > maxClientRequestIDLength {
			requestID = "req_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:22]
		}

		w.Header().Set("X-Request-Id", requestID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}
