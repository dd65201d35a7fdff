package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCORSMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CORSOrigin = "http://kiosk.local"
	s := newTestServer(t, cfg)

	rec := serve(s, httptest.NewRequest(http.MethodOptions, "/api/v1/match", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://kiosk.local", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "86400", rec.Header().Get("Access-Control-Max-Age"))
	assert.Empty(t, rec.Header().Get(requestIDHeader), "preflight carries no request id")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Len(t, rec.Header().Get(requestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "frame-42")
	rec = serve(s, req)
	assert.Equal(t, "frame-42", rec.Header().Get(requestIDHeader))
}

func TestResponseWriter_CapturesStatus(t *testing.T) {
	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, statusCode: http.StatusOK}
	rw.WriteHeader(http.StatusTeapot)
	assert.Equal(t, http.StatusTeapot, rw.statusCode)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RateLimit = RateLimitConfig{Enabled: true, RequestsPerMinute: 1}
	s := newTestServer(t, cfg)

	req := func(ip string) *http.Request {
		r := httptest.NewRequest(http.MethodGet, "/api/v1/match", nil)
		r.Header.Set("X-Forwarded-For", ip)
		return r
	}

	rec := serve(s, req("10.0.0.1"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "first request reaches the handler")

	rec = serve(s, req("10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "minute", rec.Header().Get("X-RateLimit-Type"))
	assert.Equal(t, "1", rec.Header().Get("X-RateLimit-Limit"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "rate_limit_exceeded", body.Error)

	rec = serve(s, req("10.0.0.2"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, "limits are per client")

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code, "health is not rate limited")
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"forwarded chain", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.1"}, "9.9.9.9:1", "1.2.3.4"},
		{"forwarded single", map[string]string{"X-Forwarded-For": " 1.2.3.4 "}, "9.9.9.9:1", "1.2.3.4"},
		{"real ip", map[string]string{"X-Real-IP": "5.6.7.8"}, "9.9.9.9:1", "5.6.7.8"},
		{"remote addr", nil, "9.9.9.9:1234", "9.9.9.9"},
		{"remote without port", nil, "kiosk", "kiosk"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remote
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, getClientIP(r))
		})
	}
}
