package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serveHealth(t *testing.T, h *HealthChecker, path string) (int, map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	h.RegisterHealthEndpoints(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestHealthChecker_Probes(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		ready      bool
		wantCode   int
		wantStatus string
	}{
		{"liveness ignores readiness", "/healthz", false, http.StatusOK, healthStatusOK},
		{"ready", "/readyz", true, http.StatusOK, healthStatusOK},
		{"not ready", "/readyz", false, http.StatusServiceUnavailable, healthStatusNotReady},
		{"detailed not ready", "/healthz/detailed", false, http.StatusServiceUnavailable, healthStatusNotReady},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHealthChecker(nil)
			h.SetReady(tt.ready)
			code, body := serveHealth(t, h, tt.path)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantStatus, body["status"])
		})
	}
}

func TestHealthChecker_Detailed(t *testing.T) {
	sc := newTestServerContext(t, http.NewServeMux(), nil)
	h := NewHealthChecker(sc)

	code, body := serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "test", body["version"])
	assert.Equal(t, "token", body["auth_method"])
	assert.EqualValues(t, sc.Catalog().Len(), body["tools"])
	assert.Equal(t, sc.Client().BaseURL(), body["pwndoc_url"])

	require.NoError(t, sc.Shutdown())
	code, body = serveHealth(t, h, "/healthz/detailed")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, healthStatusShuttingDown, body["status"])

	code, body = serveHealth(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	checks := body["checks"].(map[string]any)
	assert.Equal(t, healthStatusShuttingDown, checks["shutdown"])
}
