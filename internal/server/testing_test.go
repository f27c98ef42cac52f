package server

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
)

// newTestServerContext wires a ServerContext to a fake PwnDoc API served
// by mux. API paths are registered with their /api prefix.
func newTestServerContext(t *testing.T, mux *http.ServeMux, mutate func(*Options)) *ServerContext {
	t.Helper()
	api := httptest.NewServer(mux)
	t.Cleanup(api.Close)

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	client, err := pwndoc.NewClient(pwndoc.Options{
		BaseURL:           api.URL,
		Token:             "static",
		Timeout:           5 * time.Second,
		MaxRetries:        1,
		RetryDelay:        time.Millisecond,
		RateLimitRequests: 1000,
		RateLimitPeriod:   time.Minute,
		Logger:            logger,
	})
	require.NoError(t, err)

	opts := Options{Version: "test", Client: client, Logger: logger}
	if mutate != nil {
		mutate(&opts)
	}
	sc, err := NewServerContext(context.Background(), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}
