package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/instrumentation"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/tools"
)

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "content is %T", res.Content[0])
	return text.Text
}

func decodeToolError(t *testing.T, res *mcp.CallToolResult) ToolError {
	t.Helper()
	require.True(t, res.IsError)
	var te ToolError
	require.NoError(t, json.Unmarshal([]byte(resultText(t, res)), &te))
	return te
}

func TestNewServerContext_RequiresClient(t *testing.T) {
	_, err := NewServerContext(context.Background(), Options{})
	assert.Error(t, err)
}

func TestCallTool_Success(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/audits/a1", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"status":"success","datas":{"_id":"a1","name":"Web"}}`)
	})
	sc := newTestServerContext(t, mux, nil)

	res := sc.CallTool(context.Background(), "get_audit", map[string]any{"audit_id": "a1"})
	assert.False(t, res.IsError)
	text := resultText(t, res)
	assert.JSONEq(t, `{"status":"success","datas":{"_id":"a1","name":"Web"}}`, text)
	assert.Contains(t, text, "\n  \"datas\"", "payload is indented")
}

func TestCallTool_Errors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/audits/missing", func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"datas":"Audit not found"}`, http.StatusNotFound)
	})
	mux.HandleFunc("GET /api/clients", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"datas":"boom"}`)
	})
	mux.HandleFunc("GET /api/users", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	sc := newTestServerContext(t, mux, nil)

	tests := []struct {
		name       string
		tool       string
		args       map[string]any
		wantKind   string
		wantStatus int
		contains   string
	}{
		{
			name:     "unknown tool",
			tool:     "no_such_tool",
			wantKind: ErrorKindUnknownTool,
			contains: "Unknown tool: no_such_tool",
		},
		{
			name:     "missing argument",
			tool:     "get_audit",
			args:     map[string]any{},
			wantKind: ErrorKindArguments,
			contains: "audit_id",
		},
		{
			name:       "not found",
			tool:       "get_audit",
			args:       map[string]any{"audit_id": "missing"},
			wantKind:   ErrorKindNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "api error",
			tool:       "list_clients",
			wantKind:   ErrorKindAPI,
			wantStatus: http.StatusInternalServerError,
			contains:   "boom",
		},
		{
			name:       "static token rejected",
			tool:       "list_users",
			wantKind:   ErrorKindAuthentication,
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := decodeToolError(t, sc.CallTool(context.Background(), tt.tool, tt.args))
			assert.Equal(t, tt.wantKind, te.Kind)
			assert.Equal(t, tt.wantStatus, te.Status)
			if tt.contains != "" {
				assert.Contains(t, te.Error, tt.contains)
			}
		})
	}
}

type panickingExecutor struct{}

func (panickingExecutor) Do(context.Context, string, string, any) (json.RawMessage, error) {
	panic("boom")
}

func TestCallTool_RecoversPanics(t *testing.T) {
	catalog, err := tools.NewCatalogFrom([]*tools.Descriptor{{
		Tool:     mcp.NewTool("explode"),
		Category: tools.CategoryData,
		Run: func(ctx context.Context, exec tools.Executor, _ map[string]any) (any, error) {
			return panickingExecutor{}.Do(ctx, "GET", "/", nil)
		},
	}})
	require.NoError(t, err)

	sc := newTestServerContext(t, http.NewServeMux(), func(o *Options) { o.Catalog = catalog })
	te := decodeToolError(t, sc.CallTool(context.Background(), "explode", nil))
	assert.Equal(t, ErrorKindInternal, te.Kind)
	assert.Contains(t, te.Error, "boom")
}

func TestCallTool_Audit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/audits", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"datas":[]}`)
	})

	var buf bytes.Buffer
	audit := instrumentation.NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)),
		instrumentation.AuditLoggingConfig{Enabled: true})
	sc := newTestServerContext(t, mux, func(o *Options) { o.AuditLogger = audit })
	sc.newRequestID = func() string { return "req-42" }

	res := sc.CallTool(context.Background(), "list_audits", nil)
	require.False(t, res.IsError)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	assert.Equal(t, "tool_executed", record["msg"])
	assert.Equal(t, "list_audits", record["tool"])
	assert.Equal(t, "req-42", record["request_id"])
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind string
	}{
		{"rate limited", &pwndoc.RateLimitError{}, ErrorKindRateLimited},
		{"transport", &pwndoc.TransportError{Err: errors.New("refused")}, ErrorKindTransport},
		{"serialization", &pwndoc.SerializationError{Err: errors.New("bad json")}, ErrorKindSerialization},
		{"wrapped auth", errors.Join(errors.New("ctx"), &pwndoc.AuthenticationError{Err: errors.New("x")}), ErrorKindAuthentication},
		{"plain", errors.New("other"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			te := Classify(tt.err)
			assert.Equal(t, tt.kind, te.Kind)
			assert.Equal(t, tt.err.Error(), te.Error)
		})
	}
}

func TestSuccessResult_NonJSON(t *testing.T) {
	res := SuccessResult(json.RawMessage("plain text"))
	assert.False(t, res.IsError)
	assert.Equal(t, "plain text", resultText(t, res))
}

func TestServerContext_Shutdown(t *testing.T) {
	sc := newTestServerContext(t, http.NewServeMux(), nil)
	assert.False(t, sc.IsShutdown())
	require.NoError(t, sc.Shutdown())
	require.NoError(t, sc.Shutdown())
	assert.True(t, sc.IsShutdown())
	assert.Error(t, sc.Context().Err())
}
