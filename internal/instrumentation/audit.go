package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// ToolInvocation captures one MCP tool call for the audit trail.
type ToolInvocation struct {
	Tool      string
	RequestID string

	// Resolved PwnDoc call. Empty when the tool could not be resolved.
	Method string
	Path   string

	ArgumentNames []string

	StartTime time.Time
	Duration  time.Duration
	Success   bool
	Error     string

	TraceID string
}

// NewToolInvocation creates a new ToolInvocation with timing started.
// Call Complete when the tool finishes.
func NewToolInvocation(tool, requestID string) *ToolInvocation {
	return &ToolInvocation{
		Tool:      tool,
		RequestID: requestID,
		StartTime: time.Now(),
	}
}

// WithCall records the HTTP call the tool resolved to.
func (ti *ToolInvocation) WithCall(method, path string) *ToolInvocation {
	ti.Method = method
	ti.Path = path
	return ti
}

// WithArguments records the sorted argument names. Values are not kept.
func (ti *ToolInvocation) WithArguments(args map[string]any) *ToolInvocation {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	ti.ArgumentNames = names
	return ti
}

// WithSpanContext copies the trace id from the current span.
func (ti *ToolInvocation) WithSpanContext(ctx context.Context) *ToolInvocation {
	ti.TraceID = GetTraceID(ctx)
	return ti
}

// Complete marks the invocation as completed and calculates duration.
func (ti *ToolInvocation) Complete(err error) *ToolInvocation {
	ti.Duration = time.Since(ti.StartTime)
	ti.Success = err == nil
	if err != nil {
		ti.Error = err.Error()
	}
	return ti
}

// Status returns "success" or "error" based on the Success field.
func (ti *ToolInvocation) Status() string {
	if ti.Success {
		return StatusSuccess
	}
	return StatusError
}

// LogAttrs returns slog attributes for the invocation.
func (ti *ToolInvocation) LogAttrs(includeArgs bool) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("tool", ti.Tool),
		slog.Duration("duration", ti.Duration),
		slog.Bool("success", ti.Success),
	}
	if ti.RequestID != "" {
		attrs = append(attrs, slog.String("request_id", ti.RequestID))
	}
	if ti.Method != "" {
		attrs = append(attrs, slog.String("method", ti.Method), slog.String("path", ti.Path))
	}
	if includeArgs && len(ti.ArgumentNames) > 0 {
		attrs = append(attrs, slog.Any("arguments", ti.ArgumentNames))
	}
	if ti.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", ti.TraceID))
	}
	if ti.Error != "" {
		attrs = append(attrs, slog.String("error", ti.Error))
	}
	return attrs
}

// AuditLogger writes one structured record per tool invocation.
type AuditLogger struct {
	logger      *slog.Logger
	enabled     bool
	includeArgs bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:      logger,
		enabled:     config.Enabled,
		includeArgs: config.IncludeArguments,
	}
}

// LogToolInvocation logs ti at info level on success and warn level on failure.
func (al *AuditLogger) LogToolInvocation(ti *ToolInvocation) {
	if al == nil || !al.enabled {
		return
	}

	attrs := ti.LogAttrs(al.includeArgs)
	args := make([]any, len(attrs))
	for i, attr := range attrs {
		args[i] = attr
	}

	if ti.Success {
		al.logger.Info("tool_executed", args...)
	} else {
		al.logger.Warn("tool_failed", args...)
	}
}
