package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/instrumentation"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/tools"
)

// Options configures a ServerContext.
type Options struct {
	// Name and Version are reported as serverInfo during initialize.
	Name    string
	Version string

	Client  *pwndoc.Client
	Catalog *tools.Catalog

	Logger      *slog.Logger
	Metrics     *instrumentation.Metrics
	AuditLogger *instrumentation.AuditLogger
}

// ServerContext holds the dependencies shared by every transport and is
// the single place where tool calls are executed.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	name    string
	version string

	client      *pwndoc.Client
	catalog     *tools.Catalog
	logger      *slog.Logger
	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	newRequestID func() string

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates a new server context
func NewServerContext(ctx context.Context, opts Options) (*ServerContext, error) {
	if opts.Client == nil {
		return nil, errors.New("pwndoc client is required")
	}
	if opts.Catalog == nil {
		opts.Catalog = tools.NewCatalog()
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Name == "" {
		opts.Name = "pwndoc-mcp"
	}

	shutdownCtx, cancel := context.WithCancel(ctx)
	return &ServerContext{
		ctx:          shutdownCtx,
		cancel:       cancel,
		name:         opts.Name,
		version:      opts.Version,
		client:       opts.Client,
		catalog:      opts.Catalog,
		logger:       logging.WithOperation(opts.Logger, "server"),
		metrics:      opts.Metrics,
		auditLogger:  opts.AuditLogger,
		newRequestID: uuid.NewString,
	}, nil
}

// Context returns the server context
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Name returns the server name reported to clients.
func (sc *ServerContext) Name() string { return sc.name }

// Version returns the server version reported to clients.
func (sc *ServerContext) Version() string { return sc.version }

// Client returns the PwnDoc API client.
func (sc *ServerContext) Client() *pwndoc.Client { return sc.client }

// Catalog returns the tool catalog.
func (sc *ServerContext) Catalog() *tools.Catalog { return sc.catalog }

// Logger returns the server logger.
func (sc *ServerContext) Logger() *slog.Logger { return sc.logger }

// Metrics returns the metrics recorder (may be nil)
func (sc *ServerContext) Metrics() *instrumentation.Metrics { return sc.metrics }

// AuditLogger returns the audit logger (may be nil)
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger { return sc.auditLogger }

// CallTool runs one tool and converts the outcome into an MCP result.
// It never returns a Go error: every failure, including a panic inside
// the tool, becomes a result with IsError set.
func (sc *ServerContext) CallTool(ctx context.Context, name string, args map[string]any) *mcp.CallToolResult {
	requestID := sc.newRequestID()
	ctx, span := instrumentation.StartToolSpan(ctx, name,
		attribute.String(instrumentation.SpanAttrRequestID, requestID))
	defer span.End()

	invocation := instrumentation.NewToolInvocation(name, requestID).
		WithArguments(args).
		WithSpanContext(ctx)
	logger := logging.WithTool(sc.logger, name).With(logging.RequestID(requestID))
	logger.Debug("tool call started")

	payload, err := sc.invoke(ctx, name, args, invocation)

	invocation.Complete(err)
	sc.metrics.RecordToolInvocation(ctx, name, invocation.Status(), invocation.Duration)
	sc.auditLogger.LogToolInvocation(invocation)

	if err != nil {
		instrumentation.SetSpanError(span, err)
		logger.Warn("tool call failed", logging.Duration(invocation.Duration), logging.Err(err))
		return ErrorResult(err)
	}
	instrumentation.SetSpanSuccess(span)
	logger.Debug("tool call completed", logging.Duration(invocation.Duration))
	return SuccessResult(payload)
}

func (sc *ServerContext) invoke(ctx context.Context, name string, args map[string]any, inv *instrumentation.ToolInvocation) (payload json.RawMessage, err error) {
	defer func() {
		if r := recover(); r != nil {
			sc.logger.Error("panic in tool call", logging.Tool(name), slog.Any("panic", r))
			err = &internalError{cause: fmt.Errorf("panic: %v", r)}
		}
	}()

	d, ok := sc.catalog.Lookup(name)
	if !ok {
		return nil, &tools.UnknownToolError{Name: name}
	}
	if d.Aggregated() {
		return sc.catalog.Invoke(ctx, sc.client, name, args)
	}

	call, err := sc.catalog.Resolve(name, args)
	if err != nil {
		return nil, err
	}
	inv.WithCall(call.Method, call.Path)
	return sc.client.Do(ctx, call.Method, call.Path, call.Body)
}

// IsShutdown returns whether the server has been shutdown
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown shuts down the server context
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil
	}

	sc.shutdown = true
	sc.cancel()
	return nil
}
