package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
)

// HTTP transport types.
const (
	TransportSSE            = "sse"
	TransportStreamableHTTP = "streamable-http"
)

const (
	// DefaultHTTPAddr is the default listen address for HTTP transports.
	DefaultHTTPAddr = "127.0.0.1:8080"

	// DefaultEndpointPath is where the streamable HTTP transport is mounted.
	DefaultEndpointPath = "/mcp"
)

// NewMCPServer registers every catalog tool on a mark3labs MCP server.
// All handlers go through ServerContext.CallTool, the same path the stdio
// transport uses.
func NewMCPServer(sc *ServerContext) *mcpserver.MCPServer {
	s := mcpserver.NewMCPServer(sc.Name(), sc.Version(),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
	)
	for _, d := range sc.Catalog().Descriptors() {
		name := d.Name()
		s.AddTool(d.Tool, func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return sc.CallTool(ctx, name, request.GetArguments()), nil
		})
	}
	return s
}

// HTTPServerConfig configures an HTTPServer.
type HTTPServerConfig struct {
	// Transport is TransportStreamableHTTP or TransportSSE.
	Transport string
	Addr      string
	// Stateless disables MCP session tracking for streamable HTTP.
	Stateless bool
}

// HTTPServer serves the MCP tools over HTTP together with health probes.
type HTTPServer struct {
	sc         *ServerContext
	config     HTTPServerConfig
	mcpServer  *mcpserver.MCPServer
	health     *HealthChecker
	httpServer *http.Server
	logger     *slog.Logger
}

// NewHTTPServer builds an HTTP transport. Nothing listens until Start.
func NewHTTPServer(sc *ServerContext, config HTTPServerConfig) (*HTTPServer, error) {
	if config.Transport == "" {
		config.Transport = TransportStreamableHTTP
	}
	if config.Transport != TransportStreamableHTTP && config.Transport != TransportSSE {
		return nil, fmt.Errorf("unsupported server type: %s", config.Transport)
	}
	if config.Addr == "" {
		config.Addr = DefaultHTTPAddr
	}
	return &HTTPServer{
		sc:        sc,
		config:    config,
		mcpServer: NewMCPServer(sc),
		health:    NewHealthChecker(sc),
		logger:    logging.WithOperation(sc.Logger(), "http"),
	}, nil
}

// Health returns the server's health checker.
func (s *HTTPServer) Health() *HealthChecker {
	return s.health
}

// Handler returns the routed HTTP handler: the MCP endpoints plus
// /healthz, /readyz and /healthz/detailed.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	s.health.RegisterHealthEndpoints(mux)

	switch s.config.Transport {
	case TransportSSE:
		sseServer := mcpserver.NewSSEServer(s.mcpServer,
			mcpserver.WithSSEEndpoint("/sse"),
			mcpserver.WithMessageEndpoint("/message"),
		)
		mux.Handle("/sse", sseServer)
		mux.Handle("/message", sseServer)
	default:
		streamable := mcpserver.NewStreamableHTTPServer(s.mcpServer,
			mcpserver.WithEndpointPath(DefaultEndpointPath),
			mcpserver.WithStateLess(s.config.Stateless),
		)
		mux.Handle(DefaultEndpointPath, streamable)
	}
	return mux
}

// Start listens on the configured address and blocks until Shutdown.
func (s *HTTPServer) Start() error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.Addr, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln and blocks until Shutdown.
func (s *HTTPServer) Serve(ln net.Listener) error {
	// No WriteTimeout: SSE streams and slow tool calls stay open.
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	s.logger.Info("http server started",
		slog.String("addr", ln.Addr().String()),
		slog.String("transport", s.config.Transport))
	return s.httpServer.Serve(ln)
}

// Shutdown marks the server unready and drains connections.
func (s *HTTPServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
