package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/server"
)

const transportStdio = "stdio"

// serveOptions holds the serve command flags.
type serveOptions struct {
	debug          bool
	transport      string
	httpAddr       string
	stateless      bool
	metricsEnabled bool
	metricsAddr    string
}

func newServeCmd(global *globalOptions) *cobra.Command {
	opts := serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server",
		Long: `Start the Model Context Protocol (MCP) server exposing PwnDoc tools to
AI assistants.

Supports multiple transport types:
  - stdio: Line-delimited JSON-RPC on stdin/stdout (default)
  - streamable-http: Streamable HTTP transport at /mcp
  - sse: Legacy Server-Sent Events transport at /sse and /message

Logs are written to stderr (or PWNDOC_LOG_FILE); stdout carries only
protocol messages in stdio mode.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			loadMetricsEnvVars(cmd, &opts)
			return runServe(cmd.Context(), global, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().StringVar(&opts.transport, "transport", transportStdio, "Transport type: stdio, streamable-http or sse")
	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", server.DefaultHTTPAddr, "HTTP server address (for streamable-http and sse transports)")
	cmd.Flags().BoolVar(&opts.stateless, "stateless", false, "Disable MCP session tracking for the streamable-http transport")
	cmd.Flags().BoolVar(&opts.metricsEnabled, "metrics-enabled", true, "Enable the metrics server on a dedicated port (HTTP transports only). Can also use METRICS_ENABLED env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", server.DefaultMetricsAddr, "Metrics server address. Can also use METRICS_ADDR env var.")

	return cmd
}

// loadMetricsEnvVars applies METRICS_* variables to flags the user did not set.
func loadMetricsEnvVars(cmd *cobra.Command, opts *serveOptions) {
	if !cmd.Flags().Changed("metrics-enabled") {
		switch os.Getenv("METRICS_ENABLED") {
		case "true":
			opts.metricsEnabled = true
		case "false":
			opts.metricsEnabled = false
		}
	}
	if !cmd.Flags().Changed("metrics-addr") {
		if addr := os.Getenv("METRICS_ADDR"); addr != "" {
			opts.metricsAddr = addr
		}
	}
}

func runServe(ctx context.Context, global *globalOptions, opts serveOptions) error {
	switch opts.transport {
	case transportStdio, server.TransportStreamableHTTP, server.TransportSSE:
	default:
		return fmt.Errorf("unsupported transport type: %s (supported: stdio, streamable-http, sse)", opts.transport)
	}

	// Setup graceful shutdown
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	rt, err := newApp(ctx, global, opts.debug)
	if err != nil {
		return err
	}
	logger := logging.WithOperation(rt.logger, "serve")
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := rt.Close(shutdownCtx); err != nil {
			logger.Warn("error during shutdown", logging.Err(err))
		}
	}()

	logger.Info("starting pwndoc-mcp",
		slog.String("version", version),
		slog.String("transport", opts.transport),
		slog.String("url", rt.cfg.BaseURL()),
		logging.AuthMethod(rt.cfg.AuthMethod()),
		slog.Int("tools", rt.sc.Catalog().Len()))

	if opts.transport == transportStdio {
		return runStdioServer(ctx, rt)
	}

	if opts.metricsEnabled && rt.provider.PrometheusEnabled() {
		metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
			Addr:                    opts.metricsAddr,
			InstrumentationProvider: rt.provider,
			Logger:                  rt.logger,
		})
		if err != nil {
			return fmt.Errorf("failed to create metrics server: %w", err)
		}
		go func() {
			if err := metricsServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", logging.Err(err))
			}
		}()
		rt.closers = append(rt.closers, metricsServer.Shutdown)
	}

	return runHTTPServer(ctx, rt, opts)
}

func runStdioServer(ctx context.Context, rt *app) error {
	err := server.NewStdioServer(rt.sc, os.Stdin, os.Stdout).Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("server stopped with error: %w", err)
	}
	return nil
}

func runHTTPServer(ctx context.Context, rt *app, opts serveOptions) error {
	httpServer, err := server.NewHTTPServer(rt.sc, server.HTTPServerConfig{
		Transport: opts.transport,
		Addr:      opts.httpAddr,
		Stateless: opts.stateless,
	})
	if err != nil {
		return err
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverDone <- err
		}
	}()

	select {
	case <-ctx.Done():
		rt.logger.Info("shutdown signal received, stopping HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), server.DefaultShutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("error shutting down HTTP server: %w", err)
		}
	case err := <-serverDone:
		if err != nil {
			return fmt.Errorf("HTTP server stopped with error: %w", err)
		}
	}
	return nil
}
