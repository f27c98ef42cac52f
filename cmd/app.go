package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/config"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/instrumentation"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/server"
)

// app bundles what every API-facing command needs.
type app struct {
	cfg      config.Config
	logger   *slog.Logger
	provider *instrumentation.Provider
	client   *pwndoc.Client
	sc       *server.ServerContext

	closers []func(context.Context) error
}

// loadConfig resolves the configuration from file, environment and flags,
// lowest to highest priority, and validates it.
func loadConfig(opts *globalOptions) (config.Config, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return cfg, err
	}
	if opts.url != "" {
		cfg.URL = opts.url
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.LogFormat = opts.logFormat
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newApp builds the logger, telemetry provider, PwnDoc client and
// server context. Nothing touches the network.
func newApp(ctx context.Context, opts *globalOptions, debug bool) (*app, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if debug {
		cfg.LogLevel = "debug"
	}

	logger, closeLog, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
	})
	if err != nil {
		return nil, err
	}
	rt := &app{cfg: cfg, logger: logger}
	rt.closers = append(rt.closers, func(context.Context) error { return closeLog() })

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	rt.provider = provider
	rt.closers = append(rt.closers, provider.Shutdown)

	clientOpts := pwndoc.OptionsFromConfig(cfg)
	clientOpts.Logger = logger
	clientOpts.Metrics = provider.Metrics()
	rt.client, err = pwndoc.NewClient(clientOpts)
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}

	rt.sc, err = server.NewServerContext(ctx, server.Options{
		Version:     version,
		Client:      rt.client,
		Logger:      logger,
		Metrics:     provider.Metrics(),
		AuditLogger: instrumentation.NewAuditLogger(logger, instrConfig.AuditLogging),
	})
	if err != nil {
		_ = rt.Close(ctx)
		return nil, err
	}
	rt.closers = append(rt.closers, func(context.Context) error { return rt.sc.Shutdown() })

	logger.Debug("configuration loaded",
		slog.String("url", cfg.BaseURL()),
		logging.AuthMethod(cfg.AuthMethod()),
		slog.Bool("instrumentation", provider.Enabled()))
	return rt, nil
}

// Close releases resources in reverse order of acquisition.
func (rt *app) Close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}
