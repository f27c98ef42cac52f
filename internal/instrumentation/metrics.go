package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	attrMethod = "method"
	attrRoute  = "route"
	attrStatus = "status"
	attrResult = "result"
	attrMode   = "mode"
	attrReason = "reason"
	attrTool   = "tool"
)

// Metrics records PwnDoc client and MCP tool metrics. The zero value is a
// valid no-op recorder.
type Metrics struct {
	apiRequestsTotal   metric.Int64Counter
	apiRequestDuration metric.Float64Histogram
	apiRetriesTotal    metric.Int64Counter

	authTotal         metric.Int64Counter
	tokenRefreshTotal metric.Int64Counter

	rateLimitWaitsTotal metric.Int64Counter
	rateLimitWaitTime   metric.Float64Histogram

	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram
}

// NewMetrics creates a new Metrics instance with all instruments registered on meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.apiRequestsTotal, err = meter.Int64Counter(
		"pwndoc_api_requests_total",
		metric.WithDescription("Total number of HTTP requests sent to the PwnDoc API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_api_requests_total counter: %w", err)
	}

	m.apiRequestDuration, err = meter.Float64Histogram(
		"pwndoc_api_request_duration_seconds",
		metric.WithDescription("PwnDoc API request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_api_request_duration_seconds histogram: %w", err)
	}

	m.apiRetriesTotal, err = meter.Int64Counter(
		"pwndoc_api_retries_total",
		metric.WithDescription("Total number of retried PwnDoc API requests"),
		metric.WithUnit("{retry}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_api_retries_total counter: %w", err)
	}

	m.authTotal, err = meter.Int64Counter(
		"pwndoc_auth_total",
		metric.WithDescription("Total number of PwnDoc login attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_auth_total counter: %w", err)
	}

	m.tokenRefreshTotal, err = meter.Int64Counter(
		"pwndoc_token_refresh_total",
		metric.WithDescription("Total number of PwnDoc token refresh attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_token_refresh_total counter: %w", err)
	}

	m.rateLimitWaitsTotal, err = meter.Int64Counter(
		"pwndoc_rate_limit_waits_total",
		metric.WithDescription("Number of requests delayed by the client-side rate limiter"),
		metric.WithUnit("{wait}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_rate_limit_waits_total counter: %w", err)
	}

	m.rateLimitWaitTime, err = meter.Float64Histogram(
		"pwndoc_rate_limit_wait_seconds",
		metric.WithDescription("Time spent waiting for a rate limiter slot"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.5, 1, 5, 15, 30, 60),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create pwndoc_rate_limit_wait_seconds histogram: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordAPIRequest records one HTTP exchange with the PwnDoc API.
// route should be a low-cardinality path (see RouteTemplate).
func (m *Metrics) RecordAPIRequest(ctx context.Context, method, route string, statusCode int, duration time.Duration) {
	if m == nil || m.apiRequestsTotal == nil || m.apiRequestDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrMethod, method),
		attribute.String(attrRoute, route),
		attribute.String(attrStatus, StatusClass(statusCode)),
	)
	m.apiRequestsTotal.Add(ctx, 1, attrs)
	m.apiRequestDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records a retried request. reason is one of the RetryReason constants.
func (m *Metrics) RecordRetry(ctx context.Context, reason string) {
	if m == nil || m.apiRetriesTotal == nil {
		return
	}
	m.apiRetriesTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrReason, reason)))
}

// RecordAuth records a login attempt.
func (m *Metrics) RecordAuth(ctx context.Context, mode, result string) {
	if m == nil || m.authTotal == nil {
		return
	}
	m.authTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrMode, mode),
		attribute.String(attrResult, result),
	))
}

// RecordTokenRefresh records a refresh attempt.
func (m *Metrics) RecordTokenRefresh(ctx context.Context, result string) {
	if m == nil || m.tokenRefreshTotal == nil {
		return
	}
	m.tokenRefreshTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrResult, result)))
}

// RecordRateLimitWait records time spent blocked on the client-side limiter.
func (m *Metrics) RecordRateLimitWait(ctx context.Context, wait time.Duration) {
	if m == nil || m.rateLimitWaitsTotal == nil || m.rateLimitWaitTime == nil {
		return
	}
	m.rateLimitWaitsTotal.Add(ctx, 1)
	m.rateLimitWaitTime.Record(ctx, wait.Seconds())
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	)
	m.toolInvocationsTotal.Add(ctx, 1, attrs)
	m.toolDuration.Record(ctx, duration.Seconds(), attrs)
}
