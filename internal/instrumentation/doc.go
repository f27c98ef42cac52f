// Package instrumentation provides OpenTelemetry metrics, tracing and audit
// logging for the pwndoc-mcp server.
//
// # Metrics
//
// PwnDoc client:
//   - pwndoc_api_requests_total: requests by method, route and status class
//   - pwndoc_api_request_duration_seconds: request latency
//   - pwndoc_api_retries_total: retries by reason
//   - pwndoc_auth_total: logins by mode and result
//   - pwndoc_token_refresh_total: refresh attempts by result
//   - pwndoc_rate_limit_waits_total / pwndoc_rate_limit_wait_seconds: client-side throttling
//
// MCP tools:
//   - mcp_tool_invocations_total: invocations by tool and status
//   - mcp_tool_duration_seconds: tool latency
//
// # Configuration
//
// Instrumentation is disabled unless INSTRUMENTATION_ENABLED=true. Other variables:
//   - METRICS_EXPORTER: prometheus, otlp, stdout (default: prometheus)
//   - TRACING_EXPORTER: otlp, stdout, none (default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_INSECURE
//   - OTEL_TRACES_SAMPLER_ARG: sampling rate (default: 0.1)
//   - AUDIT_LOGGING_ENABLED, AUDIT_LOGGING_INCLUDE_ARGS
//
// The stdout exporters write to stderr. Stdout is reserved for the MCP
// stdio transport.
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordToolInvocation(ctx, "list_audits", instrumentation.StatusSuccess, time.Since(start))
package instrumentation
