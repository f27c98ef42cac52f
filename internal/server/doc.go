// Package server exposes the PwnDoc tool catalog to MCP hosts.
//
// ServerContext owns the PwnDoc client, the tool catalog and the
// observability hooks. Its CallTool method is the single boundary where
// tool failures turn into results with isError set; no transport sees a
// raw Go error from a tool.
//
// Two transports share that boundary:
//   - StdioServer reads line-delimited JSON-RPC from stdin and writes one
//     reply per request to stdout. Notifications get no reply.
//   - HTTPServer serves the streamable HTTP (or legacy SSE) transport from
//     mark3labs/mcp-go, plus /healthz, /readyz and /healthz/detailed.
//
// MetricsServer serves Prometheus metrics on a separate listener.
package server
