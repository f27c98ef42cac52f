// Package logging provides structured logging utilities for pwndoc-mcp.
//
// All output goes to stderr or a log file. Stdout belongs to the MCP stdio
// transport and must never receive log lines.
//
// # Usage Patterns
//
// Build the process logger once at startup:
//
//	logger, closeFn, err := logging.New(logging.Options{Level: "debug"})
//
// Attach request context with the attribute helpers:
//
//	logger.Info("api request",
//	    logging.Method(http.MethodGet),
//	    logging.Path("/audits"),
//	    logging.Status(logging.StatusSuccess))
//
// # Security Considerations
//
// Tokens, passwords and refresh cookies are never logged directly. Use
// SanitizeToken when a credential has to be mentioned.
package logging
