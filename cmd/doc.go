// Package cmd implements the command-line interface for pwndoc-mcp.
//
// This package provides the following commands:
//   - serve: Start the MCP server (stdio, streamable-http or sse)
//   - test: Authenticate and check that the PwnDoc API answers
//   - query: Run a single tool and print its result
//   - tools: List the available tools
//   - generate-docs: Generate markdown documentation for all MCP tools
//   - config: Show, locate or initialize the configuration file
//   - version: Display version information
//
// The serve command is the default command when no subcommand is specified.
package cmd
