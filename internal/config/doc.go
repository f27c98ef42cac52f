// Package config loads pwndoc-mcp settings.
//
// Sources are layered, lowest priority first: built-in defaults, a YAML or
// JSON config file, PWNDOC_* environment variables, then explicit overrides
// applied by the caller (CLI flags). Validate reports every problem at once.
package config
