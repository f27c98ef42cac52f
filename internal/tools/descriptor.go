package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// Tool categories, in tools/list order.
const (
	CategoryAudits          = "audits"
	CategoryFindings        = "findings"
	CategoryVulnerabilities = "vulnerabilities"
	CategoryClients         = "clients"
	CategoryCompanies       = "companies"
	CategoryUsers           = "users"
	CategoryTemplates       = "templates"
	CategoryLanguages       = "languages"
	CategorySettings        = "settings"
	CategoryImages          = "images"
	CategoryData            = "data"
	CategoryCollaboration   = "collaboration"
)

var categoryOrder = []string{
	CategoryAudits,
	CategoryFindings,
	CategoryVulnerabilities,
	CategoryClients,
	CategoryCompanies,
	CategoryUsers,
	CategoryTemplates,
	CategoryLanguages,
	CategorySettings,
	CategoryImages,
	CategoryData,
	CategoryCollaboration,
}

// Executor runs a single PwnDoc API call. path is relative to /api.
type Executor interface {
	Do(ctx context.Context, method, path string, body any) (json.RawMessage, error)
}

// Downloader fetches a non-JSON resource. Tools that need it fail when
// the Executor does not implement it.
type Downloader interface {
	Download(ctx context.Context, path string) (json.RawMessage, error)
}

// BodyFunc builds the request body from the tool arguments.
type BodyFunc func(tool string, args map[string]any) (any, error)

// RunFunc implements an aggregated tool on top of an Executor.
type RunFunc func(ctx context.Context, exec Executor, args map[string]any) (any, error)

// Descriptor describes one tool. Exactly one of Path or Run is set.
type Descriptor struct {
	Tool     mcp.Tool
	Category string

	Method string
	// Path is relative to /api and may contain {argument} placeholders.
	Path string
	// Body is nil for calls without a request body.
	Body BodyFunc
	// Defaults fill in optional arguments before resolution.
	Defaults map[string]any

	Run RunFunc
}

// Name returns the tool name.
func (d *Descriptor) Name() string {
	return d.Tool.Name
}

// Aggregated reports whether the tool spans more than one API call.
func (d *Descriptor) Aggregated() bool {
	return d.Run != nil
}

// Call is a resolved HTTP call.
type Call struct {
	Method string
	Path   string
	Body   any
}

// ErrUnknownTool is matched by errors for names missing from the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// ErrAggregatedTool is returned by Resolve for tools that span several calls.
var ErrAggregatedTool = errors.New("tool is not a single API call")

// UnknownToolError reports a tool name that is not in the catalog.
type UnknownToolError struct {
	Name string
}

func (e *UnknownToolError) Error() string {
	return "Unknown tool: " + e.Name
}

func (e *UnknownToolError) Is(target error) bool {
	return target == ErrUnknownTool
}

// ArgumentError reports a missing or malformed tool argument.
type ArgumentError struct {
	Tool     string
	Argument string
	Reason   string
}

func (e *ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments for %s: %s %s", e.Tool, e.Argument, e.Reason)
}
