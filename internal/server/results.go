package server

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/pwndoc"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/tools"
)

// Error kinds reported in tool error payloads.
const (
	ErrorKindAuthentication = "authentication"
	ErrorKindNotFound       = "not_found"
	ErrorKindRateLimited    = "rate_limited"
	ErrorKindTransport      = "transport"
	ErrorKindSerialization  = "serialization"
	ErrorKindAPI            = "api_error"
	ErrorKindUnknownTool    = "unknown_tool"
	ErrorKindArguments      = "invalid_arguments"
	ErrorKindInternal       = "internal"
)

// ToolError is the JSON object carried by a failed tool result.
type ToolError struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status,omitempty"`
}

type internalError struct {
	cause error
}

func (e *internalError) Error() string { return "internal error: " + e.cause.Error() }

func (e *internalError) Unwrap() error { return e.cause }

// SuccessResult wraps a JSON payload as text, indented with two spaces.
func SuccessResult(payload json.RawMessage) *mcp.CallToolResult {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		return mcp.NewToolResultText(string(payload))
	}
	return mcp.NewToolResultText(buf.String())
}

// ErrorResult converts err into an isError result whose text is a
// serialized ToolError.
func ErrorResult(err error) *mcp.CallToolResult {
	text, mErr := json.MarshalIndent(Classify(err), "", "  ")
	if mErr != nil {
		text = []byte(`{"error": "unserializable error"}`)
	}
	return mcp.NewToolResultError(string(text))
}

// Classify maps an error onto the payload reported to the host.
func Classify(err error) ToolError {
	te := ToolError{Error: err.Error()}

	var (
		authErr    *pwndoc.AuthenticationError
		notFound   *pwndoc.NotFoundError
		rateErr    *pwndoc.RateLimitError
		transport  *pwndoc.TransportError
		serialErr  *pwndoc.SerializationError
		apiErr     *pwndoc.APIError
		unknown    *tools.UnknownToolError
		argErr     *tools.ArgumentError
		internalEr *internalError
	)
	switch {
	case errors.As(err, &unknown):
		te.Kind = ErrorKindUnknownTool
	case errors.As(err, &argErr):
		te.Kind = ErrorKindArguments
	case errors.As(err, &authErr):
		te.Kind = ErrorKindAuthentication
		te.Status = authErr.Status
	case errors.As(err, &notFound):
		te.Kind = ErrorKindNotFound
		te.Status = 404
	case errors.As(err, &rateErr):
		te.Kind = ErrorKindRateLimited
		te.Status = 429
	case errors.As(err, &apiErr):
		te.Kind = ErrorKindAPI
		te.Status = apiErr.Status
	case errors.As(err, &serialErr):
		te.Kind = ErrorKindSerialization
	case errors.As(err, &transport):
		te.Kind = ErrorKindTransport
	case errors.As(err, &internalEr):
		te.Kind = ErrorKindInternal
	}
	return te
}
