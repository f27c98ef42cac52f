// Package jsonrpc implements the JSON-RPC 2.0 framing used by the stdio
// MCP transport: one message per line, requests carry an id and
// notifications do not.
package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
)

// Version is the only protocol version accepted and emitted.
const Version = mcp.JSONRPC_VERSION

// Standard error codes.
const (
	CodeParseError     = mcp.PARSE_ERROR
	CodeInvalidRequest = mcp.INVALID_REQUEST
	CodeMethodNotFound = mcp.METHOD_NOT_FOUND
	CodeInvalidParams  = mcp.INVALID_PARAMS
	CodeInternalError  = mcp.INTERNAL_ERROR
)

var null = json.RawMessage("null")

// Request is an incoming message. ID is kept raw so that string and
// numeric ids round-trip unchanged.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// NotificationPrefix marks methods that never get a reply.
const NotificationPrefix = "notifications/"

// IsNotification reports whether no reply may be sent: the id is absent
// or JSON null, or the method is a notifications/ method.
func (r *Request) IsNotification() bool {
	return !hasID(r.ID) || strings.HasPrefix(r.Method, NotificationPrefix)
}

// Response is an outgoing reply. Exactly one of Result or Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error is a JSON-RPC error object.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

// NewResult builds a success reply. A nil result is sent as {}.
func NewResult(id json.RawMessage, result any) *Response {
	if result == nil {
		result = struct{}{}
	}
	return &Response{JSONRPC: Version, ID: normalizeID(id), Result: result}
}

// NewError builds an error reply.
func NewError(id json.RawMessage, code int, message string) *Response {
	return &Response{JSONRPC: Version, ID: normalizeID(id), Error: &Error{Code: code, Message: message}}
}

// ErrNoID is returned by Parse for malformed input whose id could not be
// recovered. Such lines cannot be answered.
var ErrNoID = errors.New("malformed message without recoverable id")

// ParseError describes input that is not a valid request but whose id was
// recovered, so an error reply can be sent.
type ParseError struct {
	ID   json.RawMessage
	Code int
	Err  error
}

func (e *ParseError) Error() string {
	return e.Err.Error()
}

func (e *ParseError) Unwrap() error { return e.Err }

// Parse decodes one line. On failure it returns a *ParseError carrying
// the recovered id, or an error wrapping ErrNoID.
func Parse(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		if id, ok := recoverID(line); ok {
			code := CodeParseError
			if json.Valid(line) {
				code = CodeInvalidRequest
			}
			return nil, &ParseError{ID: id, Code: code, Err: err}
		}
		return nil, errors.Join(ErrNoID, err)
	}

	if req.Method == "" {
		if !hasID(req.ID) {
			return nil, errors.Join(ErrNoID, errors.New("missing method"))
		}
		return nil, &ParseError{ID: req.ID, Code: CodeInvalidRequest, Err: errors.New("missing method")}
	}
	if req.JSONRPC != "" && req.JSONRPC != Version {
		if !hasID(req.ID) {
			return nil, errors.Join(ErrNoID, errors.New("unsupported jsonrpc version"))
		}
		return nil, &ParseError{ID: req.ID, Code: CodeInvalidRequest, Err: errors.New("unsupported jsonrpc version " + req.JSONRPC)}
	}
	return &req, nil
}

// recoverID makes a lenient second pass for the id: first as an object
// with an id member whose other members may be malformed, then by
// scanning the top-level object token by token.
func recoverID(line []byte) (json.RawMessage, bool) {
	var partial struct {
		ID json.RawMessage `json:"id"`
	}
	if json.Unmarshal(line, &partial) == nil && hasID(partial.ID) {
		return partial.ID, true
	}

	dec := json.NewDecoder(bytes.NewReader(line))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil, false
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, _ := keyTok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, false
		}
		if key == "id" && validID(value) {
			return value, true
		}
	}
	return nil, false
}

func hasID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, null)
}

// validID accepts the id types JSON-RPC allows: string or number.
func validID(id json.RawMessage) bool {
	trimmed := bytes.TrimSpace(id)
	if len(trimmed) == 0 {
		return false
	}
	switch c := trimmed[0]; {
	case c == '"':
		return true
	case c == '-' || (c >= '0' && c <= '9'):
		return true
	}
	return false
}

func normalizeID(id json.RawMessage) json.RawMessage {
	if len(bytes.TrimSpace(id)) == 0 {
		return null
	}
	return id
}
