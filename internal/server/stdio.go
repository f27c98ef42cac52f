package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/pwndoc-mcp/pwndoc-mcp/internal/logging"
	"github.com/pwndoc-mcp/pwndoc-mcp/internal/server/jsonrpc"
)

// DefaultProtocolVersion is answered when the client asks for a protocol
// version this server does not know.
const DefaultProtocolVersion = "2024-11-05"

// maxLineSize bounds a single inbound message.
const maxLineSize = 32 << 20

// MCP methods handled by the stdio transport.
const (
	MethodInitialize = "initialize"
	MethodPing       = "ping"
	MethodToolsList  = "tools/list"
	MethodToolsCall  = "tools/call"

	NotificationInitialized = "notifications/initialized"
)

// StdioServer speaks line-delimited JSON-RPC on a reader/writer pair,
// normally stdin and stdout. Messages are handled one at a time, in order.
type StdioServer struct {
	sc     *ServerContext
	in     io.Reader
	out    *bufio.Writer
	logger *slog.Logger

	maxLineSize int

	initialized bool
}

// NewStdioServer creates a stdio transport for sc.
func NewStdioServer(sc *ServerContext, in io.Reader, out io.Writer) *StdioServer {
	return &StdioServer{
		sc:     sc,
		in:     in,
		out:    bufio.NewWriter(out),
		logger: logging.WithOperation(sc.Logger(), "stdio"),

		maxLineSize: maxLineSize,
	}
}

// Serve processes messages until the input ends or ctx is cancelled. It
// returns nil on end of input.
func (s *StdioServer) Serve(ctx context.Context) error {
	lines := make(chan []byte)
	readErr := make(chan error, 1)
	// After cancellation the reader stays blocked on the input until it
	// yields a line or closes. The process exits right after, so it is not
	// joined.
	go func() {
		readErr <- s.read(ctx, lines)
		close(lines)
	}()

	s.logger.Info("stdio server started", slog.Int("tools", s.sc.Catalog().Len()))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				if err != nil {
					return fmt.Errorf("reading input: %w", err)
				}
				s.logger.Info("input closed, stopping")
				return nil
			}
			if err := s.handleLine(ctx, line); err != nil {
				return err
			}
		}
	}
}

func (s *StdioServer) read(ctx context.Context, lines chan<- []byte) error {
	r := bufio.NewReaderSize(s.in, 64*1024)
	for {
		line, err := s.readLine(r)
		if len(line) > 0 {
			select {
			case lines <- line:
			case <-ctx.Done():
				return nil
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

// readLine returns the next trimmed line. A line longer than maxLineSize is
// consumed up to its newline, logged and returned as nil.
func (s *StdioServer) readLine(r *bufio.Reader) ([]byte, error) {
	var buf []byte
	size := 0
	for {
		chunk, err := r.ReadSlice('\n')
		size += len(chunk)
		if size <= s.maxLineSize {
			buf = append(buf, chunk...)
		} else {
			buf = nil
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if size > s.maxLineSize {
			s.logger.Warn("dropping oversized message", slog.Int("bytes", size), slog.Int("limit", s.maxLineSize))
			return nil, err
		}
		return bytes.TrimSpace(buf), err
	}
}

// handleLine processes one message. Only write failures are returned.
func (s *StdioServer) handleLine(ctx context.Context, line []byte) error {
	req, err := jsonrpc.Parse(line)
	if err != nil {
		var perr *jsonrpc.ParseError
		if errors.As(err, &perr) {
			s.logger.Warn("rejecting malformed message", logging.Err(err))
			prefix := "Parse error: "
			if perr.Code == jsonrpc.CodeInvalidRequest {
				prefix = "Invalid Request: "
			}
			return s.write(jsonrpc.NewError(perr.ID, perr.Code, prefix+perr.Error()))
		}
		s.logger.Warn("dropping malformed message without id", logging.Err(err))
		return nil
	}

	if req.IsNotification() {
		s.handleNotification(req)
		return nil
	}
	return s.write(s.dispatch(ctx, req))
}

// Initialized reports whether the client has sent notifications/initialized.
// Requests are served either way.
func (s *StdioServer) Initialized() bool {
	return s.initialized
}

func (s *StdioServer) handleNotification(req *jsonrpc.Request) {
	if req.Method == NotificationInitialized {
		s.initialized = true
	}
	s.logger.Debug("notification received", logging.Method(req.Method))
}

func (s *StdioServer) dispatch(ctx context.Context, req *jsonrpc.Request) (resp *jsonrpc.Response) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling request", logging.Method(req.Method), slog.Any("panic", r))
			resp = jsonrpc.NewError(req.ID, jsonrpc.CodeInternalError, fmt.Sprintf("Internal error: %v", r))
		}
	}()

	switch req.Method {
	case MethodInitialize:
		return jsonrpc.NewResult(req.ID, s.initialize(req.Params))
	case MethodPing:
		return jsonrpc.NewResult(req.ID, nil)
	case MethodToolsList:
		return jsonrpc.NewResult(req.ID, toolsListResult{Tools: s.sc.Catalog().Tools()})
	case MethodToolsCall:
		params, err := decodeCallParams(req.Params)
		if err != nil {
			return jsonrpc.NewError(req.ID, jsonrpc.CodeInvalidParams, "Invalid params: "+err.Error())
		}
		return jsonrpc.NewResult(req.ID, s.sc.CallTool(ctx, params.Name, params.Arguments))
	default:
		return jsonrpc.NewError(req.ID, jsonrpc.CodeMethodNotFound, "Method not found: "+req.Method)
	}
}

type initializeParams struct {
	ProtocolVersion string             `json:"protocolVersion"`
	ClientInfo      mcp.Implementation `json:"clientInfo"`
}

type initializeResult struct {
	ProtocolVersion string             `json:"protocolVersion"`
	Capabilities    serverCapabilities `json:"capabilities"`
	ServerInfo      mcp.Implementation `json:"serverInfo"`
}

type serverCapabilities struct {
	Tools struct{} `json:"tools"`
}

type toolsListResult struct {
	Tools []mcp.Tool `json:"tools"`
}

func (s *StdioServer) initialize(raw json.RawMessage) initializeResult {
	var params initializeParams
	if len(raw) > 0 {
		// Malformed initialize params only lose version negotiation.
		_ = json.Unmarshal(raw, &params)
	}

	version := DefaultProtocolVersion
	if slices.Contains(mcp.ValidProtocolVersions, params.ProtocolVersion) {
		version = params.ProtocolVersion
	}
	s.logger.Info("client initialized",
		slog.String("client", params.ClientInfo.Name),
		slog.String("client_version", params.ClientInfo.Version),
		slog.String("protocol_version", version))

	return initializeResult{
		ProtocolVersion: version,
		ServerInfo:      mcp.Implementation{Name: s.sc.Name(), Version: s.sc.Version()},
	}
}

type callParams struct {
	Name      string
	Arguments map[string]any
}

func decodeCallParams(raw json.RawMessage) (callParams, error) {
	var wire struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return callParams{}, errors.New("missing params")
	}
	if err := json.Unmarshal(raw, &wire); err != nil {
		return callParams{}, err
	}
	if wire.Name == "" {
		return callParams{}, errors.New("missing tool name")
	}

	params := callParams{Name: wire.Name, Arguments: map[string]any{}}
	if args := bytes.TrimSpace(wire.Arguments); len(args) > 0 && !bytes.Equal(args, []byte("null")) {
		if err := json.Unmarshal(args, &params.Arguments); err != nil {
			return callParams{}, errors.New("arguments must be an object")
		}
	}
	return params, nil
}

// write sends one reply on its own line and flushes immediately.
func (s *StdioServer) write(resp *jsonrpc.Response) error {
	enc := json.NewEncoder(s.out)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(resp); err != nil {
		return fmt.Errorf("writing response: %w", err)
	}
	if err := s.out.Flush(); err != nil {
		return fmt.Errorf("flushing response: %w", err)
	}
	return nil
}
