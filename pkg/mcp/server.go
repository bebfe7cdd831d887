package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// Server holds the registered tools and answers MCP JSON-RPC messages
type Server struct {
	name    string
	version string

	mu    sync.RWMutex
	tools []Tool
}

// NewServer creates a server that reports the given name and version
func NewServer(name, version string) *Server {
	return &Server{name: name, version: version}
}

// RegisterTool adds a tool to the tools/list answer
func (s *Server) RegisterTool(tool Tool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tools = append(s.tools, tool)
}

// Tools returns a copy of the registered tools
func (s *Server) Tools() []Tool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Tool(nil), s.tools...)
}

// HandleMessage answers one JSON-RPC message. It returns nil for
// notifications, which get no reply.
func (s *Server) HandleMessage(ctx context.Context, handler Handler, raw []byte) []byte {
	var req request
	if err := json.Unmarshal(raw, &req); err != nil {
		return encode(response{ID: json.RawMessage("null"), Error: &RPCError{Code: CodeParseError, Message: err.Error()}})
	}
	if len(req.ID) == 0 {
		return nil
	}

	resp := response{ID: req.ID}
	switch req.Method {
	case "initialize":
		resp.Result = map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]any{
				"tools": map[string]any{},
			},
			"serverInfo": map[string]any{
				"name":    s.name,
				"version": s.version,
			},
		}
	case "ping":
		resp.Result = map[string]any{}
	case "tools/list":
		resp.Result = map[string]any{"tools": s.Tools()}
	case "tools/call":
		var call ToolCall
		if err := json.Unmarshal(req.Params, &call); err != nil || call.Name == "" {
			resp.Error = &RPCError{Code: CodeInvalidParams, Message: "Invalid params"}
			break
		}
		result, err := handler(ctx, call)
		if err != nil {
			resp.Error = &RPCError{Code: CodeServerError, Message: err.Error()}
			break
		}
		resp.Result = result
	default:
		resp.Error = &RPCError{Code: CodeMethodNotFound, Message: fmt.Sprintf("Method not found: %s", req.Method)}
	}
	return encode(resp)
}

func encode(resp response) []byte {
	resp.JSONRPC = "2.0"
	out, err := json.Marshal(resp)
	if err != nil {
		out, _ = json.Marshal(response{
			JSONRPC: "2.0",
			ID:      resp.ID,
			Error:   &RPCError{Code: CodeServerError, Message: err.Error()},
		})
	}
	return out
}

// Start serves line-delimited JSON-RPC on stdin/stdout until stdin closes
func (s *Server) Start(ctx context.Context, handler Handler) error {
	return s.Serve(ctx, os.Stdin, os.Stdout, handler)
}

// Serve reads one JSON-RPC message per line from r and writes replies to w.
// Messages are handled in order.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer, handler Handler) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		out := s.HandleMessage(ctx, handler, line)
		if out == nil {
			continue
		}
		if _, err := w.Write(append(out, '\n')); err != nil {
			return fmt.Errorf("writing response: %w", err)
		}
	}
	return scanner.Err()
}
