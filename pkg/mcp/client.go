package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
)

// Transport carries JSON-RPC messages to an MCP server
type Transport interface {
	// Send delivers a request and returns the matching response
	Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error)
	// Notify delivers a message that expects no response
	Notify(ctx context.Context, msg json.RawMessage) error
	Close() error
}

// ServerInfo is what the server reported during initialize
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// InitializeResult is the initialize answer
type InitializeResult struct {
	ProtocolVersion string     `json:"protocolVersion"`
	ServerInfo      ServerInfo `json:"serverInfo"`
}

// Client talks to an MCP server over a Transport
type Client struct {
	transport Transport
	nextID    atomic.Int64
}

// NewClient creates a client on top of t
func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

type rpcCall struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int64  `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  *RPCError       `json:"error,omitempty"`
}

func (c *Client) call(ctx context.Context, method string, params, out any) error {
	msg, err := json.Marshal(rpcCall{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("mcp: encode %s: %w", method, err)
	}

	raw, err := c.transport.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("mcp: %s: %w", method, err)
	}

	var reply rpcReply
	if err := json.Unmarshal(raw, &reply); err != nil {
		return fmt.Errorf("mcp: %s: malformed response: %w", method, err)
	}
	if reply.Error != nil {
		return reply.Error
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(reply.Result, out); err != nil {
		return fmt.Errorf("mcp: %s: malformed result: %w", method, err)
	}
	return nil
}

// Initialize performs the MCP handshake
func (c *Client) Initialize(ctx context.Context, clientName, clientVersion string) (*InitializeResult, error) {
	params := map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": clientName, "version": clientVersion},
	}
	var result InitializeResult
	if err := c.call(ctx, "initialize", params, &result); err != nil {
		return nil, err
	}

	note, _ := json.Marshal(rpcCall{JSONRPC: "2.0", Method: "notifications/initialized"})
	if err := c.transport.Notify(ctx, note); err != nil {
		return nil, fmt.Errorf("mcp: initialized notification: %w", err)
	}
	return &result, nil
}

// ListTools fetches the server's tool catalog
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result struct {
		Tools []Tool `json:"tools"`
	}
	if err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool and returns its text. A tool that reports failure
// yields a *ToolError; anything else that goes wrong is a transport error.
func (c *Client) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	var result ToolResult
	if err := c.call(ctx, "tools/call", ToolCall{Name: name, Arguments: args}, &result); err != nil {
		return "", err
	}
	if err := result.Err(name); err != nil {
		return "", err
	}
	return result.Text(), nil
}

// Close shuts the transport down
func (c *Client) Close() error {
	return c.transport.Close()
}
