package mcp

import (
	"context"
	"fmt"
	"strings"
)

// ProtocolVersion is the MCP revision spoken by server and client
const ProtocolVersion = "2024-11-05"

// Tool represents an MCP tool definition
type Tool struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	InputSchema map[string]any `json:"inputSchema"`
}

// Required lists the required argument names declared in the schema
func (t Tool) Required() []string {
	switch req := t.InputSchema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// ToolCall represents a tool invocation request
type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// ToolResult represents the result of a tool call
type ToolResult struct {
	Content           []ContentBlock `json:"content"`
	IsError           bool           `json:"isError,omitempty"`
	StructuredContent map[string]any `json:"structuredContent,omitempty"`
}

// ContentBlock represents a content block in a tool result
type ContentBlock struct {
	Type string `json:"type"` // "text" or "image"
	Text string `json:"text,omitempty"`
}

// Handler executes tool calls. A returned error is a protocol-level fault;
// domain failures are reported as results with IsError set.
type Handler func(ctx context.Context, call ToolCall) (ToolResult, error)

// TextResult is a successful single-block result
func TextResult(text string) ToolResult {
	return ToolResult{Content: []ContentBlock{{Type: "text", Text: text}}}
}

// ErrorResult is a failed result. The text block reads "Error: {message}" and
// the code and details travel in structuredContent.
func ErrorResult(code, message string, details []string) ToolResult {
	structured := map[string]any{"code": code}
	if len(details) > 0 {
		structured["details"] = details
	}
	return ToolResult{
		Content:           []ContentBlock{{Type: "text", Text: "Error: " + message}},
		IsError:           true,
		StructuredContent: structured,
	}
}

// Text joins all text blocks of the result
func (r ToolResult) Text() string {
	parts := make([]string, 0, len(r.Content))
	for _, block := range r.Content {
		if block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// Err returns nil for a successful result and a *ToolError otherwise
func (r ToolResult) Err(tool string) error {
	if !r.IsError {
		return nil
	}
	te := &ToolError{Tool: tool, Message: strings.TrimPrefix(r.Text(), "Error: ")}
	if r.StructuredContent != nil {
		te.Code, _ = r.StructuredContent["code"].(string)
		switch details := r.StructuredContent["details"].(type) {
		case []string:
			te.Details = details
		case []any:
			for _, d := range details {
				if s, ok := d.(string); ok {
					te.Details = append(te.Details, s)
				}
			}
		}
	}
	return te
}

// ToolError is a tool that ran and reported failure
type ToolError struct {
	Tool    string
	Code    string
	Message string
	Details []string
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Tool, e.Message)
}

// RPCError is a JSON-RPC error object
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// JSON-RPC error codes
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeServerError    = -32000
)
