package handlers

import (
	"context"
	"fmt"

	"github.com/providentiaww/jira-assistant-mcp/cmd/mcp-server/auth"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

// Toolset routes tool calls to the handler that owns them
type Toolset struct {
	jira       *JiraHandler
	management *ManagementHandler
}

// NewToolset wires the Jira tools and the management tools together. A nil
// validator checks credentials against the live site.
func NewToolset(callService ServiceCaller, jira config.JiraConfig, validator CredentialValidator) *Toolset {
	t := &Toolset{jira: NewJiraHandler(callService)}
	t.management = NewManagementHandler(jira, validator, t.Tools)
	return t
}

// Tools lists every tool, Jira tools first
func (t *Toolset) Tools() []mcp.Tool {
	return append(t.jira.ListTools(), t.management.ListTools()...)
}

// Register adds every tool to server
func (t *Toolset) Register(server *mcp.Server) {
	for _, tool := range t.Tools() {
		server.RegisterTool(tool)
	}
}

// Lookup returns the tool definition named name
func (t *Toolset) Lookup(name string) (mcp.Tool, bool) {
	for _, tool := range t.Tools() {
		if tool.Name == name {
			return tool, true
		}
	}
	return mcp.Tool{}, false
}

// Handle is an mcp.Handler. The caller identity, when present, comes from
// the auth middleware.
func (t *Toolset) Handle(ctx context.Context, call mcp.ToolCall) (mcp.ToolResult, error) {
	userID := ""
	if userCtx, ok := auth.ExtractUserFromContext(ctx); ok {
		userID = userCtx.UserID
	}

	switch {
	case t.management.Handles(call.Name):
		return t.management.HandleTool(ctx, call)
	case t.jira.Handles(call.Name):
		return t.jira.HandleTool(ctx, call, userID)
	default:
		return mcp.ToolResult{}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}
