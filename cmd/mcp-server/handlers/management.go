package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/providentiaww/jira-assistant-mcp/internal/atlassian"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

const (
	ToolListTools  = "list_tools"
	ToolJiraStatus = "jira_status"
)

// CredentialValidator checks Jira credentials
type CredentialValidator interface {
	ValidateCredentials(ctx context.Context, siteURL, email, apiToken string) (*models.User, error)
}

// ManagementHandler serves tools about the server itself
type ManagementHandler struct {
	jira      config.JiraConfig
	validator CredentialValidator
	tools     func() []mcp.Tool
}

// NewManagementHandler creates a management handler. tools lists every
// registered tool for list_tools.
func NewManagementHandler(jira config.JiraConfig, validator CredentialValidator, tools func() []mcp.Tool) *ManagementHandler {
	if validator == nil {
		validator = atlassian.NewValidator()
	}
	return &ManagementHandler{jira: jira, validator: validator, tools: tools}
}

// ListTools returns the list of management tools
func (h *ManagementHandler) ListTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        ToolListTools,
			Description: "List every available tool with its description",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			Name:        ToolJiraStatus,
			Description: "Check that the configured Jira credentials work",
			InputSchema: map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
	}
}

// Handles reports whether name is a management tool
func (h *ManagementHandler) Handles(name string) bool {
	return name == ToolListTools || name == ToolJiraStatus
}

// HandleTool handles a management tool call
func (h *ManagementHandler) HandleTool(ctx context.Context, call mcp.ToolCall) (mcp.ToolResult, error) {
	switch call.Name {
	case ToolListTools:
		return h.handleListTools(), nil
	case ToolJiraStatus:
		return h.handleJiraStatus(ctx), nil
	default:
		return mcp.ToolResult{}, fmt.Errorf("unknown tool: %s", call.Name)
	}
}

func (h *ManagementHandler) handleListTools() mcp.ToolResult {
	var b strings.Builder
	b.WriteString("Available tools:\n")
	for _, tool := range h.tools() {
		fmt.Fprintf(&b, "- %s: %s\n", tool.Name, tool.Description)
	}
	return mcp.TextResult(strings.TrimRight(b.String(), "\n"))
}

func (h *ManagementHandler) handleJiraStatus(ctx context.Context) mcp.ToolResult {
	if h.jira.URL == "" || h.jira.Email == "" || h.jira.APIToken == "" {
		return mcp.ErrorResult(models.ErrCodeInvalidRequest, "Jira credentials are not configured", nil)
	}

	user, err := h.validator.ValidateCredentials(ctx, h.jira.URL, h.jira.Email, h.jira.APIToken)
	if err != nil {
		code := models.ErrCodeAPIError
		if errors.Is(err, atlassian.ErrInvalidCredentials) {
			code = models.ErrCodeAuthFailed
		}
		return mcp.ErrorResult(code, err.Error(), nil)
	}
	return mcp.TextResult(fmt.Sprintf("Connected to %s as %s", h.jira.URL, user.DisplayName))
}
