package handlers

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"

	jiraservice "github.com/providentiaww/jira-assistant-mcp/cmd/jira-service/handlers"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

// Jira tool names. Each maps one to one onto a Jira service action.
const (
	ToolCreateTicket  = jiraservice.ActionCreateTicket
	ToolUpdateTicket  = jiraservice.ActionUpdateTicket
	ToolDeleteTicket  = jiraservice.ActionDeleteTicket
	ToolGetTicket     = jiraservice.ActionGetTicket
	ToolAddComment    = jiraservice.ActionAddComment
	ToolAssignTicket  = jiraservice.ActionAssignTicket
	ToolSearchTickets = jiraservice.ActionSearchTickets
)

// JiraHandler handles Jira-related MCP tool calls
type JiraHandler struct {
	callService ServiceCaller
}

// NewJiraHandler creates a new Jira handler
func NewJiraHandler(callService ServiceCaller) *JiraHandler {
	return &JiraHandler{
		callService: callService,
	}
}

// ListTools returns the list of Jira tools
func (h *JiraHandler) ListTools() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        ToolCreateTicket,
			Description: "Create a new Jira ticket",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"project_key": map[string]any{
						"type":        "string",
						"description": "Project key, e.g. KAN",
					},
					"summary": map[string]any{
						"type":        "string",
						"description": "Ticket title",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "Ticket description",
					},
					"issue_type": map[string]any{
						"type":        "string",
						"description": "Issue type such as Task, Bug, Story or Epic (default Task)",
					},
					"assignee": map[string]any{
						"type":        "string",
						"description": "Display name or account id of the assignee",
					},
				},
				"required": []string{"project_key", "summary", "description"},
			},
		},
		{
			Name:        ToolUpdateTicket,
			Description: "Update a ticket's summary or description, or move it to another status",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_key": map[string]any{
						"type":        "string",
						"description": "Ticket key, e.g. KAN-123",
					},
					"summary": map[string]any{
						"type":        "string",
						"description": "New summary",
					},
					"description": map[string]any{
						"type":        "string",
						"description": "New description",
					},
					"status": map[string]any{
						"type":        "string",
						"description": "Target status or transition name",
					},
				},
				"required": []string{"issue_key"},
			},
		},
		{
			Name:        ToolDeleteTicket,
			Description: "Delete a Jira ticket",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_key": map[string]any{
						"type":        "string",
						"description": "Ticket key, e.g. KAN-123",
					},
				},
				"required": []string{"issue_key"},
			},
		},
		{
			Name:        ToolGetTicket,
			Description: "Get a ticket's summary and status",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_key": map[string]any{
						"type":        "string",
						"description": "Ticket key, e.g. KAN-123",
					},
				},
				"required": []string{"issue_key"},
			},
		},
		{
			Name:        ToolAddComment,
			Description: "Add a comment to a ticket",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_key": map[string]any{
						"type":        "string",
						"description": "Ticket key, e.g. KAN-123",
					},
					"comment": map[string]any{
						"type":        "string",
						"description": "Comment text",
					},
				},
				"required": []string{"issue_key", "comment"},
			},
		},
		{
			Name:        ToolAssignTicket,
			Description: "Assign a ticket to a user",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"issue_key": map[string]any{
						"type":        "string",
						"description": "Ticket key, e.g. KAN-123",
					},
					"assignee": map[string]any{
						"type":        "string",
						"description": "Display name or account id of the assignee",
					},
				},
				"required": []string{"issue_key", "assignee"},
			},
		},
		{
			Name:        ToolSearchTickets,
			Description: "Search tickets with JQL. At most 10 results are returned",
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"query": map[string]any{
						"type":        "string",
						"description": "JQL query string",
					},
				},
				"required": []string{"query"},
			},
		},
	}
}

// Handles reports whether name is a Jira tool
func (h *JiraHandler) Handles(name string) bool {
	switch name {
	case ToolCreateTicket, ToolUpdateTicket, ToolDeleteTicket, ToolGetTicket,
		ToolAddComment, ToolAssignTicket, ToolSearchTickets:
		return true
	}
	return false
}

// HandleTool forwards a Jira tool call to the Jira service. Service-side
// failures come back as error results; only a lost request is an error.
func (h *JiraHandler) HandleTool(ctx context.Context, call mcp.ToolCall, userID string) (mcp.ToolResult, error) {
	req := models.JiraRequest{
		Action:    call.Name,
		UserID:    userID,
		Params:    call.Arguments,
		RequestID: uuid.NewString(),
	}
	if req.Params == nil {
		req.Params = map[string]any{}
	}

	resp, err := h.callService(ctx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return mcp.ErrorResult(models.ErrCodeTimeout, err.Error(), nil), nil
		}
		return mcp.ToolResult{}, err
	}

	if !resp.Success {
		if resp.Error == nil {
			return mcp.ErrorResult(models.ErrCodeAPIError, "Unknown error", nil), nil
		}
		return mcp.ErrorResult(resp.Error.Code, resp.Error.Message, resp.Error.Details), nil
	}

	if text, ok := resp.Data.(string); ok {
		return mcp.TextResult(text), nil
	}
	resultJSON, _ := json.MarshalIndent(resp.Data, "", "  ")
	return mcp.TextResult(string(resultJSON)), nil
}
