package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/providentiaww/jira-assistant-mcp/cmd/jira-service/api"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/metrics"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
)

// Actions served by the Jira service. They match the MCP tool names.
const (
	ActionCreateTicket  = "create_ticket"
	ActionUpdateTicket  = "update_ticket"
	ActionDeleteTicket  = "delete_ticket"
	ActionGetTicket     = "get_ticket"
	ActionAddComment    = "add_comment"
	ActionAssignTicket  = "assign_ticket"
	ActionSearchTickets = "search_tickets"
)

// JiraAPI is the subset of the REST client the service uses
type JiraAPI interface {
	CreateIssue(ctx context.Context, projectKey, issueType, summary, description, assigneeID string) (*models.CreatedIssue, error)
	GetIssue(ctx context.Context, issueKey string) (*models.JiraIssue, error)
	UpdateIssue(ctx context.Context, issueKey string, fields map[string]any) error
	DeleteIssue(ctx context.Context, issueKey string) error
	AddComment(ctx context.Context, issueKey, body string) (*models.Comment, error)
	GetTransitions(ctx context.Context, issueKey string) ([]models.Transition, error)
	TransitionIssue(ctx context.Context, issueKey, transitionID string) error
	AssignIssue(ctx context.Context, issueKey, accountID string) error
	FindAccountID(ctx context.Context, name string) (string, error)
	SearchIssues(ctx context.Context, jql string, limit int) (*models.SearchResponse, error)
}

// Service handles Jira service requests
type Service struct {
	client JiraAPI
	logger *slog.Logger
}

// NewService creates a new Jira service
func NewService(client JiraAPI, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client: client,
		logger: logger,
	}
}

// NewServiceFromConfig builds the REST client from the Jira settings and
// wraps it in a service.
func NewServiceFromConfig(cfg config.Config, logger *slog.Logger) (*Service, error) {
	if err := cfg.RequireJira(); err != nil {
		return nil, err
	}
	client := api.NewClient(
		api.Credentials{Site: cfg.Jira.URL, Email: cfg.Jira.Email, Token: cfg.Jira.APIToken},
		cfg.Jira.Timeout,
		api.WithRateLimit(cfg.Jira.RateLimit, cfg.Jira.RateBurst),
	)
	return NewService(client, logger), nil
}

// HandleMessage decodes a JSON JiraRequest, handles it and returns the
// JSON-encoded JiraResponse. It is the broker entry point.
func (s *Service) HandleMessage(ctx context.Context, body []byte) []byte {
	var req models.JiraRequest
	var response models.JiraResponse
	if err := json.Unmarshal(body, &req); err != nil {
		response = models.ErrorResponse(models.ErrCodeInvalidRequest, err.Error(), "")
	} else {
		response = s.Handle(ctx, req)
	}

	responseBytes, _ := json.Marshal(response)
	return responseBytes
}

// Handle routes a request to its action
func (s *Service) Handle(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	s.logger.Debug("jira request", slog.String("action", req.Action), slog.String("request_id", req.RequestID))

	var response models.JiraResponse
	switch req.Action {
	case ActionCreateTicket:
		response = s.handleCreateTicket(ctx, req)
	case ActionUpdateTicket:
		response = s.handleUpdateTicket(ctx, req)
	case ActionDeleteTicket:
		response = s.handleDeleteTicket(ctx, req)
	case ActionGetTicket:
		response = s.handleGetTicket(ctx, req)
	case ActionAddComment:
		response = s.handleAddComment(ctx, req)
	case ActionAssignTicket:
		response = s.handleAssignTicket(ctx, req)
	case ActionSearchTickets:
		response = s.handleSearchTickets(ctx, req)
	default:
		response = models.ErrorResponse(models.ErrCodeInvalidRequest,
			fmt.Sprintf("unknown action: %s", req.Action), req.RequestID)
	}

	if response.Success {
		metrics.RecordJiraRequest(req.Action, "")
	} else {
		metrics.RecordJiraRequest(req.Action, response.Error.Code)
		s.logger.Warn("jira request failed",
			slog.String("action", req.Action),
			slog.String("request_id", req.RequestID),
			slog.String("code", response.Error.Code),
			slog.String("error", response.Error.Message))
	}
	return response
}

func stringParam(params map[string]any, key string) string {
	v, _ := params[key].(string)
	return strings.TrimSpace(v)
}

func missing(req models.JiraRequest, key string) models.JiraResponse {
	return models.ErrorResponse(models.ErrCodeInvalidRequest, "missing "+key, req.RequestID)
}

// apiFailure converts a client error into an error response, keeping the
// messages Jira returned as details.
func apiFailure(err error, requestID string) models.JiraResponse {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		code := models.ErrCodeAPIError
		switch apiErr.StatusCode {
		case 401, 403:
			code = models.ErrCodeAuthFailed
		case 404:
			code = models.ErrCodeNotFound
		}
		return models.ErrorResponse(code, apiErr.Detail(), requestID, apiErr.Messages...)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return models.ErrorResponse(models.ErrCodeTimeout, err.Error(), requestID)
	}
	return models.ErrorResponse(models.ErrCodeAPIError, err.Error(), requestID)
}

func (s *Service) handleCreateTicket(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	projectKey := stringParam(req.Params, "project_key")
	if projectKey == "" {
		return missing(req, "project_key")
	}
	summary := stringParam(req.Params, "summary")
	if summary == "" {
		return missing(req, "summary")
	}
	description := stringParam(req.Params, "description")
	if description == "" {
		return missing(req, "description")
	}
	issueType := stringParam(req.Params, "issue_type")
	if issueType == "" {
		issueType = "Task"
	}

	var accountID string
	if assignee := stringParam(req.Params, "assignee"); assignee != "" {
		id, err := s.client.FindAccountID(ctx, assignee)
		switch {
		case err != nil:
			s.logger.Warn("assignee lookup failed", slog.String("assignee", assignee), slog.Any("error", err))
		case id == "":
			s.logger.Warn("no account found for assignee", slog.String("assignee", assignee))
		default:
			accountID = id
		}
	}

	created, err := s.client.CreateIssue(ctx, projectKey, issueType, summary, description, accountID)
	if err != nil {
		return apiFailure(err, req.RequestID)
	}
	return models.SuccessResponse("Ticket created: "+created.Key, req.RequestID)
}

func (s *Service) handleUpdateTicket(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	issueKey := stringParam(req.Params, "issue_key")
	if issueKey == "" {
		return missing(req, "issue_key")
	}

	// A status change is a workflow transition and is applied on its own.
	if status := stringParam(req.Params, "status"); status != "" {
		transitions, err := s.client.GetTransitions(ctx, issueKey)
		if err != nil {
			return apiFailure(err, req.RequestID)
		}
		for _, t := range transitions {
			if strings.EqualFold(t.Name, status) || strings.EqualFold(t.To.Name, status) {
				if err := s.client.TransitionIssue(ctx, issueKey, t.ID); err != nil {
					return apiFailure(err, req.RequestID)
				}
				return models.SuccessResponse("Status updated", req.RequestID)
			}
		}
		return models.ErrorResponse(models.ErrCodeInvalidStatus, "Invalid status", req.RequestID)
	}

	fields := map[string]any{}
	if summary := stringParam(req.Params, "summary"); summary != "" {
		fields["summary"] = summary
	}
	if description := stringParam(req.Params, "description"); description != "" {
		fields["description"] = models.NewADFText(description)
	}
	if len(fields) == 0 {
		return models.ErrorResponse(models.ErrCodeNoFields, "No fields to update", req.RequestID)
	}

	if err := s.client.UpdateIssue(ctx, issueKey, fields); err != nil {
		return apiFailure(err, req.RequestID)
	}
	return models.SuccessResponse("Ticket updated", req.RequestID)
}

func (s *Service) handleDeleteTicket(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	issueKey := stringParam(req.Params, "issue_key")
	if issueKey == "" {
		return missing(req, "issue_key")
	}
	if err := s.client.DeleteIssue(ctx, issueKey); err != nil {
		return apiFailure(err, req.RequestID)
	}
	return models.SuccessResponse("Ticket deleted", req.RequestID)
}

func (s *Service) handleGetTicket(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	issueKey := stringParam(req.Params, "issue_key")
	if issueKey == "" {
		return missing(req, "issue_key")
	}
	issue, err := s.client.GetIssue(ctx, issueKey)
	if err != nil {
		return apiFailure(err, req.RequestID)
	}
	text := fmt.Sprintf("Ticket %s: %s - %s", issueKey, issue.Fields.Summary, issue.Fields.Status.Name)
	return models.SuccessResponse(text, req.RequestID)
}

func (s *Service) handleAddComment(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	issueKey := stringParam(req.Params, "issue_key")
	if issueKey == "" {
		return missing(req, "issue_key")
	}
	comment := stringParam(req.Params, "comment")
	if comment == "" {
		return missing(req, "comment")
	}
	if _, err := s.client.AddComment(ctx, issueKey, comment); err != nil {
		return apiFailure(err, req.RequestID)
	}
	return models.SuccessResponse("Comment added", req.RequestID)
}

func (s *Service) handleAssignTicket(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	issueKey := stringParam(req.Params, "issue_key")
	if issueKey == "" {
		return missing(req, "issue_key")
	}
	assignee := stringParam(req.Params, "assignee")
	if assignee == "" {
		return missing(req, "assignee")
	}

	// Names and emails are resolved through user search; anything that does
	// not match a user is sent as an account ID.
	accountID := assignee
	id, err := s.client.FindAccountID(ctx, assignee)
	if err != nil {
		return apiFailure(err, req.RequestID)
	}
	if id != "" {
		accountID = id
	}

	if err := s.client.AssignIssue(ctx, issueKey, accountID); err != nil {
		return apiFailure(err, req.RequestID)
	}
	return models.SuccessResponse("Ticket assigned", req.RequestID)
}

func (s *Service) handleSearchTickets(ctx context.Context, req models.JiraRequest) models.JiraResponse {
	query := stringParam(req.Params, "query")
	if query == "" {
		return missing(req, "query")
	}

	results, err := s.client.SearchIssues(ctx, query, api.SearchLimit)
	if err != nil {
		return apiFailure(err, req.RequestID)
	}
	if len(results.Issues) == 0 {
		return models.SuccessResponse("No tickets found", req.RequestID)
	}

	keys := make([]string, 0, len(results.Issues))
	for _, issue := range results.Issues {
		keys = append(keys, issue.Key)
	}
	return models.SuccessResponse("Found tickets: "+strings.Join(keys, ", "), req.RequestID)
}
