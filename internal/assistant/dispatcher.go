package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/providentiaww/jira-assistant-mcp/internal/metrics"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

// Tool names the dispatcher invokes
const (
	ToolCreateTicket  = "create_ticket"
	ToolGetTicket     = "get_ticket"
	ToolSearchTickets = "search_tickets"
)

// ToolCaller invokes a backend tool by name. A *mcp.ToolError means the tool
// ran and reported failure; any other error means the call did not complete.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (string, error)
}

// HelpMessage lists what the assistant understands
const HelpMessage = `I can help you with the following Jira tasks:

1. Create a ticket, for example: "Create a bug in KAN titled 'Login issue' with description 'Users cannot log in'"
2. Search for tickets, for example: "Show all tasks assigned to Pawan Kumar in KAN" or "Find open tickets containing 'authentication'"
3. Get ticket details, for example: "Show details for ticket KAN-123"`

const (
	noRecentTicketMessage  = "I couldn't find a recently created ticket in our conversation. Could you specify the ticket ID you'd like details for?"
	unknownTicketMessage   = "I couldn't determine which ticket you're referring to. Could you specify the ticket ID you'd like details for?"
	unknownProjectMessage  = "Could not find the specified project. Please check the project key."
	unknownAssigneeMessage = "Could not find the specified assignee. Please check the assignee name."
)

// DefaultTimeout bounds one backend call
const DefaultTimeout = 30 * time.Second

// DefaultProject is used by filtered listings that name no project
const DefaultProject = "KAN"

var (
	ticketKeyPattern  = regexp.MustCompile(`(?i)\b([A-Z][A-Z0-9]*-\d+)\b`)
	recentRefPattern  = regexp.MustCompile(`(?i)\b(?:just\s+)?(?:created|made)\b`)
	searchErrorRemaps = []struct{ needle, message string }{
		{"does not exist for the field 'project'", unknownProjectMessage},
		{"does not exist for the field 'assignee'", unknownAssigneeMessage},
	}
)

// Dispatcher turns a classified request into a backend call and a result
type Dispatcher struct {
	tools          ToolCaller
	timeout        time.Duration
	defaultProject string
	logger         *slog.Logger
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithTimeout bounds each backend call
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		if d > 0 {
			disp.timeout = d
		}
	}
}

// WithDefaultProject sets the project used by filtered listings
func WithDefaultProject(key string) Option {
	return func(disp *Dispatcher) {
		if key != "" {
			disp.defaultProject = key
		}
	}
}

// WithLogger sets the logger
func WithLogger(l *slog.Logger) Option {
	return func(disp *Dispatcher) {
		if l != nil {
			disp.logger = l
		}
	}
}

// NewDispatcher creates a dispatcher calling tools
func NewDispatcher(tools ToolCaller, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		tools:          tools,
		timeout:        DefaultTimeout,
		defaultProject: DefaultProject,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle executes one request. Every failure comes back as a ToolResult;
// nothing is returned as a Go error.
func (d *Dispatcher) Handle(ctx context.Context, intent Intent, text string, history *History) ToolResult {
	switch intent {
	case IntentCreateTicket:
		return d.createTicket(ctx, ExtractTicketFields(text))
	case IntentSearchTickets:
		return d.search(ctx, ExtractSearchFields(text))
	case IntentListByFilter:
		spec := ExtractSearchFields(text)
		if spec.RawQuery == "" && spec.Project == "" {
			spec.Project = d.defaultProject
		}
		return d.search(ctx, spec)
	case IntentGetTicketDetails:
		return d.ticketDetails(ctx, text, history)
	default:
		return succeeded(HelpMessage)
	}
}

func (d *Dispatcher) createTicket(ctx context.Context, draft TicketDraft) ToolResult {
	if missing := draft.Missing(); len(missing) > 0 {
		msg := fmt.Sprintf("Could not determine the following fields: %s. Please provide all required information.",
			strings.Join(missing, ", "))
		return failed(KindValidation, msg)
	}
	return d.CreateTicket(ctx, draft)
}

// CreateTicket submits a complete draft. Callers that build drafts from forms
// use it directly.
func (d *Dispatcher) CreateTicket(ctx context.Context, draft TicketDraft) ToolResult {
	if missing := draft.Missing(); len(missing) > 0 {
		return failed(KindValidation, "Missing required fields: "+strings.Join(missing, ", "))
	}
	if draft.IssueType == "" {
		draft.IssueType = DefaultIssueType
	}
	args := map[string]any{
		"project_key": draft.ProjectKey,
		"summary":     draft.Summary,
		"description": draft.Description,
		"issue_type":  draft.IssueType,
	}
	if draft.Assignee != "" {
		args["assignee"] = draft.Assignee
	}

	res := d.call(ctx, ToolCreateTicket, args)
	if res.Success {
		if m := createdTicketPattern.FindStringSubmatch(res.Message); m != nil {
			res.TicketKey = m[1]
		}
	}
	return res
}

func (d *Dispatcher) search(ctx context.Context, spec SearchSpec) ToolResult {
	return d.SearchJQL(ctx, spec.JQL())
}

// SearchJQL runs a query and remaps the backend's well-known complaints
func (d *Dispatcher) SearchJQL(ctx context.Context, jql string) ToolResult {
	res := d.call(ctx, ToolSearchTickets, map[string]any{"query": jql})
	if res.Kind == KindBackend {
		payload := strings.Join(append([]string{res.Message}, res.details...), "\n")
		for _, remap := range searchErrorRemaps {
			if strings.Contains(payload, remap.needle) {
				res.Message = remap.message
				break
			}
		}
	}
	return res
}

func (d *Dispatcher) ticketDetails(ctx context.Context, text string, history *History) ToolResult {
	key := ""
	if m := ticketKeyPattern.FindStringSubmatch(text); m != nil {
		key = strings.ToUpper(m[1])
	} else if history != nil {
		key, _ = history.LastCreatedTicketID()
	}

	if key == "" {
		if recentRefPattern.MatchString(text) {
			return failed(KindAmbiguousReference, noRecentTicketMessage)
		}
		return failed(KindAmbiguousReference, unknownTicketMessage)
	}

	return d.GetTicket(ctx, key)
}

// GetTicket fetches one ticket by key
func (d *Dispatcher) GetTicket(ctx context.Context, key string) ToolResult {
	res := d.call(ctx, ToolGetTicket, map[string]any{"issue_key": key})
	res.TicketKey = key
	return res
}

// call invokes a tool under the dispatcher timeout and maps the outcome to
// a result kind.
func (d *Dispatcher) call(ctx context.Context, tool string, args map[string]any) ToolResult {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	text, err := d.tools.CallTool(ctx, tool, args)
	res := d.classify(tool, text, err)
	metrics.RecordToolCall(tool, res.Outcome(), time.Since(start))

	if !res.Success {
		d.logger.Warn("tool call failed",
			slog.String("tool", tool),
			slog.String("kind", string(res.Kind)),
			slog.String("error", res.Message))
	}
	return res
}

func (d *Dispatcher) classify(tool, text string, err error) ToolResult {
	if err == nil {
		return succeeded(text)
	}

	var toolErr *mcp.ToolError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return failed(KindTimeout, fmt.Sprintf("The request to Jira timed out after %s.", d.timeout))
	case errors.As(err, &toolErr) && toolErr.Code == models.ErrCodeTimeout:
		return failed(KindTimeout, fmt.Sprintf("The request to Jira timed out: %s", toolErr.Message))
	case errors.As(err, &toolErr):
		msg := toolErr.Message
		if len(toolErr.Details) > 0 {
			msg = toolErr.Details[0]
		}
		if msg == "" {
			msg = "the " + tool + " tool reported an unknown error"
		}
		res := failed(KindBackend, msg)
		res.details = append([]string{toolErr.Message}, toolErr.Details...)
		return res
	default:
		return failed(KindTransport, err.Error())
	}
}
