package assistant

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/providentiaww/jira-assistant-mcp/internal/metrics"
)

// WelcomeMessage greets a new conversation
const WelcomeMessage = `Welcome to Jira Assistant! I'm here to help you manage your Jira tickets.

Here are some things you can ask me to do:

1. Create a new ticket:
   - "Create a bug in KAN titled 'Login page crashes' with description 'The login page crashes on Safari'"

2. Search for tickets:
   - "Search for tickets in project KAN"
   - "Find all open tickets"
   - "query: project = KAN AND issuetype = Task" (direct JQL query)

3. Get ticket details:
   - "Show details for ticket KAN-123"
   - "Get info about KAN-123"`

// Reply is what a session answers to one request
type Reply struct {
	Intent Intent     `json:"intent"`
	Result ToolResult `json:"result"`
	Text   string     `json:"text"`
	// Turns holds the turns this reply appended to the history, oldest first.
	Turns []Turn `json:"turns"`
}

// Session is one conversation: its history plus the dispatcher serving it.
// Requests on a session are expected one at a time.
type Session struct {
	ID         string
	history    *History
	dispatcher *Dispatcher
}

// NewSession binds a history to a dispatcher. A nil history starts empty.
func NewSession(id string, dispatcher *Dispatcher, history *History) *Session {
	if history == nil {
		history = NewHistory(DefaultHistoryLimit)
	}
	return &Session{ID: id, history: history, dispatcher: dispatcher}
}

// History exposes the session's conversation log
func (s *Session) History() *History {
	return s.history
}

// Respond handles one free-text utterance end to end
func (s *Session) Respond(ctx context.Context, text string) Reply {
	text = strings.TrimSpace(text)
	intent := Classify(text)
	metrics.RecordIntent(intent.String())

	// The lookup for "the ticket we just created" must not see this turn.
	res := s.dispatcher.Handle(ctx, intent, text, s.history)
	return s.record(intent, res, text, formatReply(intent, res))
}

// CreateFromForm submits a ticket built from structured input and records
// the exchange as if it had been typed, so later follow-ups can refer to it.
func (s *Session) CreateFromForm(ctx context.Context, draft TicketDraft) Reply {
	if draft.IssueType == "" {
		draft.IssueType = DefaultIssueType
	}
	res := s.dispatcher.CreateTicket(ctx, draft)

	said := fmt.Sprintf("Create a %s in %s titled '%s' with description '%s'",
		strings.ToLower(draft.IssueType), draft.ProjectKey, draft.Summary, draft.Description)
	var answer string
	if res.Success {
		answer = fmt.Sprintf("I've created a %s ticket for you: %s", strings.ToLower(draft.IssueType), res.Message)
	} else {
		answer = "Error creating ticket: " + res.Message
	}
	return s.record(IntentCreateTicket, res, said, answer)
}

// SearchJQL runs a raw JQL query and records it in the conversation
func (s *Session) SearchJQL(ctx context.Context, jql string) Reply {
	jql = strings.TrimSpace(jql)
	if jql == "" {
		res := failed(KindValidation, "Please enter a search query.")
		return Reply{Intent: IntentSearchTickets, Result: res, Text: res.Message}
	}
	res := s.dispatcher.SearchJQL(ctx, jql)

	answer := "Here are the search results:\n\n" + res.Message
	if !res.Success {
		answer = "Error searching tickets: " + res.Message
	}
	return s.record(IntentSearchTickets, res, "Search for tickets using query: "+jql, answer)
}

func (s *Session) record(intent Intent, res ToolResult, said, answer string) Reply {
	now := time.Now().UTC()
	turns := []Turn{
		{Role: RoleUser, Text: said, CreatedAt: now},
		{Role: RoleAssistant, Text: answer, CreatedAt: now},
	}
	for i := range turns {
		s.history.Append(turns[i])
	}
	return Reply{Intent: intent, Result: res, Text: answer, Turns: turns}
}

// formatReply wraps a result in conversational text
func formatReply(intent Intent, res ToolResult) string {
	if !res.Success {
		switch res.Kind {
		case KindValidation:
			return "I tried to create a ticket based on your request, but I need more information:\n\n" +
				res.Message + "\n\nPlease try again with more details."
		case KindAmbiguousReference:
			return res.Message
		case KindTimeout:
			return res.Message + " Please try again in a moment."
		default:
			return "Error: " + res.Message
		}
	}

	switch intent {
	case IntentCreateTicket:
		return "Great! I've created the ticket for you:\n\n" + res.Message + "\n\nIs there anything else you'd like me to do?"
	case IntentSearchTickets, IntentListByFilter:
		return "Here are the tickets I found:\n\n" + res.Message +
			"\n\nIs there anything specific you'd like to know about any of these tickets?"
	case IntentGetTicketDetails:
		return fmt.Sprintf("Here are the details for ticket %s:\n\n%s\n\nIs there anything else you'd like to know?",
			res.TicketKey, res.Message)
	default:
		return "I'm not sure how to handle that request. " + res.Message
	}
}
