package models

// JiraRequest represents a request to the Jira service
type JiraRequest struct {
	Action    string         `json:"action"`     // create_ticket, update_ticket, get_ticket, search_tickets, ...
	UserID    string         `json:"user_id"`    // Caller identity, empty for local tools
	Params    map[string]any `json:"params"`     // Action-specific parameters
	RequestID string         `json:"request_id"` // Correlation ID
}

// JiraResponse represents a response from the Jira service.
// Data holds the user-facing result text on success.
type JiraResponse struct {
	Success   bool       `json:"success"`
	Data      any        `json:"data,omitempty"`
	Error     *ErrorInfo `json:"error,omitempty"`
	RequestID string     `json:"request_id"`
}

// Text returns Data as a string, or "" when it is something else.
func (r *JiraResponse) Text() string {
	if s, ok := r.Data.(string); ok {
		return s
	}
	return ""
}

// JiraIssue represents a Jira issue
type JiraIssue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the issue fields this service reads
type IssueFields struct {
	Summary   string      `json:"summary"`
	Status    IssueStatus `json:"status"`
	Assignee  *User       `json:"assignee,omitempty"`
	Project   ProjectRef  `json:"project"`
	IssueType IssueType   `json:"issuetype"`
	Created   string      `json:"created,omitempty"`
	Updated   string      `json:"updated,omitempty"`
}

// IssueStatus represents issue status
type IssueStatus struct {
	Name string `json:"name"`
	ID   string `json:"id"`
}

// User represents a Jira user
type User struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"emailAddress,omitempty"`
	Active      bool   `json:"active,omitempty"`
}

// ProjectRef references a Jira project
type ProjectRef struct {
	ID   string `json:"id,omitempty"`
	Key  string `json:"key"`
	Name string `json:"name,omitempty"`
}

// IssueType represents an issue type
type IssueType struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// SearchResponse represents Jira search results
type SearchResponse struct {
	StartAt       int         `json:"startAt"`
	MaxResults    int         `json:"maxResults"`
	Total         int         `json:"total"`
	NextPageToken string      `json:"nextPageToken,omitempty"`
	Issues        []JiraIssue `json:"issues"`
}

// Transition is one workflow move available on an issue
type Transition struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	To   IssueStatus `json:"to"`
}

// TransitionsResponse wraps GET /issue/{key}/transitions
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// CreatedIssue is the body Jira returns from POST /issue
type CreatedIssue struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Self string `json:"self"`
}

// IssueInput is the payload for creating or editing an issue
type IssueInput struct {
	Fields map[string]any `json:"fields"`
}

// Comment represents a Jira comment
type Comment struct {
	ID      string       `json:"id,omitempty"`
	Body    *ADFDocument `json:"body"`
	Created string       `json:"created,omitempty"`
	Author  *User        `json:"author,omitempty"`
}
