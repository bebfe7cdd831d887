package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/providentiaww/jira-assistant-mcp/internal/cache"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
)

// SearchLimit is the fixed number of issues a search returns. Callers asking
// for more still get at most this many.
const SearchLimit = 10

// Credentials holds connection info for one Atlassian instance
type Credentials struct {
	Site  string // e.g., "https://eso.atlassian.net"
	Email string // e.g., "service@eso.com"
	Token string // Atlassian API token
}

// Client wraps HTTP client with Atlassian auth
type Client struct {
	creds      Credentials
	httpClient *http.Client
	limiter    *rate.Limiter
	accounts   *cache.Cache[string]
}

// Option configures a Client
type Option func(*Client)

// WithRateLimit caps outbound requests per second. A burst below one is
// raised to one so a single request can always proceed.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if burst < 1 {
			burst = 1
		}
		if perSecond > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// WithHTTPClient replaces the pooled HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// Shared HTTP client with connection pooling
var sharedHTTPClient = &http.Client{
	Timeout: 30 * time.Second,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// NewClient creates an authenticated Jira client
func NewClient(creds Credentials, timeout time.Duration, opts ...Option) *Client {
	client := sharedHTTPClient
	if timeout > 0 && timeout != sharedHTTPClient.Timeout {
		client = &http.Client{
			Timeout:   timeout,
			Transport: sharedHTTPClient.Transport,
		}
	}

	c := &Client{
		creds:      Credentials{Site: strings.TrimSuffix(creds.Site, "/"), Email: creds.Email, Token: creds.Token},
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Inf, 0),
		accounts:   cache.New[string](10 * time.Minute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from Jira. Messages collects errorMessages
// followed by field errors as "field: message".
type APIError struct {
	Op         string
	StatusCode int
	Messages   []string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("failed to %s (status %d): %s", e.Op, e.StatusCode, e.Detail())
}

// Detail is the most specific description Jira gave of the failure
func (e *APIError) Detail() string {
	if len(e.Messages) > 0 {
		return strings.Join(e.Messages, "; ")
	}
	if body := strings.TrimSpace(e.Body); body != "" {
		return body
	}
	return http.StatusText(e.StatusCode)
}

func newAPIError(op string, resp *http.Response) *APIError {
	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Op: op, StatusCode: resp.StatusCode, Body: string(body)}

	var payload struct {
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		apiErr.Messages = append(apiErr.Messages, payload.ErrorMessages...)
		fields := make([]string, 0, len(payload.Errors))
		for field := range payload.Errors {
			fields = append(fields, field)
		}
		sort.Strings(fields)
		for _, field := range fields {
			apiErr.Messages = append(apiErr.Messages, fmt.Sprintf("%s: %s", field, payload.Errors[field]))
		}
	}
	return apiErr
}

// authHeader returns the Basic auth header value
func (c *Client) authHeader() string {
	credentials := fmt.Sprintf("%s:%s", c.creds.Email, c.creds.Token)
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(credentials))
}

// do sends one request. in is JSON-encoded when non-nil and out is decoded
// from the body when non-nil.
func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to %s: %w", op, err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.creds.Site+path, body)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	req.Header.Set("Authorization", c.authHeader())
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(op, resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to %s: decoding response: %w", op, err)
	}
	return nil
}

// CreateIssue creates a new issue. assigneeID is optional.
func (c *Client) CreateIssue(ctx context.Context, projectKey, issueType, summary, description, assigneeID string) (*models.CreatedIssue, error) {
	fields := map[string]any{
		"project":     models.ProjectRef{Key: projectKey},
		"summary":     summary,
		"description": models.NewADFText(description),
		"issuetype":   models.IssueType{Name: issueType},
	}
	if assigneeID != "" {
		fields["assignee"] = map[string]string{"accountId": assigneeID}
	}

	var created models.CreatedIssue
	if err := c.do(ctx, "create issue", http.MethodPost, "/rest/api/3/issue", models.IssueInput{Fields: fields}, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// GetIssue gets a specific issue by key or ID
func (c *Client) GetIssue(ctx context.Context, issueKey string) (*models.JiraIssue, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s?fields=summary,status,assignee,issuetype,project", url.PathEscape(issueKey))

	var issue models.JiraIssue
	if err := c.do(ctx, "get issue", http.MethodGet, path, nil, &issue); err != nil {
		return nil, err
	}
	return &issue, nil
}

// UpdateIssue edits fields on an issue
func (c *Client) UpdateIssue(ctx context.Context, issueKey string, fields map[string]any) error {
	path := "/rest/api/3/issue/" + url.PathEscape(issueKey)
	return c.do(ctx, "update issue", http.MethodPut, path, models.IssueInput{Fields: fields}, nil)
}

// DeleteIssue removes an issue
func (c *Client) DeleteIssue(ctx context.Context, issueKey string) error {
	path := "/rest/api/3/issue/" + url.PathEscape(issueKey)
	return c.do(ctx, "delete issue", http.MethodDelete, path, nil, nil)
}

// AddComment adds a plain-text comment to an issue
func (c *Client) AddComment(ctx context.Context, issueKey, body string) (*models.Comment, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s/comment", url.PathEscape(issueKey))

	var comment models.Comment
	if err := c.do(ctx, "add comment", http.MethodPost, path, map[string]any{"body": models.NewADFText(body)}, &comment); err != nil {
		return nil, err
	}
	return &comment, nil
}

// GetTransitions lists the workflow transitions available on an issue
func (c *Client) GetTransitions(ctx context.Context, issueKey string) ([]models.Transition, error) {
	path := fmt.Sprintf("/rest/api/3/issue/%s/transitions", url.PathEscape(issueKey))

	var result models.TransitionsResponse
	if err := c.do(ctx, "get transitions", http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return result.Transitions, nil
}

// TransitionIssue moves an issue through a workflow transition
func (c *Client) TransitionIssue(ctx context.Context, issueKey, transitionID string) error {
	path := fmt.Sprintf("/rest/api/3/issue/%s/transitions", url.PathEscape(issueKey))
	payload := map[string]any{"transition": map[string]string{"id": transitionID}}
	return c.do(ctx, "transition issue", http.MethodPost, path, payload, nil)
}

// AssignIssue sets the assignee by account ID
func (c *Client) AssignIssue(ctx context.Context, issueKey, accountID string) error {
	path := fmt.Sprintf("/rest/api/3/issue/%s/assignee", url.PathEscape(issueKey))
	return c.do(ctx, "assign issue", http.MethodPut, path, map[string]string{"accountId": accountID}, nil)
}

// SearchUsers finds users matching a name or email fragment
func (c *Client) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	path := "/rest/api/3/user/search?query=" + url.QueryEscape(query)

	var users []models.User
	if err := c.do(ctx, "search users", http.MethodGet, path, nil, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// FindAccountID resolves a display name to the first matching account ID.
// It returns "" with a nil error when nobody matches.
func (c *Client) FindAccountID(ctx context.Context, name string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if id, ok := c.accounts.Get(key); ok {
		return id, nil
	}

	users, err := c.SearchUsers(ctx, name)
	if err != nil {
		return "", err
	}
	if len(users) == 0 {
		return "", nil
	}
	c.accounts.Set(key, users[0].AccountID)
	return users[0].AccountID, nil
}

// SearchIssues runs a JQL query and returns at most limit issues, never more
// than SearchLimit.
func (c *Client) SearchIssues(ctx context.Context, jql string, limit int) (*models.SearchResponse, error) {
	if limit <= 0 || limit > SearchLimit {
		limit = SearchLimit
	}
	payload := map[string]any{
		"jql":        jql,
		"maxResults": limit,
		"fields":     []string{"summary", "status", "issuetype", "assignee"},
	}

	var result models.SearchResponse
	if err := c.do(ctx, "search issues", http.MethodPost, "/rest/api/3/search/jql", payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
