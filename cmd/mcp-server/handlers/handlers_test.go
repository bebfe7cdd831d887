package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
	"github.com/providentiaww/jira-assistant-mcp/internal/atlassian"
	"github.com/providentiaww/jira-assistant-mcp/internal/config"
	"github.com/providentiaww/jira-assistant-mcp/internal/models"
	"github.com/providentiaww/jira-assistant-mcp/internal/storage"
	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

// fakeService answers Jira requests the way the Jira service would
func fakeService(t *testing.T) ServiceCaller {
	return func(ctx context.Context, req models.JiraRequest) (*models.JiraResponse, error) {
		assert.NotEmpty(t, req.RequestID)
		var resp models.JiraResponse
		switch req.Action {
		case ToolCreateTicket:
			resp = models.SuccessResponse("Ticket created: KAN-55", req.RequestID)
		case ToolGetTicket:
			key, _ := req.Params["issue_key"].(string)
			resp = models.SuccessResponse("Ticket "+key+": Login page crashes - To Do", req.RequestID)
		case ToolSearchTickets:
			query, _ := req.Params["query"].(string)
			if strings.Contains(query, "NOPE") {
				resp = models.ErrorResponse(models.ErrCodeAPIError, "Jira rejected the query", req.RequestID,
					"The value 'NOPE' does not exist for the field 'project'.")
			} else {
				resp = models.SuccessResponse("Found tickets: KAN-1, KAN-2", req.RequestID)
			}
		case ToolDeleteTicket:
			return nil, errors.New("connection refused")
		case ToolAddComment:
			return nil, context.DeadlineExceeded
		default:
			resp = models.ErrorResponse(models.ErrCodeInvalidRequest, "unsupported", req.RequestID)
		}
		return &resp, nil
	}
}

type stubValidator struct {
	user *models.User
	err  error
}

func (v stubValidator) ValidateCredentials(context.Context, string, string, string) (*models.User, error) {
	return v.user, v.err
}

var testJira = config.JiraConfig{URL: "https://example.atlassian.net", Email: "a@b.c", APIToken: "t"}

func newTestToolset(t *testing.T, v CredentialValidator) *Toolset {
	return NewToolset(fakeService(t), testJira, v)
}

func TestJiraHandlerResults(t *testing.T) {
	h := NewJiraHandler(fakeService(t))
	ctx := context.Background()

	res, err := h.HandleTool(ctx, mcp.ToolCall{Name: ToolGetTicket, Arguments: map[string]any{"issue_key": "KAN-1"}}, "")
	require.NoError(t, err)
	assert.False(t, res.IsError)
	assert.Equal(t, "Ticket KAN-1: Login page crashes - To Do", res.Text())

	res, err = h.HandleTool(ctx, mcp.ToolCall{Name: ToolSearchTickets, Arguments: map[string]any{"query": "project = NOPE"}}, "")
	require.NoError(t, err)
	var toolErr *mcp.ToolError
	require.ErrorAs(t, res.Err(ToolSearchTickets), &toolErr)
	assert.Equal(t, models.ErrCodeAPIError, toolErr.Code)
	assert.Equal(t, []string{"The value 'NOPE' does not exist for the field 'project'."}, toolErr.Details)
	assert.Equal(t, "Error: Jira rejected the query", res.Text())

	res, err = h.HandleTool(ctx, mcp.ToolCall{Name: ToolAddComment}, "")
	require.NoError(t, err)
	require.ErrorAs(t, res.Err(ToolAddComment), &toolErr)
	assert.Equal(t, models.ErrCodeTimeout, toolErr.Code)

	_, err = h.HandleTool(ctx, mcp.ToolCall{Name: ToolDeleteTicket}, "")
	assert.EqualError(t, err, "connection refused")
}

func TestToolsetListsAndRoutes(t *testing.T) {
	ts := newTestToolset(t, stubValidator{user: &models.User{DisplayName: "Pawan Kumar"}})

	var names []string
	for _, tool := range ts.Tools() {
		names = append(names, tool.Name)
	}
	assert.Equal(t, []string{
		"create_ticket", "update_ticket", "delete_ticket", "get_ticket", "add_comment", "assign_ticket", "search_tickets",
		"list_tools", "jira_status",
	}, names)

	res, err := ts.Handle(context.Background(), mcp.ToolCall{Name: ToolListTools})
	require.NoError(t, err)
	assert.Contains(t, res.Text(), "- create_ticket: Create a new Jira ticket")
	assert.Contains(t, res.Text(), "- jira_status:")

	res, err = ts.Handle(context.Background(), mcp.ToolCall{Name: ToolJiraStatus})
	require.NoError(t, err)
	assert.Equal(t, "Connected to https://example.atlassian.net as Pawan Kumar", res.Text())

	_, err = ts.Handle(context.Background(), mcp.ToolCall{Name: "jira_list_projects"})
	assert.Error(t, err)
}

func TestJiraStatusReportsBadCredentials(t *testing.T) {
	ts := newTestToolset(t, stubValidator{err: atlassian.ErrInvalidCredentials})

	res, err := ts.Handle(context.Background(), mcp.ToolCall{Name: ToolJiraStatus})
	require.NoError(t, err)
	var toolErr *mcp.ToolError
	require.ErrorAs(t, res.Err(ToolJiraStatus), &toolErr)
	assert.Equal(t, models.ErrCodeAuthFailed, toolErr.Code)
}

func TestJiraStatusWithoutCredentials(t *testing.T) {
	ts := NewToolset(fakeService(t), config.JiraConfig{}, stubValidator{})

	res, err := ts.Handle(context.Background(), mcp.ToolCall{Name: ToolJiraStatus})
	require.NoError(t, err)
	assert.True(t, res.IsError)
	assert.Contains(t, res.Text(), "not configured")
}

func doJSON(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRestToolHandler(t *testing.T) {
	r := chi.NewRouter()
	NewRestToolHandler(newTestToolset(t, stubValidator{})).RegisterRoutes(r)

	rec := doJSON(t, r, http.MethodGet, "/tools", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Tools []mcp.Tool `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed.Tools, 9)

	rec = doJSON(t, r, http.MethodPost, "/tools/get_ticket", map[string]any{"issue_key": "KAN-9"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"result":"Ticket KAN-9: Login page crashes - To Do"}`, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/tools/create_ticket", map[string]any{"project_key": "KAN"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"Missing required arguments","details":["summary","description"]}`, rec.Body.String())

	rec = doJSON(t, r, http.MethodPost, "/tools/search_tickets", map[string]any{"query": "project = NOPE"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), `"code":"API_ERROR"`)

	rec = doJSON(t, r, http.MethodPost, "/tools/delete_ticket", map[string]any{"issue_key": "KAN-1"})
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/tools/nope", map[string]any{})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func newChatRouter(t *testing.T) (chi.Router, storage.HistoryStore) {
	ts := newTestToolset(t, stubValidator{})
	dispatcher := assistant.NewDispatcher(mcp.NewLocalCaller(ts.Handle))
	store := storage.NewMemoryStore(50)

	r := chi.NewRouter()
	NewChatHandler(dispatcher, store, 50, nil).RegisterRoutes(r)
	return r, store
}

func decodeChat(t *testing.T, rec *httptest.ResponseRecorder) ChatResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestChatConversation(t *testing.T) {
	r, _ := newChatRouter(t)

	first := decodeChat(t, doJSON(t, r, http.MethodPost, "/chat", ChatRequest{
		Message: "Create a bug in KAN titled 'Login page crashes' with description 'The login page crashes on Safari'",
	}))
	require.NotEmpty(t, first.SessionID)
	assert.Equal(t, "create_ticket", first.Intent)
	assert.True(t, first.Result.Success)
	assert.Equal(t, "KAN-55", first.Result.TicketKey)
	assert.Contains(t, first.Reply, "Great! I've created the ticket for you:")

	second := decodeChat(t, doJSON(t, r, http.MethodPost, "/chat", ChatRequest{
		SessionID: first.SessionID,
		Message:   "get details for the ticket we just created",
	}))
	assert.Equal(t, "get_ticket_details", second.Intent)
	assert.Equal(t, "KAN-55", second.Result.TicketKey)
	assert.Contains(t, second.Reply, "Ticket KAN-55: Login page crashes - To Do")

	rec := doJSON(t, r, http.MethodGet, "/chat/"+first.SessionID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var history HistoryResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Turns, 4)
}

func TestChatSessionsAreIsolated(t *testing.T) {
	r, _ := newChatRouter(t)

	decodeChat(t, doJSON(t, r, http.MethodPost, "/chat", ChatRequest{
		SessionID: "a",
		Message:   "Create a bug in KAN titled 'Crash' with description 'It crashes'",
	}))
	other := decodeChat(t, doJSON(t, r, http.MethodPost, "/chat", ChatRequest{
		SessionID: "b",
		Message:   "get details for the ticket we just created",
	}))
	assert.Equal(t, string(assistant.KindAmbiguousReference), string(other.Result.Kind))
}

func TestChatSearchRemapsUnknownProject(t *testing.T) {
	r, _ := newChatRouter(t)

	resp := decodeChat(t, doJSON(t, r, http.MethodPost, "/chat/s1/search", SearchRequest{Query: "project = NOPE"}))
	assert.False(t, resp.Result.Success)
	assert.Equal(t, "Could not find the specified project. Please check the project key.", resp.Result.Message)
}

func TestChatFormCreate(t *testing.T) {
	r, store := newChatRouter(t)

	rec := doJSON(t, r, http.MethodPost, "/chat/s1/tickets", CreateTicketRequest{ProjectKey: "KAN"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeChat(t, doJSON(t, r, http.MethodPost, "/chat/s1/tickets", CreateTicketRequest{
		ProjectKey:  "KAN",
		Summary:     "Rotate keys",
		Description: "Keys expire soon",
		IssueType:   "Story",
	}))
	assert.True(t, resp.Result.Success)
	assert.Equal(t, "I've created a story ticket for you: Ticket created: KAN-55", resp.Reply)

	turns, err := store.Load(context.Background(), "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, "Create a story in KAN titled 'Rotate keys' with description 'Keys expire soon'", turns[0].Text)
}

func TestChatValidation(t *testing.T) {
	r, _ := newChatRouter(t)

	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/chat", ChatRequest{Message: "  "}).Code)
	assert.Equal(t, http.StatusBadRequest, doJSON(t, r, http.MethodPost, "/chat/s1/search", SearchRequest{}).Code)
	assert.Equal(t, http.StatusNotFound, doJSON(t, r, http.MethodGet, "/chat/unknown", nil).Code)
}

func TestChatSessionLocksAreReleased(t *testing.T) {
	h := NewChatHandler(assistant.NewDispatcher(nil), storage.NewMemoryStore(10), 10, nil)
	heldLocks := func() int {
		h.locksMu.Lock()
		defer h.locksMu.Unlock()
		return len(h.locks)
	}

	unlockFirst := h.lock("a")
	entered := make(chan struct{})
	go func() {
		unlock := h.lock("a")
		close(entered)
		unlock()
	}()

	select {
	case <-entered:
		t.Fatal("second request entered the session while the first held it")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, 1, heldLocks())

	unlockFirst()
	select {
	case <-entered:
	case <-time.After(time.Second):
		t.Fatal("second request never entered the session")
	}
	assert.Eventually(t, func() bool { return heldLocks() == 0 }, time.Second, 5*time.Millisecond)

	h.lock("b")()
	assert.Equal(t, 0, heldLocks())
}
