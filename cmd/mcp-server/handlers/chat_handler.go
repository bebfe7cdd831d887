package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
	"github.com/providentiaww/jira-assistant-mcp/internal/storage"
)

// ChatHandler serves the conversational assistant over HTTP. Histories live
// in the store; each request rebuilds the session from it.
type ChatHandler struct {
	dispatcher   *assistant.Dispatcher
	store        storage.HistoryStore
	historyLimit int
	logger       *slog.Logger

	locksMu sync.Mutex
	locks   map[string]*sessionLock
}

// sessionLock is dropped from the map once nobody holds or waits on it
type sessionLock struct {
	mu   sync.Mutex
	refs int
}

// NewChatHandler creates a chat handler
func NewChatHandler(dispatcher *assistant.Dispatcher, store storage.HistoryStore, historyLimit int, logger *slog.Logger) *ChatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if historyLimit <= 0 {
		historyLimit = assistant.DefaultHistoryLimit
	}
	return &ChatHandler{
		dispatcher:   dispatcher,
		store:        store,
		historyLimit: historyLimit,
		logger:       logger,
		locks:        make(map[string]*sessionLock),
	}
}

// RegisterRoutes mounts the chat endpoints
func (h *ChatHandler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.HandleMessage)
	r.Get("/chat/{sessionID}", h.HandleHistory)
	r.Post("/chat/{sessionID}/tickets", h.HandleCreateTicket)
	r.Post("/chat/{sessionID}/search", h.HandleSearch)
}

// ChatRequest is the body of POST /api/chat
type ChatRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// CreateTicketRequest is the body of POST /api/chat/{sessionID}/tickets
type CreateTicketRequest struct {
	ProjectKey  string `json:"project_key"`
	Summary     string `json:"summary"`
	Description string `json:"description"`
	IssueType   string `json:"issue_type,omitempty"`
	Assignee    string `json:"assignee,omitempty"`
}

// SearchRequest is the body of POST /api/chat/{sessionID}/search
type SearchRequest struct {
	Query string `json:"query"`
}

// ChatResponse is returned by every write endpoint
type ChatResponse struct {
	SessionID string               `json:"session_id"`
	Intent    string               `json:"intent"`
	Reply     string               `json:"reply"`
	Result    assistant.ToolResult `json:"result"`
}

// HistoryResponse is returned by GET /api/chat/{sessionID}
type HistoryResponse struct {
	SessionID string           `json:"session_id"`
	Turns     []assistant.Turn `json:"turns"`
}

// HandleMessage handles POST /api/chat. A request without session_id starts
// a new conversation.
func (h *ChatHandler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "message is required"})
		return
	}
	if req.SessionID == "" {
		req.SessionID = uuid.NewString()
	}

	h.withSession(w, r, req.SessionID, func(ctx context.Context, s *assistant.Session) assistant.Reply {
		return s.Respond(ctx, req.Message)
	})
}

// HandleCreateTicket handles POST /api/chat/{sessionID}/tickets
func (h *ChatHandler) HandleCreateTicket(w http.ResponseWriter, r *http.Request) {
	var req CreateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Invalid request body"})
		return
	}

	draft := assistant.TicketDraft{
		ProjectKey:  strings.TrimSpace(req.ProjectKey),
		Summary:     strings.TrimSpace(req.Summary),
		Description: strings.TrimSpace(req.Description),
		IssueType:   strings.TrimSpace(req.IssueType),
		Assignee:    strings.TrimSpace(req.Assignee),
	}
	if missing := draft.Missing(); len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Missing required fields", Details: missing})
		return
	}

	h.withSession(w, r, chi.URLParam(r, "sessionID"), func(ctx context.Context, s *assistant.Session) assistant.Reply {
		return s.CreateFromForm(ctx, draft)
	})
}

// HandleSearch handles POST /api/chat/{sessionID}/search
func (h *ChatHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "query is required"})
		return
	}

	h.withSession(w, r, chi.URLParam(r, "sessionID"), func(ctx context.Context, s *assistant.Session) assistant.Reply {
		return s.SearchJQL(ctx, req.Query)
	})
}

// HandleHistory handles GET /api/chat/{sessionID}
func (h *ChatHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	turns, err := h.store.Load(r.Context(), sessionID, h.historyLimit)
	if errors.Is(err, storage.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, toolErrorBody{Error: "session not found"})
		return
	}
	if err != nil {
		h.logger.Error("loading history failed", slog.String("session_id", sessionID), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, toolErrorBody{Error: "failed to load history"})
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{SessionID: sessionID, Turns: turns})
}

func (h *ChatHandler) lock(sessionID string) func() {
	h.locksMu.Lock()
	l, ok := h.locks[sessionID]
	if !ok {
		l = &sessionLock{}
		h.locks[sessionID] = l
	}
	l.refs++
	h.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		h.locksMu.Lock()
		if l.refs--; l.refs == 0 {
			delete(h.locks, sessionID)
		}
		h.locksMu.Unlock()
	}
}

// withSession serializes requests per session, rebuilds the session from the
// store, runs fn and persists the turns it produced.
func (h *ChatHandler) withSession(w http.ResponseWriter, r *http.Request, sessionID string, fn func(context.Context, *assistant.Session) assistant.Reply) {
	unlock := h.lock(sessionID)
	defer unlock()

	ctx := r.Context()
	turns, err := h.store.Load(ctx, sessionID, h.historyLimit)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		h.logger.Error("loading history failed", slog.String("session_id", sessionID), slog.Any("error", err))
		writeJSON(w, http.StatusInternalServerError, toolErrorBody{Error: "failed to load history"})
		return
	}

	session := assistant.NewSession(sessionID, h.dispatcher, assistant.NewHistory(h.historyLimit, turns...))
	start := time.Now()
	reply := fn(ctx, session)

	if len(reply.Turns) > 0 {
		if err := h.store.Append(ctx, sessionID, reply.Turns...); err != nil {
			h.logger.Error("saving history failed", slog.String("session_id", sessionID), slog.Any("error", err))
		}
	}

	h.logger.Info("chat turn",
		slog.String("session_id", sessionID),
		slog.String("intent", reply.Intent.String()),
		slog.String("outcome", reply.Result.Outcome()),
		slog.Duration("elapsed", time.Since(start)))

	writeJSON(w, http.StatusOK, ChatResponse{
		SessionID: sessionID,
		Intent:    reply.Intent.String(),
		Reply:     reply.Text,
		Result:    reply.Result,
	})
}
