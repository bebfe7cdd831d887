package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/providentiaww/jira-assistant-mcp/pkg/mcp"
)

// RestToolHandler exposes MCP tools as plain REST endpoints
type RestToolHandler struct {
	tools *Toolset
}

// NewRestToolHandler creates a new REST tool handler
func NewRestToolHandler(tools *Toolset) *RestToolHandler {
	return &RestToolHandler{tools: tools}
}

// RegisterRoutes mounts GET /tools and POST /tools/{name}
func (h *RestToolHandler) RegisterRoutes(r chi.Router) {
	r.Get("/tools", h.HandleListTools)
	r.Post("/tools/{name}", h.HandleToolRequest)
}

type toolErrorBody struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Details []string `json:"details,omitempty"`
}

// HandleListTools handles GET /api/tools
func (h *RestToolHandler) HandleListTools(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tools": h.tools.Tools()})
}

// HandleToolRequest handles POST /api/tools/{name}; the body is the argument
// object.
func (h *RestToolHandler) HandleToolRequest(w http.ResponseWriter, r *http.Request) {
	toolName := chi.URLParam(r, "name")
	tool, ok := h.tools.Lookup(toolName)
	if !ok {
		writeJSON(w, http.StatusNotFound, toolErrorBody{Error: "Unknown tool: " + toolName})
		return
	}

	arguments := map[string]any{}
	if err := json.NewDecoder(r.Body).Decode(&arguments); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Invalid request body"})
		return
	}

	var missing []string
	for _, name := range tool.Required() {
		if v, ok := arguments[name]; !ok || v == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, toolErrorBody{Error: "Missing required arguments", Details: missing})
		return
	}

	result, err := h.tools.Handle(r.Context(), mcp.ToolCall{Name: toolName, Arguments: arguments})
	if err != nil {
		writeJSON(w, http.StatusBadGateway, toolErrorBody{Error: err.Error()})
		return
	}

	if toolErr, ok := result.Err(toolName).(*mcp.ToolError); ok {
		writeJSON(w, http.StatusUnprocessableEntity, toolErrorBody{
			Error:   toolErr.Message,
			Code:    toolErr.Code,
			Details: toolErr.Details,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"result": result.Text()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
