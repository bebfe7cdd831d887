package mcp

import (
	"fmt"
	"io"
	"net/http"
	"time"
)

// SSEServer implements MCP over HTTP: JSON-RPC requests are POSTed to the
// message endpoint and the SSE stream announces where that endpoint is.
type SSEServer struct {
	server          *Server
	handler         Handler
	messageEndpoint string
	keepAlive       time.Duration
}

// NewSSEServer creates a new SSE-based MCP server
func NewSSEServer(server *Server, handler Handler, messageEndpoint string) *SSEServer {
	if messageEndpoint == "" {
		messageEndpoint = "/message"
	}
	return &SSEServer{
		server:          server,
		handler:         handler,
		messageEndpoint: messageEndpoint,
		keepAlive:       25 * time.Second,
	}
}

// HandleSSE opens the event stream and keeps it alive until the client leaves
func (s *SSEServer) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: endpoint\ndata: %s\n\n", s.messageEndpoint)
	flusher.Flush()

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

// HandleMessage answers one POSTed JSON-RPC message
func (s *SSEServer) HandleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 4*1024*1024))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	out := s.server.HandleMessage(r.Context(), s.handler, body)
	if out == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(out)
}
