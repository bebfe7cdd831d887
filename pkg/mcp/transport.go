package mcp

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"sync"
	"time"
)

// StreamTransport exchanges line-delimited JSON-RPC over a reader/writer pair
type StreamTransport struct {
	w     io.WriteCloser
	lines chan []byte
	mu    sync.Mutex

	errMu   sync.Mutex
	readErr error
}

// NewStreamTransport starts reading responses from r
func NewStreamTransport(r io.Reader, w io.WriteCloser) *StreamTransport {
	t := &StreamTransport{w: w, lines: make(chan []byte, 16)}
	go t.readLoop(r)
	return t
}

func (t *StreamTransport) readLoop(r io.Reader) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		t.lines <- append([]byte(nil), line...)
	}
	t.errMu.Lock()
	t.readErr = scanner.Err()
	if t.readErr == nil {
		t.readErr = io.EOF
	}
	t.errMu.Unlock()
	close(t.lines)
}

func (t *StreamTransport) write(msg json.RawMessage) error {
	if _, err := t.w.Write(append(append([]byte(nil), msg...), '\n')); err != nil {
		return fmt.Errorf("mcp stdio: write: %w", err)
	}
	return nil
}

// Send writes msg and waits for the response carrying the same id. Lines
// with other ids, such as replies to abandoned requests, are dropped.
func (t *StreamTransport) Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error) {
	var head struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &head); err != nil || len(head.ID) == 0 {
		return nil, errors.New("mcp stdio: request has no id")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.write(msg); err != nil {
		return nil, err
	}

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case line, ok := <-t.lines:
			if !ok {
				t.errMu.Lock()
				defer t.errMu.Unlock()
				return nil, fmt.Errorf("mcp stdio: read: %w", t.readErr)
			}
			var reply struct {
				ID json.RawMessage `json:"id"`
			}
			if json.Unmarshal(line, &reply) == nil && bytes.Equal(reply.ID, head.ID) {
				return json.RawMessage(line), nil
			}
		}
	}
}

// Notify writes msg without waiting for a reply
func (t *StreamTransport) Notify(ctx context.Context, msg json.RawMessage) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.write(msg)
}

// Close closes the write side
func (t *StreamTransport) Close() error {
	return t.w.Close()
}

// StdioTransport communicates with an MCP server via stdin/stdout of a spawned process.
type StdioTransport struct {
	*StreamTransport
	cmd *exec.Cmd
}

// NewStdioTransport spawns a process and returns a transport.
func NewStdioTransport(ctx context.Context, command string, args []string, env []string) (*StdioTransport, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	if len(env) > 0 {
		cmd.Env = env
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("mcp stdio: stdin pipe: %w", err)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("mcp stdio: stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("mcp stdio: start %q: %w", command, err)
	}

	return &StdioTransport{
		StreamTransport: NewStreamTransport(stdout, stdin),
		cmd:             cmd,
	}, nil
}

// Close closes stdin and waits for the process to exit
func (t *StdioTransport) Close() error {
	t.StreamTransport.Close()
	return t.cmd.Wait()
}

// HTTPTransport communicates with an MCP server via HTTP POST.
type HTTPTransport struct {
	url    string
	token  string
	client *http.Client
}

// NewHTTPTransport creates a transport that POSTs JSON-RPC to the given URL.
// A non-empty token is sent as a bearer token.
func NewHTTPTransport(url, token string) *HTTPTransport {
	return &HTTPTransport{
		url:    url,
		token:  token,
		client: &http.Client{Timeout: 60 * time.Second},
	}
}

func (t *HTTPTransport) post(ctx context.Context, msg json.RawMessage) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(msg))
	if err != nil {
		return 0, nil, fmt.Errorf("mcp http: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if t.token != "" {
		req.Header.Set("Authorization", "Bearer "+t.token)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("mcp http: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("mcp http: read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

// Send posts msg and returns the response body
func (t *HTTPTransport) Send(ctx context.Context, msg json.RawMessage) (json.RawMessage, error) {
	status, body, err := t.post(ctx, msg)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("mcp http: status %d: %s", status, string(body))
	}
	return json.RawMessage(body), nil
}

// Notify posts msg and accepts any 2xx answer
func (t *HTTPTransport) Notify(ctx context.Context, msg json.RawMessage) error {
	status, body, err := t.post(ctx, msg)
	if err != nil {
		return err
	}
	if status < 200 || status > 299 {
		return fmt.Errorf("mcp http: status %d: %s", status, string(body))
	}
	return nil
}

// Close is a no-op for HTTP
func (t *HTTPTransport) Close() error { return nil }
