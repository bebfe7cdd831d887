package assistant

import (
	"regexp"
	"sync"
	"time"
)

// Role says who produced a turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. Turns are values and are never
// modified after they are appended.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// DefaultHistoryLimit is the number of turns a history keeps by default
const DefaultHistoryLimit = 200

// History is an append-only conversation log bounded as a ring buffer:
// once full, each append drops the oldest turn.
type History struct {
	mu    sync.RWMutex
	turns []Turn
	start int
	size  int
}

// NewHistory creates a history holding at most limit turns, seeded with
// initial (oldest first). A limit <= 0 uses DefaultHistoryLimit.
func NewHistory(limit int, initial ...Turn) *History {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	h := &History{turns: make([]Turn, limit)}
	for _, t := range initial {
		h.Append(t)
	}
	return h
}

// Append adds a turn at the newest end
func (h *History) Append(t Turn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	limit := len(h.turns)
	if h.size < limit {
		h.turns[(h.start+h.size)%limit] = t
		h.size++
		return
	}
	h.turns[h.start] = t
	h.start = (h.start + 1) % limit
}

// Len is the number of retained turns
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

// Limit is the retention capacity
func (h *History) Limit() int {
	return len(h.turns)
}

// Turns returns the retained turns, oldest first
func (h *History) Turns() []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]Turn, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.turns[(h.start+i)%len(h.turns)]
	}
	return out
}

var createdTicketPattern = regexp.MustCompile(`Ticket created: ([A-Z][A-Z0-9]*-\d+)`)

// LastCreatedTicketID scans newest to oldest for an assistant turn reporting
// "Ticket created: KEY" and returns that key.
func (h *History) LastCreatedTicketID() (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for i := h.size - 1; i >= 0; i-- {
		t := h.turns[(h.start+i)%len(h.turns)]
		if t.Role != RoleAssistant {
			continue
		}
		if m := createdTicketPattern.FindStringSubmatch(t.Text); m != nil {
			return m[1], true
		}
	}
	return "", false
}
