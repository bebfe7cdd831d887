package storage

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
)

// HistoryStore persists conversation turns per chat session
type HistoryStore interface {
	// Load returns up to limit of the newest turns, oldest first.
	// A session with no turns yields ErrNotFound.
	Load(ctx context.Context, sessionID string, limit int) ([]assistant.Turn, error)
	Append(ctx context.Context, sessionID string, turns ...assistant.Turn) error
	Ping(ctx context.Context) error
	Close() error
}

var ErrNotFound = &NotFoundError{}

type NotFoundError struct{}

func (e *NotFoundError) Error() string {
	return "session not found"
}

// MemoryStore keeps histories in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]assistant.Turn
	limit    int
}

// NewMemoryStore creates a store keeping at most limit turns per session
func NewMemoryStore(limit int) *MemoryStore {
	if limit <= 0 {
		limit = assistant.DefaultHistoryLimit
	}
	return &MemoryStore{sessions: make(map[string][]assistant.Turn), limit: limit}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string, limit int) ([]assistant.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[sessionID]
	if !ok || len(turns) == 0 {
		return nil, ErrNotFound
	}
	return tail(turns, limit), nil
}

func (s *MemoryStore) Append(_ context.Context, sessionID string, turns ...assistant.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = tail(append(s.sessions[sessionID], turns...), s.limit)
	return nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

// tail copies the newest limit turns
func tail(turns []assistant.Turn, limit int) []assistant.Turn {
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	return append([]assistant.Turn(nil), turns...)
}

// Options selects and sizes a history backend
type Options struct {
	DatabaseURL string
	RedisURL    string
	HistoryFile string
	// Limit caps the turns kept per session where the backend trims.
	Limit int
	// TTL expires idle Redis sessions; zero keeps them.
	TTL time.Duration
}

// NewHistoryStore picks a backend: DatabaseURL selects Postgres, then
// RedisURL selects Redis, then HistoryFile selects a JSON file. Otherwise
// history lives in memory.
func NewHistoryStore(ctx context.Context, opts Options) (HistoryStore, error) {
	switch {
	case opts.DatabaseURL != "":
		return NewPostgresStore(ctx, opts.DatabaseURL, PostgresOptions{
			Limit:           opts.Limit,
			MaxOpenConns:    parseEnvInt("HISTORY_DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    parseEnvInt("HISTORY_DB_MAX_IDLE_CONNS", 2),
			ConnMaxLifetime: parseEnvDuration("HISTORY_DB_CONN_MAX_LIFETIME", 5*time.Minute),
		})
	case opts.RedisURL != "":
		return NewRedisStore(ctx, opts.RedisURL, opts.Limit, opts.TTL)
	case opts.HistoryFile != "":
		return NewFileStore(opts.HistoryFile, opts.Limit)
	default:
		return NewMemoryStore(opts.Limit), nil
	}
}

func parseEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func parseEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("jira-assistant:history:%s", sessionID)
}
