package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
)

// FileStore keeps all sessions in one JSON file. It suits a single local
// process such as the CLI chat.
type FileStore struct {
	filePath string
	limit    int
	sessions map[string][]assistant.Turn
	mu       sync.RWMutex
}

// NewFileStore opens or creates the history file at filePath
func NewFileStore(filePath string, limit int) (*FileStore, error) {
	if limit <= 0 {
		limit = assistant.DefaultHistoryLimit
	}
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, err
	}
	store := &FileStore{
		filePath: absPath,
		limit:    limit,
		sessions: make(map[string][]assistant.Turn),
	}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load history file: %w", err)
	}
	return store, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, &s.sessions)
}

// saveToFile writes through a temp file so a crash never leaves half a file
func (s *FileStore) saveToFile() error {
	data, err := json.MarshalIndent(s.sessions, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}
	tmp := s.filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.filePath)
}

func (s *FileStore) Load(_ context.Context, sessionID string, limit int) ([]assistant.Turn, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	turns, ok := s.sessions[sessionID]
	if !ok || len(turns) == 0 {
		return nil, ErrNotFound
	}
	return tail(turns, limit), nil
}

func (s *FileStore) Append(_ context.Context, sessionID string, turns ...assistant.Turn) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = tail(append(s.sessions[sessionID], turns...), s.limit)
	return s.saveToFile()
}

func (s *FileStore) Ping(context.Context) error {
	_, err := os.Stat(filepath.Dir(s.filePath))
	return err
}

func (s *FileStore) Close() error { return nil }
