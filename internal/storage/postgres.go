package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/providentiaww/jira-assistant-mcp/internal/assistant"
)

// PostgresOptions tunes the connection pool and retention
type PostgresOptions struct {
	// Limit caps the rows kept per session; zero keeps everything.
	Limit           int
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// PostgresStore keeps turns in the conversation_turns table
type PostgresStore struct {
	db    *sqlx.DB
	limit int
}

type turnRow struct {
	Role      string    `db:"role"`
	Text      string    `db:"text"`
	CreatedAt time.Time `db:"created_at"`
}

// NewPostgresStore connects, sizes the pool and creates the schema
func NewPostgresStore(ctx context.Context, connectionString string, opts PostgresOptions) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	store := &PostgresStore{db: db, limit: opts.Limit}
	if err := store.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	slog.Info("connected to postgres history store")
	return store, nil
}

func (s *PostgresStore) initSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS conversation_turns (
		id BIGSERIAL PRIMARY KEY,
		session_id VARCHAR(255) NOT NULL,
		role VARCHAR(16) NOT NULL,
		text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE INDEX IF NOT EXISTS idx_conversation_turns_session ON conversation_turns(session_id, id);
	`
	_, err := s.db.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) Load(ctx context.Context, sessionID string, limit int) ([]assistant.Turn, error) {
	if limit <= 0 {
		limit = assistant.DefaultHistoryLimit
	}
	query := `
		SELECT role, text, created_at FROM (
			SELECT id, role, text, created_at
			FROM conversation_turns
			WHERE session_id = $1
			ORDER BY id DESC
			LIMIT $2
		) newest
		ORDER BY id ASC`

	var rows []turnRow
	if err := s.db.SelectContext(ctx, &rows, query, sessionID, limit); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNotFound
	}

	turns := make([]assistant.Turn, len(rows))
	for i, r := range rows {
		turns[i] = assistant.Turn{Role: assistant.Role(r.Role), Text: r.Text, CreatedAt: r.CreatedAt}
	}
	return turns, nil
}

func (s *PostgresStore) Append(ctx context.Context, sessionID string, turns ...assistant.Turn) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `INSERT INTO conversation_turns (session_id, role, text, created_at) VALUES ($1, $2, $3, $4)`
	for _, t := range turns {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, query, sessionID, string(t.Role), t.Text, createdAt); err != nil {
			return err
		}
	}

	if s.limit > 0 {
		trim := `
			DELETE FROM conversation_turns
			WHERE session_id = $1 AND id NOT IN (
				SELECT id FROM conversation_turns
				WHERE session_id = $1
				ORDER BY id DESC
				LIMIT $2
			)`
		if _, err := tx.ExecContext(ctx, trim, sessionID, s.limit); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
