package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog-crawler/internal/catalog"
)

// SessionStore implements catalog.SessionStore on Postgres. It assumes a
// schema like:
//
//	CREATE TABLE crawl_sessions (
//	    id TEXT PRIMARY KEY,
//	    status TEXT NOT NULL,
//	    state JSONB NOT NULL,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
type SessionStore struct {
	pool dbPool
}

// NewSessionStore connects a pool and wraps it in a SessionStore.
func NewSessionStore(ctx context.Context, dsn string) (*SessionStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &SessionStore{pool: pool}, nil
}

// NewSessionStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewSessionStoreWithPool(pool dbPool) *SessionStore {
	return &SessionStore{pool: pool}
}

// Close closes the underlying connection pool.
func (s *SessionStore) Close() {
	s.pool.Close()
}

// Save checkpoints the full session state.
func (s *SessionStore) Save(ctx context.Context, session *catalog.Session) error {
	state, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	query := `
		INSERT INTO crawl_sessions (id, status, state, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (id) DO UPDATE
		SET status = EXCLUDED.status,
		    state = EXCLUDED.state,
		    updated_at = NOW();
	`
	if _, err := s.pool.Exec(ctx, query, session.ID, string(session.Status), state); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Load returns the last checkpointed state of a session.
func (s *SessionStore) Load(ctx context.Context, id string) (*catalog.Session, bool, error) {
	var state []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM crawl_sessions WHERE id = $1;`, id).Scan(&state)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}
	var session catalog.Session
	if err := json.Unmarshal(state, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, true, nil
}
