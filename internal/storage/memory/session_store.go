package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"catalog-crawler/internal/catalog"
)

// SessionStore implements catalog.SessionStore with a map of serialized
// snapshots, mirroring how the durable stores behave.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
	saves    int
}

// NewSessionStore constructs a SessionStore.
func NewSessionStore() *SessionStore {
	return &SessionStore{sessions: map[string][]byte{}}
}

// Save checkpoints a deep copy of the session.
func (s *SessionStore) Save(_ context.Context, session *catalog.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = payload
	s.saves++
	return nil
}

// Load returns the last checkpointed state of a session.
func (s *SessionStore) Load(_ context.Context, id string) (*catalog.Session, bool, error) {
	s.mu.RLock()
	payload, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	var session catalog.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, true, nil
}

// Saves reports how many checkpoints were written.
func (s *SessionStore) Saves() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves
}
