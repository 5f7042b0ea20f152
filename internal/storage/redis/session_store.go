// Package redis provides a Redis-backed session checkpoint store. Sessions
// are checkpointed after every job, so writes are kept to a single SET.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"catalog-crawler/internal/catalog"
)

// SessionStore stores serialized crawl sessions under a prefixed key.
type SessionStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewSessionStore initializes a Redis-backed SessionStore.
func NewSessionStore(addr, prefix string, ttl time.Duration) *SessionStore {
	if prefix == "" {
		prefix = "catalog:session:"
	}
	return &SessionStore{
		client: redis.NewClient(&redis.Options{Addr: addr}),
		prefix: prefix,
		ttl:    ttl,
	}
}

// Close closes the Redis client.
func (s *SessionStore) Close() error {
	return s.client.Close()
}

// Save writes the session snapshot to Redis.
func (s *SessionStore) Save(ctx context.Context, session *catalog.Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("marshal session %s: %w", session.ID, err)
	}
	if err := s.client.Set(ctx, s.key(session.ID), payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("save session %s: %w", session.ID, err)
	}
	return nil
}

// Load reads the session snapshot from Redis.
func (s *SessionStore) Load(ctx context.Context, id string) (*catalog.Session, bool, error) {
	val, err := s.client.Get(ctx, s.key(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("load session %s: %w", id, err)
	}
	var session catalog.Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return nil, false, fmt.Errorf("unmarshal session %s: %w", id, err)
	}
	return &session, true, nil
}

func (s *SessionStore) key(id string) string {
	return s.prefix + id
}
