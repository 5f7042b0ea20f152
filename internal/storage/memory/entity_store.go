// Package memory provides in-memory store implementations for development
// and testing.
package memory

import (
	"context"
	"fmt"
	"sync"

	"catalog-crawler/internal/catalog"
)

// EntityStore implements catalog.EntityStore with maps.
type EntityStore struct {
	mu       sync.RWMutex
	entities map[catalog.Kind]map[string]catalog.Entity
	dead     map[catalog.Kind]map[string]bool
}

// NewEntityStore constructs an EntityStore.
func NewEntityStore() *EntityStore {
	return &EntityStore{
		entities: map[catalog.Kind]map[string]catalog.Entity{},
		dead:     map[catalog.Kind]map[string]bool{},
	}
}

// Upsert stores an entity keyed by its external identifier and clears any
// tombstone on it.
func (s *EntityStore) Upsert(_ context.Context, kind catalog.Kind, entity catalog.Entity) error {
	key, err := entityKey(kind, entity)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entities[kind] == nil {
		s.entities[kind] = map[string]catalog.Entity{}
		s.dead[kind] = map[string]bool{}
	}
	stored := make(catalog.Entity, len(entity))
	for k, v := range entity {
		stored[k] = v
	}
	s.entities[kind][key] = stored
	delete(s.dead[kind], key)
	return nil
}

// MarkDead tombstones every id in ids. Already-dead ids stay dead, so
// repeated reconciliation is a no-op.
func (s *EntityStore) MarkDead(_ context.Context, kind catalog.Kind, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead[kind] == nil {
		s.dead[kind] = map[string]bool{}
	}
	for _, id := range ids {
		s.dead[kind][id] = true
	}
	return nil
}

// MarkOrphanInventoryDead tombstones, and zeroes the quantity of, every
// inventory row whose crawl id differs from crawlID.
func (s *EntityStore) MarkOrphanInventoryDead(_ context.Context, crawlID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dead[catalog.KindInventory] == nil {
		s.dead[catalog.KindInventory] = map[string]bool{}
	}
	for key, entity := range s.entities[catalog.KindInventory] {
		if entity["crawl_id"] == crawlID {
			continue
		}
		entity["quantity"] = int64(0)
		s.dead[catalog.KindInventory][key] = true
	}
	return nil
}

// CurrentIDs returns the live identifiers for a kind.
func (s *EntityStore) CurrentIDs(_ context.Context, kind catalog.Kind) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := map[string]bool{}
	for id := range s.entities[kind] {
		if !s.dead[kind][id] {
			ids[id] = true
		}
	}
	return ids, nil
}

// Get returns a stored entity and whether it is tombstoned.
func (s *EntityStore) Get(kind catalog.Kind, id string) (catalog.Entity, bool, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entity, ok := s.entities[kind][id]
	if !ok {
		return nil, false, false
	}
	return entity, s.dead[kind][id], true
}

func entityKey(kind catalog.Kind, entity catalog.Entity) (string, error) {
	if kind == catalog.KindInventory {
		product, _ := entity["product_id"].(string)
		store, _ := entity["store_id"].(string)
		if product == "" || store == "" {
			return "", fmt.Errorf("inventory entity missing product_id/store_id")
		}
		return product + "/" + store, nil
	}
	id, _ := entity["id"].(string)
	if id == "" {
		return "", fmt.Errorf("%s entity missing id", kind)
	}
	return id, nil
}
