package catalog

import (
	"context"
	"time"
)

// Source is the read-only upstream catalog API.
type Source interface {
	ListProducts(ctx context.Context, page int) (ProductPage, error)
	ListStores(ctx context.Context) ([]string, error)
	GetStoreDetail(ctx context.Context, id string) (RawRecord, error)
	GetProductDetail(ctx context.Context, id string) (RawRecord, error)
	GetInventoryForProduct(ctx context.Context, id string) (Inventory, error)
}

// EntityStore persists normalized entities. Upsert is keyed by the entity's
// external identifier and idempotent per call.
type EntityStore interface {
	Upsert(ctx context.Context, kind Kind, entity Entity) error
	// MarkDead applies a logical tombstone to every id in ids.
	MarkDead(ctx context.Context, kind Kind, ids []string) error
	// MarkOrphanInventoryDead tombstones (and zeroes the quantity of) every
	// inventory row whose recorded crawl id differs from crawlID.
	MarkOrphanInventoryDead(ctx context.Context, crawlID string) error
	// CurrentIDs returns the live (not tombstoned) identifiers for a kind.
	CurrentIDs(ctx context.Context, kind Kind) (map[string]bool, error)
}

// SessionStore checkpoints crawl sessions so a crashed crawl can resume
// from the last saved queue position.
type SessionStore interface {
	Save(ctx context.Context, s *Session) error
	Load(ctx context.Context, id string) (*Session, bool, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
