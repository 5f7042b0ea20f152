// Package postgres provides Postgres-backed persistence implementations.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"catalog-crawler/internal/catalog"
)

// dbPool is the slice of pgxpool.Pool the stores need; pgxmock satisfies it
// in tests.
type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// EntityStore implements catalog.EntityStore on Postgres. It assumes a
// schema like:
//
//	CREATE TABLE products (
//	    id TEXT PRIMARY KEY,
//	    fields JSONB NOT NULL,
//	    is_dead BOOLEAN NOT NULL DEFAULT FALSE,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
//	);
//	-- stores: identical shape
//	CREATE TABLE inventories (
//	    product_id TEXT NOT NULL,
//	    store_id TEXT NOT NULL,
//	    quantity BIGINT NOT NULL,
//	    crawl_id TEXT NOT NULL,
//	    fields JSONB NOT NULL,
//	    is_dead BOOLEAN NOT NULL DEFAULT FALSE,
//	    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
//	    PRIMARY KEY (product_id, store_id)
//	);
type EntityStore struct {
	pool dbPool
}

// NewEntityStore connects a pool and wraps it in an EntityStore.
func NewEntityStore(ctx context.Context, dsn string) (*EntityStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &EntityStore{pool: pool}, nil
}

// NewEntityStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewEntityStoreWithPool(pool dbPool) *EntityStore {
	return &EntityStore{pool: pool}
}

// Close closes the underlying connection pool.
func (s *EntityStore) Close() {
	s.pool.Close()
}

// Upsert inserts or replaces one entity row, clearing any tombstone.
func (s *EntityStore) Upsert(ctx context.Context, kind catalog.Kind, entity catalog.Entity) error {
	fields, err := json.Marshal(entity)
	if err != nil {
		return fmt.Errorf("marshal %s entity: %w", kind, err)
	}

	if kind == catalog.KindInventory {
		query := `
			INSERT INTO inventories (product_id, store_id, quantity, crawl_id, fields, is_dead, updated_at)
			VALUES ($1, $2, $3, $4, $5, FALSE, NOW())
			ON CONFLICT (product_id, store_id) DO UPDATE
			SET quantity = EXCLUDED.quantity,
			    crawl_id = EXCLUDED.crawl_id,
			    fields = EXCLUDED.fields,
			    is_dead = FALSE,
			    updated_at = NOW();
		`
		productID, _ := entity["product_id"].(string)
		storeID, _ := entity["store_id"].(string)
		if productID == "" || storeID == "" {
			return fmt.Errorf("inventory entity missing product_id/store_id")
		}
		quantity, _ := entity["quantity"].(int64)
		crawlID, _ := entity["crawl_id"].(string)
		if _, err := s.pool.Exec(ctx, query, productID, storeID, quantity, crawlID, fields); err != nil {
			return fmt.Errorf("upsert inventory %s/%s: %w", productID, storeID, err)
		}
		return nil
	}

	table, err := kindTable(kind)
	if err != nil {
		return err
	}
	id, _ := entity["id"].(string)
	if id == "" {
		return fmt.Errorf("%s entity missing id", kind)
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, fields, is_dead, updated_at)
		VALUES ($1, $2, FALSE, NOW())
		ON CONFLICT (id) DO UPDATE
		SET fields = EXCLUDED.fields,
		    is_dead = FALSE,
		    updated_at = NOW();
	`, table)
	if _, err := s.pool.Exec(ctx, query, id, fields); err != nil {
		return fmt.Errorf("upsert %s %s: %w", kind, id, err)
	}
	return nil
}

// MarkDead applies a logical tombstone to every id in ids.
func (s *EntityStore) MarkDead(ctx context.Context, kind catalog.Kind, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	table, err := kindTable(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`UPDATE %s SET is_dead = TRUE, updated_at = NOW() WHERE id = ANY($1);`, table)
	if _, err := s.pool.Exec(ctx, query, ids); err != nil {
		return fmt.Errorf("mark %s dead: %w", kind, err)
	}
	return nil
}

// MarkOrphanInventoryDead tombstones and zeroes every inventory row whose
// crawl id does not match crawlID.
func (s *EntityStore) MarkOrphanInventoryDead(ctx context.Context, crawlID string) error {
	query := `
		UPDATE inventories
		SET is_dead = TRUE, quantity = 0, updated_at = NOW()
		WHERE crawl_id <> $1 AND NOT is_dead;
	`
	if _, err := s.pool.Exec(ctx, query, crawlID); err != nil {
		return fmt.Errorf("sweep orphan inventory: %w", err)
	}
	return nil
}

// CurrentIDs returns the live identifiers for a kind.
func (s *EntityStore) CurrentIDs(ctx context.Context, kind catalog.Kind) (map[string]bool, error) {
	table, err := kindTable(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE NOT is_dead;`, table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s ids: %w", kind, err)
	}
	defer rows.Close()

	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", kind, err)
		}
		ids[id] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s ids: %w", kind, err)
	}
	return ids, nil
}

func kindTable(kind catalog.Kind) (string, error) {
	switch kind {
	case catalog.KindProduct:
		return "products", nil
	case catalog.KindStore:
		return "stores", nil
	default:
		return "", fmt.Errorf("no table for kind %q", kind)
	}
}
