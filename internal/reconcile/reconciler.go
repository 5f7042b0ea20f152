// Package reconcile computes removed-entity sets after a completed crawl
// and instructs the entity store to tombstone them.
package reconcile

import (
	"context"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"catalog-crawler/internal/catalog"
	"catalog-crawler/internal/metrics"
)

// Reconciler diffs the store's live id sets against a session's crawled-id
// sets. It performs only set arithmetic and delegated bulk updates; store
// failures propagate as fatal.
type Reconciler struct {
	entities catalog.EntityStore
	logger   *zap.Logger
}

// New constructs a Reconciler.
func New(entities catalog.EntityStore, logger *zap.Logger) *Reconciler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reconciler{entities: entities, logger: logger}
}

// Run tombstones, for each kind, every previously live id absent from the
// session's crawled set, then sweeps orphaned inventory rows whose crawl id
// does not match the session. It must not run concurrently with draining.
func (r *Reconciler) Run(ctx context.Context, s *catalog.Session) error {
	if s.Status != catalog.SessionCompleted {
		return fmt.Errorf("session %s is %s, reconciliation requires a completed session", s.ID, s.Status)
	}

	for _, kind := range []catalog.Kind{catalog.KindProduct, catalog.KindStore} {
		previous, err := r.entities.CurrentIDs(ctx, kind)
		if err != nil {
			return fmt.Errorf("list current %s ids: %w", kind, err)
		}
		removed := diff(previous, s.CrawledIDs(kind))
		if len(removed) == 0 {
			continue
		}
		if err := r.entities.MarkDead(ctx, kind, removed); err != nil {
			return fmt.Errorf("mark %d %s entities dead: %w", len(removed), kind, err)
		}
		metrics.EntitiesRetired(string(kind), len(removed))
		r.logger.Info("entities retired",
			zap.String("session_id", s.ID),
			zap.String("kind", string(kind)),
			zap.Int("count", len(removed)),
		)
	}

	if err := r.entities.MarkOrphanInventoryDead(ctx, s.ID); err != nil {
		return fmt.Errorf("sweep orphan inventory: %w", err)
	}
	return nil
}

// diff returns previous − crawled, sorted for deterministic bulk updates.
func diff(previous, crawled map[string]bool) []string {
	var removed []string
	for id := range previous {
		if !crawled[id] {
			removed = append(removed, id)
		}
	}
	sort.Strings(removed)
	return removed
}
