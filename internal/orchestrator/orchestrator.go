// Package orchestrator drives a crawl session from queue population
// through draining.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"catalog-crawler/internal/catalog"
	"catalog-crawler/internal/clock/system"
	"catalog-crawler/internal/metrics"
	"catalog-crawler/internal/reducer"
	"catalog-crawler/internal/transform"
)

// Orchestrator owns one crawl session at a time: it populates the job
// queue from the listings, drains it strictly sequentially, and checkpoints
// the session after every state-changing step.
type Orchestrator struct {
	source   catalog.Source
	entities catalog.EntityStore
	sessions catalog.SessionStore
	engine   *transform.Engine
	clock    catalog.Clock
	logger   *zap.Logger
}

// New constructs an Orchestrator.
func New(
	source catalog.Source,
	entities catalog.EntityStore,
	sessions catalog.SessionStore,
	engine *transform.Engine,
	clock catalog.Clock,
	logger *zap.Logger,
) *Orchestrator {
	if clock == nil {
		clock = system.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		source:   source,
		entities: entities,
		sessions: sessions,
		engine:   engine,
		clock:    clock,
		logger:   logger,
	}
}

// Run executes the session to completion. A session loaded from a
// checkpoint resumes from the next unpopped job; a failed session retries
// from the job that failed, which is still at the head of its queue.
func (o *Orchestrator) Run(ctx context.Context, s *catalog.Session) error {
	switch s.Status {
	case catalog.SessionInitialized, catalog.SessionPopulating:
		if err := o.populate(ctx, s); err != nil {
			return o.fail(ctx, s, err)
		}
	case catalog.SessionDraining:
		o.logger.Info("resuming session",
			zap.String("session_id", s.ID),
			zap.Int("pending_jobs", s.Queue.Len()),
		)
	case catalog.SessionFailed:
		if err := o.retryFailed(ctx, s); err != nil {
			return o.fail(ctx, s, err)
		}
	default:
		return fmt.Errorf("session %s is %s, nothing to run", s.ID, s.Status)
	}

	if err := o.drain(ctx, s); err != nil {
		return o.fail(ctx, s, err)
	}
	return nil
}

// populate discovers every product and store identifier and seeds the
// queue, preserving discovery order within kind.
func (o *Orchestrator) populate(ctx context.Context, s *catalog.Session) error {
	s.Status = catalog.SessionPopulating
	if err := o.checkpoint(ctx, s); err != nil {
		return err
	}

	productListing := reducer.New(reducer.PageFetcherFunc(
		func(ctx context.Context, page int) (reducer.Page, error) {
			p, err := o.source.ListProducts(ctx, page)
			if err != nil {
				return reducer.Page{}, err
			}
			return reducer.Page{IDs: p.IDs, HasNext: p.HasNext}, nil
		},
	), o.logger)

	productIDs, err := productListing.Reduce(ctx)
	if err != nil {
		return fmt.Errorf("discover products: %w", err)
	}
	storeIDs, err := o.source.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("discover stores: %w", err)
	}

	for _, id := range productIDs {
		s.Queue.Push(catalog.Job{Kind: catalog.KindProduct, ID: id})
	}
	for _, id := range storeIDs {
		s.Queue.Push(catalog.Job{Kind: catalog.KindStore, ID: id})
	}

	o.logger.Info("queue populated",
		zap.String("session_id", s.ID),
		zap.Int("products", len(productIDs)),
		zap.Int("stores", len(storeIDs)),
	)
	s.AppendEvent(o.clock.Now(), "info",
		fmt.Sprintf("queue populated: %d products, %d stores", len(productIDs), len(storeIDs)))

	s.Status = catalog.SessionDraining
	return o.checkpoint(ctx, s)
}

// retryFailed returns a failed session to the phase it failed in. A failed
// session that never checkpointed a populated queue (no pending jobs, no
// crawled entities) restarts discovery; anything else drains the persisted
// queue, starting with the job that failed.
func (o *Orchestrator) retryFailed(ctx context.Context, s *catalog.Session) error {
	counters := s.Counters()
	if s.Queue.Len() == 0 && counters.Products == 0 && counters.Stores == 0 {
		return o.populate(ctx, s)
	}
	s.Status = catalog.SessionDraining
	o.logger.Info("retrying failed session",
		zap.String("session_id", s.ID),
		zap.Int("pending_jobs", s.Queue.Len()),
	)
	return nil
}

// drain works jobs one at a time, strictly sequentially. A job stays at the
// head of the queue until it has been fully processed, so a failure persists
// the in-flight job and a resumed session retries it rather than losing it.
func (o *Orchestrator) drain(ctx context.Context, s *catalog.Session) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		job, ok := s.Queue.Peek()
		if !ok {
			break
		}
		if err := o.process(ctx, s, job); err != nil {
			return err
		}
		s.Queue.Pop()
		if err := o.checkpoint(ctx, s); err != nil {
			return err
		}
	}

	s.Status = catalog.SessionCompleted
	now := o.clock.Now()
	s.FinishedAt = &now
	counters := s.Counters()
	s.AppendEvent(now, "info", fmt.Sprintf(
		"drain complete: %d products, %d stores, %d inventory rows",
		counters.Products, counters.Stores, counters.InventoryRows))
	if err := o.checkpoint(ctx, s); err != nil {
		return err
	}

	metrics.SessionFinished(string(catalog.SessionCompleted))
	o.logger.Info("session completed",
		zap.String("session_id", s.ID),
		zap.Int("products", counters.Products),
		zap.Int("stores", counters.Stores),
		zap.Int("inventory_rows", counters.InventoryRows),
		zap.Int64("units_on_hand", counters.UnitsOnHand),
		zap.Int64("inventory_value_cents", counters.InventoryValueCents),
		zap.Int64("inventory_volume_ml", counters.InventoryVolumeML),
	)
	return nil
}

func (o *Orchestrator) process(ctx context.Context, s *catalog.Session, job catalog.Job) error {
	switch job.Kind {
	case catalog.KindStore:
		return o.processStore(ctx, s, job)
	case catalog.KindProduct:
		return o.processProduct(ctx, s, job)
	default:
		return &catalog.UnknownJobKindError{Kind: job.Kind}
	}
}

func (o *Orchestrator) processStore(ctx context.Context, s *catalog.Session, job catalog.Job) error {
	rec, err := o.source.GetStoreDetail(ctx, job.ID)
	if err != nil {
		if errors.Is(err, catalog.ErrNotFound) {
			o.skip(s, job, "not_found", err)
			return nil
		}
		return fmt.Errorf("fetch store %s: %w", job.ID, err)
	}

	entity, err := o.engine.Normalize(catalog.KindStore, job.ID, rec)
	if err != nil {
		return o.skipOrFailNormalization(s, job, err)
	}
	// Stored postal codes never contain internal spaces, independent of
	// what the field computation produced.
	if postal, ok := entity["postal_code"].(string); ok {
		entity["postal_code"] = strings.ReplaceAll(postal, " ", "")
	}

	if err := o.entities.Upsert(ctx, catalog.KindStore, entity); err != nil {
		return fmt.Errorf("upsert store %s: %w", job.ID, err)
	}
	s.MarkCrawled(catalog.KindStore, job.ID)
	metrics.EntityProcessed(string(catalog.KindStore))
	return nil
}

func (o *Orchestrator) processProduct(ctx context.Context, s *catalog.Session, job catalog.Job) error {
	rec, err := o.source.GetProductDetail(ctx, job.ID)
	if err != nil {
		return o.skipOrFailFetch(s, job, err)
	}
	inv, err := o.source.GetInventoryForProduct(ctx, job.ID)
	if err != nil {
		return o.skipOrFailFetch(s, job, err)
	}

	enriched, agg := enrichProduct(rec, inv)
	entity, err := o.engine.Normalize(catalog.KindProduct, job.ID, enriched)
	if err != nil {
		return o.skipOrFailNormalization(s, job, err)
	}

	if err := o.entities.Upsert(ctx, catalog.KindProduct, entity); err != nil {
		return fmt.Errorf("upsert product %s: %w", job.ID, err)
	}
	for _, item := range inv.LineItems {
		line := catalog.Entity{
			"product_id": job.ID,
			"store_id":   idString(item, "store_id"),
			"quantity":   item.Int("quantity"),
			"updated_on": item.String("updated_on"),
			"crawl_id":   s.ID,
		}
		if err := o.entities.Upsert(ctx, catalog.KindInventory, line); err != nil {
			return fmt.Errorf("upsert inventory for product %s: %w", job.ID, err)
		}
	}

	s.RecordAggregate(job.ID, agg)
	s.MarkCrawled(catalog.KindProduct, job.ID)
	metrics.EntityProcessed(string(catalog.KindProduct))
	return nil
}

// skipOrFailFetch drops the job on not-found/redirected product fetches and
// propagates everything else.
func (o *Orchestrator) skipOrFailFetch(s *catalog.Session, job catalog.Job, err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		o.skip(s, job, "not_found", err)
		return nil
	case errors.Is(err, catalog.ErrRedirected):
		o.skip(s, job, "redirected", err)
		return nil
	default:
		return fmt.Errorf("fetch product %s: %w", job.ID, err)
	}
}

// skipOrFailNormalization treats a malformed record as failed-but-skippable
// and a registry misconfiguration (cycle, unknown field) as fatal.
func (o *Orchestrator) skipOrFailNormalization(s *catalog.Session, job catalog.Job, err error) error {
	var fieldErr *catalog.FieldComputationError
	if errors.As(err, &fieldErr) {
		o.skip(s, job, "malformed_record", err)
		return nil
	}
	return err
}

// skip logs exactly one warning, records a session event, and drops the job
// without incrementing counters or touching the crawled set.
func (o *Orchestrator) skip(s *catalog.Session, job catalog.Job, reason string, err error) {
	o.logger.Warn("job skipped",
		zap.String("session_id", s.ID),
		zap.String("kind", string(job.Kind)),
		zap.String("id", job.ID),
		zap.String("reason", reason),
		zap.Error(err),
	)
	s.AppendEvent(o.clock.Now(), "warn",
		fmt.Sprintf("%s %s skipped: %s", job.Kind, job.ID, reason))
	metrics.JobSkipped(string(job.Kind), reason)
}

func (o *Orchestrator) checkpoint(ctx context.Context, s *catalog.Session) error {
	if err := o.sessions.Save(ctx, s); err != nil {
		return fmt.Errorf("checkpoint session %s: %w", s.ID, err)
	}
	return nil
}

// fail moves the session to the failed state, leaving it resumable from
// the last persisted queue position.
func (o *Orchestrator) fail(ctx context.Context, s *catalog.Session, cause error) error {
	s.Status = catalog.SessionFailed
	s.AppendEvent(o.clock.Now(), "error", cause.Error())
	if err := o.sessions.Save(ctx, s); err != nil {
		o.logger.Error("failed to persist failed session",
			zap.String("session_id", s.ID),
			zap.Error(err),
		)
	}
	metrics.SessionFinished(string(catalog.SessionFailed))
	o.logger.Error("session failed", zap.String("session_id", s.ID), zap.Error(cause))
	return cause
}

// enrichProduct copies the raw product record and injects the derived
// inventory aggregates the field registry expects.
func enrichProduct(rec catalog.RawRecord, inv catalog.Inventory) (catalog.RawRecord, catalog.ProductAggregate) {
	agg := catalog.ProductAggregate{
		InventoryRows: len(inv.LineItems),
		UnitsOnHand:   inv.TotalCount,
		ValueCents:    rec.Int("price_in_cents") * inv.TotalCount,
		VolumeML:      rec.Int("volume_in_milliliters") * inv.TotalCount,
	}
	enriched := rec.Clone()
	enriched["inventory_count"] = agg.UnitsOnHand
	enriched["inventory_value_in_cents"] = agg.ValueCents
	enriched["inventory_volume_in_milliliters"] = agg.VolumeML
	return enriched, agg
}

func idString(rec catalog.RawRecord, key string) string {
	if s := rec.String(key); s != "" {
		return s
	}
	if rec.Has(key) {
		return strconv.FormatInt(rec.Int(key), 10)
	}
	return ""
}
