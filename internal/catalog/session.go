package catalog

import "time"

// SessionStatus represents the lifecycle state of a crawl session.
type SessionStatus string

// Session status values persisted in the session store.
const (
	SessionInitialized SessionStatus = "initialized"
	SessionPopulating  SessionStatus = "populating"
	SessionDraining    SessionStatus = "draining"
	SessionCompleted   SessionStatus = "completed"
	SessionFailed      SessionStatus = "failed"
)

// ProductAggregate is the inventory contribution of one crawled product.
// Keyed by product id inside the session, so re-processing a job after a
// crash-resume overwrites the entry instead of double-counting.
type ProductAggregate struct {
	InventoryRows int   `json:"inventory_rows"`
	UnitsOnHand   int64 `json:"units_on_hand"`
	ValueCents    int64 `json:"value_cents"`
	VolumeML      int64 `json:"volume_ml"`
}

// Counters are the running totals for one session, recomputed on demand
// from the crawled-id sets and per-product aggregates.
type Counters struct {
	Products            int   `json:"products"`
	Stores              int   `json:"stores"`
	InventoryRows       int   `json:"inventory_rows"`
	UnitsOnHand         int64 `json:"units_on_hand"`
	InventoryValueCents int64 `json:"inventory_value_cents"`
	InventoryVolumeML   int64 `json:"inventory_volume_ml"`
}

// Session is the unit of work for one full crawl pass. It is owned by a
// single orchestrator for the duration of the crawl and checkpointed after
// every state-changing step.
type Session struct {
	ID         string                      `json:"id"`
	Status     SessionStatus               `json:"status"`
	StartedAt  time.Time                   `json:"started_at"`
	FinishedAt *time.Time                  `json:"finished_at,omitempty"`
	Queue      JobQueue                    `json:"queue"`
	Crawled    map[Kind]map[string]bool    `json:"crawled"`
	Aggregates map[string]ProductAggregate `json:"aggregates"`
	Events     []Event                     `json:"events"`
}

// NewSession creates a session in the initialized state.
func NewSession(id string, startedAt time.Time) *Session {
	return &Session{
		ID:        id,
		Status:    SessionInitialized,
		StartedAt: startedAt,
		Crawled: map[Kind]map[string]bool{
			KindProduct: {},
			KindStore:   {},
		},
		Aggregates: map[string]ProductAggregate{},
	}
}

// MarkCrawled records that an entity was fetched, normalized and persisted.
// Skipped entities (not found, redirected) are never recorded here.
func (s *Session) MarkCrawled(kind Kind, id string) {
	if s.Crawled == nil {
		s.Crawled = map[Kind]map[string]bool{}
	}
	set, ok := s.Crawled[kind]
	if !ok {
		set = map[string]bool{}
		s.Crawled[kind] = set
	}
	set[id] = true
}

// CrawledIDs returns a copy of the crawled-id set for a kind.
func (s *Session) CrawledIDs(kind Kind) map[string]bool {
	out := make(map[string]bool, len(s.Crawled[kind]))
	for id := range s.Crawled[kind] {
		out[id] = true
	}
	return out
}

// RecordAggregate stores the inventory contribution of one product,
// replacing any earlier entry for the same id.
func (s *Session) RecordAggregate(productID string, agg ProductAggregate) {
	if s.Aggregates == nil {
		s.Aggregates = map[string]ProductAggregate{}
	}
	s.Aggregates[productID] = agg
}

// Counters derives the session totals. Because products and stores are
// counted from the crawled-id sets and inventory sums from the per-product
// aggregate map, the result is stable under job re-processing.
func (s *Session) Counters() Counters {
	c := Counters{
		Products: len(s.Crawled[KindProduct]),
		Stores:   len(s.Crawled[KindStore]),
	}
	for _, agg := range s.Aggregates {
		c.InventoryRows += agg.InventoryRows
		c.UnitsOnHand += agg.UnitsOnHand
		c.InventoryValueCents += agg.ValueCents
		c.InventoryVolumeML += agg.VolumeML
	}
	return c
}

// AppendEvent adds one entry to the session's append-only event log.
func (s *Session) AppendEvent(at time.Time, level, message string) {
	s.Events = append(s.Events, Event{At: at, Level: level, Message: message})
}
