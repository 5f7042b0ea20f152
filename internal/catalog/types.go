// Package catalog defines core types shared across subsystems.
package catalog

import (
	"encoding/json"
	"strconv"
	"time"
)

// Kind identifies the class of entity a record or job refers to.
type Kind string

// Entity kinds handled by the crawler.
const (
	KindProduct   Kind = "product"
	KindStore     Kind = "store"
	KindInventory Kind = "inventory"
)

// Job is one unit of crawl work: fetch, normalize and persist one entity.
type Job struct {
	Kind Kind   `json:"kind"`
	ID   string `json:"id"`
}

// RawRecord is a loosely keyed record as delivered by the source.
// It is read-only; enrichment steps build a copy instead of mutating it.
type RawRecord map[string]any

// Lookup retrieves a raw value by key. It returns nil when the key is
// missing; callers decide how to handle absence.
func (r RawRecord) Lookup(key string) any {
	if r == nil {
		return nil
	}
	return r[key]
}

// Has reports whether a key is present with a non-nil value.
func (r RawRecord) Has(key string) bool {
	return r.Lookup(key) != nil
}

// String returns the value under key as a string, or "" when the key is
// absent or not string-like.
func (r RawRecord) String(key string) string {
	switch v := r.Lookup(key).(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	default:
		return ""
	}
}

// Int returns the value under key as an int64. JSON decoding delivers
// numbers as float64, so that is the common path.
func (r RawRecord) Int(key string) int64 {
	switch v := r.Lookup(key).(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return n
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// Float returns the value under key as a float64.
func (r RawRecord) Float(key string) float64 {
	switch v := r.Lookup(key).(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	case int:
		return float64(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// Clone returns a shallow copy of the record.
func (r RawRecord) Clone() RawRecord {
	out := make(RawRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Entity is a normalized record ready for the entity store: a mapping from
// field name to a string, integer, float, boolean or nil value.
type Entity map[string]any

// ProductPage is one page of the paginated product listing.
type ProductPage struct {
	IDs     []string `json:"ids"`
	HasNext bool     `json:"has_next"`
}

// Inventory is the per-store stock listing for one product.
type Inventory struct {
	TotalCount int64       `json:"total_count"`
	LineItems  []RawRecord `json:"line_items"`
}

// Event is one append-only session log entry.
type Event struct {
	At      time.Time `json:"at"`
	Level   string    `json:"level"`
	Message string    `json:"message"`
}
