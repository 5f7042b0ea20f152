// Package reducer discovers the complete identifier set exposed by a
// paginated listing endpoint.
package reducer

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Page is one listing response: a batch of identifiers plus an indicator of
// whether a next page exists.
type Page struct {
	IDs     []string
	HasNext bool
}

// PageFetcher fetches one listing page by cursor. Implementations decide
// what a cursor maps to on the wire.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) (Page, error)
}

// PageFetcherFunc adapts a function to the PageFetcher interface.
type PageFetcherFunc func(ctx context.Context, page int) (Page, error)

// FetchPage calls f.
func (f PageFetcherFunc) FetchPage(ctx context.Context, page int) (Page, error) {
	return f(ctx, page)
}

// Reducer accumulates identifiers across all pages of a listing.
type Reducer struct {
	fetcher PageFetcher
	logger  *zap.Logger
}

// New constructs a Reducer over an injected fetch strategy.
func New(fetcher PageFetcher, logger *zap.Logger) *Reducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reducer{fetcher: fetcher, logger: logger}
}

// Reduce walks the listing from page 1 until the first response lacking a
// next-page indicator, flattening identifiers in discovery order. Duplicates
// are not removed here; downstream consumers treat the result as a set.
// A fetch failure aborts the whole discovery pass.
func (r *Reducer) Reduce(ctx context.Context) ([]string, error) {
	ids := []string{}
	for page := 1; ; page++ {
		p, err := r.fetcher.FetchPage(ctx, page)
		if err != nil {
			return nil, fmt.Errorf("fetch listing page %d: %w", page, err)
		}
		ids = append(ids, p.IDs...)
		r.logger.Debug("listing page reduced",
			zap.Int("page", page),
			zap.Int("batch", len(p.IDs)),
			zap.Bool("has_next", p.HasNext),
		)
		if !p.HasNext {
			return ids, nil
		}
	}
}
