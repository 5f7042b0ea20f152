// Package source implements the read-only HTTP client for the upstream
// catalog API.
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"catalog-crawler/internal/catalog"
	"catalog-crawler/internal/metrics"
)

// DefaultUserAgent identifies the crawler to the source.
const DefaultUserAgent = "catalog-crawler/1.0"

// StatusError reports an unexpected HTTP status from the source.
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d for %s", e.Code, e.URL)
}

// Config controls the source client.
type Config struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	RetryMaxAttempts  int
}

// Client implements catalog.Source over HTTP with token-bucket rate
// limiting and bounded retry for transient failures.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     *ExponentialRetryPolicy
	logger    *zap.Logger
}

// New constructs a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("source.base_url is required")
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	limit := rate.Limit(cfg.RequestsPerSecond)
	if cfg.RequestsPerSecond <= 0 {
		limit = rate.Inf
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		http: &http.Client{
			Timeout: cfg.Timeout,
			// Redirects are answers here, not hops to follow.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		limiter: rate.NewLimiter(limit, burst),
		retry:   NewExponentialRetryPolicy(cfg.RetryMaxAttempts),
		logger:  logger,
	}, nil
}

// ListProducts fetches one page of the product listing.
func (c *Client) ListProducts(ctx context.Context, page int) (catalog.ProductPage, error) {
	var out catalog.ProductPage
	path := fmt.Sprintf("/products?page=%d", page)
	if err := c.getJSON(ctx, "list_products", path, &out); err != nil {
		return catalog.ProductPage{}, err
	}
	return out, nil
}

// ListStores fetches the full store listing.
func (c *Client) ListStores(ctx context.Context) ([]string, error) {
	var out struct {
		IDs []string `json:"ids"`
	}
	if err := c.getJSON(ctx, "list_stores", "/stores", &out); err != nil {
		return nil, err
	}
	return out.IDs, nil
}

// GetStoreDetail fetches the raw record for one store.
func (c *Client) GetStoreDetail(ctx context.Context, id string) (catalog.RawRecord, error) {
	var out catalog.RawRecord
	if err := c.getJSON(ctx, "store_detail", "/stores/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetProductDetail fetches the raw record for one product.
func (c *Client) GetProductDetail(ctx context.Context, id string) (catalog.RawRecord, error) {
	var out catalog.RawRecord
	if err := c.getJSON(ctx, "product_detail", "/products/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// GetInventoryForProduct fetches the per-store stock listing for a product.
func (c *Client) GetInventoryForProduct(ctx context.Context, id string) (catalog.Inventory, error) {
	var out catalog.Inventory
	path := "/products/" + url.PathEscape(id) + "/inventory"
	if err := c.getJSON(ctx, "product_inventory", path, &out); err != nil {
		return catalog.Inventory{}, err
	}
	return out, nil
}

// getJSON issues a GET with rate limiting and bounded retry, decoding a
// 2xx body into out. 404 maps to catalog.ErrNotFound and any 3xx to
// catalog.ErrRedirected.
func (c *Client) getJSON(ctx context.Context, endpoint, path string, out any) error {
	var lastErr error
	for attempt := 0; ; attempt++ {
		// Retries draw from the same token bucket as first attempts.
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
		start := time.Now()
		err := c.doJSON(ctx, path, out)
		metrics.ObserveSourceRequest(endpoint, time.Since(start))
		if err == nil {
			return nil
		}
		lastErr = err
		if !c.retry.ShouldRetry(err, attempt+1) {
			return lastErr
		}
		delay := c.retry.Backoff(attempt)
		c.logger.Warn("source request retrying",
			zap.String("endpoint", endpoint),
			zap.Int("attempt", attempt+1),
			zap.Duration("backoff", delay),
			zap.Error(err),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

func (c *Client) doJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("source request %s: %w", path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s: %w", path, catalog.ErrNotFound)
	case resp.StatusCode >= 300 && resp.StatusCode < 400:
		return fmt.Errorf("%s: %w", path, catalog.ErrRedirected)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Code: resp.StatusCode, URL: c.baseURL + path}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
