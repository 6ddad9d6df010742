package extract

import (
	"context"
	"sync"

	"politikk-moter/internal/observability/metrics"
)

// DetailCache memoizes detail-page fetches by URL for a single run. Entries
// are inserted once and never invalidated; failed fetches are not cached.
type DetailCache struct {
	fetcher Fetcher
	opts    FetchOptions

	mu    sync.Mutex
	pages map[string]*Page
}

// NewDetailCache creates an empty cache on top of fetcher.
func NewDetailCache(fetcher Fetcher, opts FetchOptions) *DetailCache {
	return &DetailCache{
		fetcher: fetcher,
		opts:    opts,
		pages:   make(map[string]*Page),
	}
}

// Get returns the cached page for url, fetching it on first use.
func (c *DetailCache) Get(ctx context.Context, url string) (*Page, error) {
	c.mu.Lock()
	page, ok := c.pages[url]
	c.mu.Unlock()
	metrics.RecordDetailCacheLookup(ok)
	if ok {
		return page, nil
	}

	page, err := c.fetcher.Fetch(ctx, url, c.opts)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if existing, ok := c.pages[url]; ok {
		page = existing
	} else {
		c.pages[url] = page
	}
	c.mu.Unlock()
	return page, nil
}

// Len returns the number of cached pages.
func (c *DetailCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pages)
}

type detailCacheKey struct{}

// WithDetailCache scopes cache to the extraction run carried by ctx.
func WithDetailCache(ctx context.Context, cache *DetailCache) context.Context {
	return context.WithValue(ctx, detailCacheKey{}, cache)
}

// DetailCacheFrom returns the run's cache, or nil outside a run.
func DetailCacheFrom(ctx context.Context) *DetailCache {
	cache, _ := ctx.Value(detailCacheKey{}).(*DetailCache)
	return cache
}
