package catalog

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL is how long a catalog snapshot is served before re-reading
// the store.
const DefaultTTL = 5 * time.Minute

// Cached wraps a Store with a time-boxed read cache. The catalog changes
// rarely and is safe to recompute on miss, so a stale read within the TTL
// is acceptable.
type Cached struct {
	store *Store
	ttl   time.Duration

	mu        sync.RWMutex
	defs      []MetricDefinition
	bySlug    map[string]MetricDefinition
	fetchedAt time.Time
}

// NewCached creates a TTL-cached view over the catalog store. A zero ttl
// uses DefaultTTL.
func NewCached(store *Store, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cached{store: store, ttl: ttl}
}

// ListActive returns the active metric definitions, refreshing from the
// store when the cached snapshot has expired.
func (c *Cached) ListActive(ctx context.Context) ([]MetricDefinition, error) {
	c.mu.RLock()
	if c.defs != nil && time.Since(c.fetchedAt) < c.ttl {
		defs := c.defs
		c.mu.RUnlock()
		return defs, nil
	}
	c.mu.RUnlock()

	return c.refresh(ctx)
}

// Lookup returns the active definition for slug, or false when the slug is
// unknown or inactive.
func (c *Cached) Lookup(ctx context.Context, slug string) (MetricDefinition, bool, error) {
	if _, err := c.ListActive(ctx); err != nil {
		return MetricDefinition{}, false, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	def, ok := c.bySlug[slug]
	return def, ok, nil
}

// Invalidate drops the cached snapshot so the next read hits the store.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs = nil
	c.bySlug = nil
}

func (c *Cached) refresh(ctx context.Context) ([]MetricDefinition, error) {
	defs, err := c.store.ListActive(ctx)
	if err != nil {
		// Serve the stale snapshot if we have one; the catalog is an
		// optimization boundary, not a correctness one.
		c.mu.RLock()
		stale := c.defs
		c.mu.RUnlock()
		if stale != nil {
			return stale, nil
		}
		return nil, err
	}

	bySlug := make(map[string]MetricDefinition, len(defs))
	for _, def := range defs {
		bySlug[def.Slug] = def
	}

	c.mu.Lock()
	c.defs = defs
	c.bySlug = bySlug
	c.fetchedAt = time.Now()
	c.mu.Unlock()

	return defs, nil
}
