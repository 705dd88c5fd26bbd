// Package querycache fronts the query compiler with a deterministic
// key→result cache. The cache is an optimization, never a dependency for
// correctness: every failure mode degrades to a miss and the caller falls
// through to live execution.
package querycache

import (
	"context"
	"encoding/json"
	"time"
)

// DefaultTTL is the expiry applied when a caller passes a zero TTL.
const DefaultTTL = 15 * time.Minute

// Cache is the query-result cache boundary. Get returns ok=false on miss,
// expiry, or any backend failure; it never returns an error because cache
// trouble must not fail the read path. Set replaces any existing entry for
// the key, resetting its hit count and expiry.
type Cache interface {
	Get(ctx context.Context, key string) (json.RawMessage, bool)
	Set(ctx context.Context, key, metricSlug, clientID string, data json.RawMessage, ttl time.Duration)
}

// Entry is a stored cache row, exposed for stats and diagnostics.
type Entry struct {
	CacheKey   string    `json:"cache_key"`
	MetricSlug string    `json:"metric_slug"`
	ClientID   string    `json:"client_id"`
	HitCount   int       `json:"hit_count"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
