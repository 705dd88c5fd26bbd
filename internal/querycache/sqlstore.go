package querycache

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/claimlens/claimlens/internal/db"
)

// SQLStore is the SQLite-backed cache, one row per key in query_cache.
type SQLStore struct {
	db  *db.DB
	log zerolog.Logger

	// now is swappable for expiry tests.
	now func() time.Time
}

// NewSQLStore creates a SQLite-backed query cache.
func NewSQLStore(database *db.DB, log zerolog.Logger) *SQLStore {
	return &SQLStore{db: database, log: log, now: time.Now}
}

// Get returns the cached payload for key, or ok=false on miss, expiry, or
// backend failure. A hit bumps hit_count in the background; the increment is
// fire-and-forget and never blocks the read path.
func (s *SQLStore) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	var data, expires string
	err := s.db.QueryRowContext(ctx,
		`SELECT result_data, expires_at FROM query_cache WHERE cache_key = ?`, key,
	).Scan(&data, &expires)
	if err == sql.ErrNoRows {
		return nil, false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("cache_key", key).Msg("cache read failed, treating as miss")
		return nil, false
	}

	expiresAt, err := time.Parse(time.DateTime, expires)
	if err != nil || !s.now().UTC().Before(expiresAt) {
		return nil, false
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if _, err := s.db.ExecContext(ctx,
			`UPDATE query_cache SET hit_count = hit_count + 1 WHERE cache_key = ?`, key); err != nil {
			s.log.Debug().Err(err).Str("cache_key", key).Msg("hit count increment failed")
		}
	}()

	return json.RawMessage(data), true
}

// Set upserts the entry for key, resetting hit_count and pushing expires_at
// to now + ttl. Write failures are logged and swallowed.
func (s *SQLStore) Set(ctx context.Context, key, metricSlug, clientID string, data json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO query_cache (cache_key, metric_slug, client_id, result_data, hit_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, 0, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			metric_slug = excluded.metric_slug,
			client_id = excluded.client_id,
			result_data = excluded.result_data,
			hit_count = 0,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		key, metricSlug, clientID, string(data),
		now.Format(time.DateTime),
		now.Add(ttl).Format(time.DateTime),
	)
	if err != nil {
		s.log.Warn().Err(err).Str("cache_key", key).Msg("cache write failed")
	}
}

// SweepExpired deletes entries past their expiry and returns how many were
// removed. Expired entries are inert either way; sweeping just reclaims
// space.
func (s *SQLStore) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM query_cache WHERE expires_at <= ?`,
		s.now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Stats lists the live entries with their hit counts, hottest first.
func (s *SQLStore) Stats(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT cache_key, metric_slug, client_id, hit_count, created_at, expires_at
		FROM query_cache
		WHERE expires_at > ?
		ORDER BY hit_count DESC`,
		s.now().UTC().Format(time.DateTime),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var created, expires string
		if err := rows.Scan(&e.CacheKey, &e.MetricSlug, &e.ClientID, &e.HitCount, &created, &expires); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.DateTime, created); err == nil {
			e.CreatedAt = t
		}
		if t, err := time.Parse(time.DateTime, expires); err == nil {
			e.ExpiresAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
