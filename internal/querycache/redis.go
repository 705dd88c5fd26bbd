package querycache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const redisKeyPrefix = "claimlens:qc:"

// RedisStore is a Redis-backed cache for deployments where queries from
// several server replicas should share one cache. Payload and hit counter
// live under sibling keys with the same TTL.
type RedisStore struct {
	client *redis.Client
	log    zerolog.Logger
}

// NewRedisStore creates a Redis-backed query cache from a URL like
// redis://localhost:6379/0.
func NewRedisStore(url string, log zerolog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	opts.DialTimeout = 5 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, err
	}
	return &RedisStore{client: client, log: log}, nil
}

// Get returns the cached payload, or ok=false on miss or any Redis error.
func (s *RedisStore) Get(ctx context.Context, key string) (json.RawMessage, bool) {
	val, err := s.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.log.Warn().Err(err).Str("cache_key", key).Msg("redis read failed, treating as miss")
		return nil, false
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.client.Incr(ctx, redisKeyPrefix+"hits:"+key).Err(); err != nil {
			s.log.Debug().Err(err).Str("cache_key", key).Msg("hit count increment failed")
		}
	}()

	return json.RawMessage(val), true
}

// Set stores the payload under the key with the given TTL and resets the
// hit counter. Failures are logged and swallowed.
func (s *RedisStore) Set(ctx context.Context, key, metricSlug, clientID string, data json.RawMessage, ttl time.Duration) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	pipe := s.client.Pipeline()
	pipe.Set(ctx, redisKeyPrefix+key, string(data), ttl)
	pipe.Set(ctx, redisKeyPrefix+"hits:"+key, 0, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Warn().Err(err).Str("cache_key", key).Msg("redis write failed")
	}
}

// Close releases the underlying client.
func (s *RedisStore) Close() error { return s.client.Close() }
