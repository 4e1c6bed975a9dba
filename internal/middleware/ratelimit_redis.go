package middleware

import (
	"context"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// RedisRateLimitStore implements RateLimitStore using Redis, so limits
// are shared across API instances. It uses a fixed window counter
// (INCR + EXPIRE). Redis failures fail open: availability of the API
// wins over strict enforcement, and every fail-open event is counted.
type RedisRateLimitStore struct {
	client  *redis.Client
	metrics *Metrics
	logger  *slog.Logger
}

// NewRedisRateLimitStore creates a Redis-backed rate limit store.
func NewRedisRateLimitStore(client *redis.Client) *RedisRateLimitStore {
	return &RedisRateLimitStore{
		client: client,
		logger: slog.Default(),
	}
}

// WithMetrics attaches middleware metrics for fail-open tracking.
func (s *RedisRateLimitStore) WithMetrics(m *Metrics) *RedisRateLimitStore {
	s.metrics = m
	return s
}

// Allow checks if a request from the given key should be allowed.
// Implements the RateLimitStore interface.
func (s *RedisRateLimitStore) Allow(ctx context.Context, key string, config RateLimitConfig) (bool, int, int) {
	redisKey := "ratelimit:" + key

	count, err := s.client.Incr(ctx, redisKey).Result()
	if err != nil {
		s.failOpen("incr", err)
		return true, config.RequestsPerWindow, 0
	}

	// First hit in a window owns setting the expiry.
	if count == 1 {
		if err := s.client.Expire(ctx, redisKey, config.WindowDuration).Err(); err != nil {
			s.failOpen("expire", err)
			return true, config.RequestsPerWindow, 0
		}
	}

	if count <= int64(config.RequestsPerWindow) {
		return true, config.RequestsPerWindow - int(count), 0
	}

	ttl, err := s.client.TTL(ctx, redisKey).Result()
	if err != nil || ttl <= 0 {
		// Blocked but the window end is unknown; tell the client to back
		// off briefly.
		return false, 0, 1
	}
	retryAfter := int(ttl.Seconds())
	if retryAfter <= 0 {
		retryAfter = 1
	}
	return false, 0, retryAfter
}

func (s *RedisRateLimitStore) failOpen(op string, err error) {
	if s.metrics != nil {
		s.metrics.IncRateLimitRedisErrors()
	}
	s.logger.Warn("redis rate limit unavailable, failing open",
		slog.String("op", op),
		slog.String("error", err.Error()))
}
