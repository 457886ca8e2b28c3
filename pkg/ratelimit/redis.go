package ratelimit

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// DefaultRedisPrefix namespaces limiter keys in a shared Redis
const DefaultRedisPrefix = "ssogate:ratelimit"

// RedisLimiter is a fixed window counter shared by every instance pointing
// at the same Redis. Each key admits RequestsPerWindow+Burst requests per
// window.
type RedisLimiter struct {
	redis  *redis.Client
	config Config
	prefix string
}

// NewRedisLimiter creates a Redis-backed limiter
func NewRedisLimiter(redisClient *redis.Client, config Config, prefix string) *RedisLimiter {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisLimiter{
		redis:  redisClient,
		config: config,
		prefix: prefix,
	}
}

// Allow counts the request against key's current window
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("%s:%s", l.prefix, key)

	count, err := l.redis.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("redis error: %w", err)
	}
	// The first request opens the window
	if count == 1 {
		if err := l.redis.Expire(ctx, redisKey, l.config.Window).Err(); err != nil {
			return true, fmt.Errorf("redis error: %w", err)
		}
	}

	return count <= int64(l.config.capacity()), nil
}
