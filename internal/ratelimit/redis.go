package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLimiter counts requests per key with INCR and lets the key expire at
// the end of the window.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, limit int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		rdb:    rdb,
		limit:  limit,
		window: window,
		prefix: "todolist:ratelimit:",
	}
}

// Allow reports a Redis failure alongside an allowing decision; callers log
// the error and let the request through.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	k := l.prefix + key

	count, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		return Decision{Allowed: true}, fmt.Errorf("ratelimit: incr: %w", err)
	}

	if count == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			return Decision{Allowed: true}, fmt.Errorf("ratelimit: expire: %w", err)
		}
	}

	if count <= int64(l.limit) {
		return Decision{Allowed: true}, nil
	}

	ttl, err := l.rdb.PTTL(ctx, k).Result()
	if err != nil || ttl < 0 {
		// a key without TTL would block forever
		_ = l.rdb.Expire(ctx, k, l.window).Err()
		ttl = l.window
	}

	return Decision{Allowed: false, RetryAfter: ttl}, nil
}
