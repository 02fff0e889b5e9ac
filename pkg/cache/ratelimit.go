package cache

import (
	"context"
	"fmt"
	"time"
)

// RateLimitResult describes one fixed window counter check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Allow counts one hit against key in a fixed window of length window.
// The counter key expires with the window, so no cleanup is needed.
func (r *RedisCache) Allow(ctx context.Context, key string, limit int, window time.Duration) (*RateLimitResult, error) {
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to increment rate limit counter: %w", err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return nil, fmt.Errorf("failed to set rate limit window: %w", err)
		}
	}

	result := &RateLimitResult{
		Allowed:   count <= int64(limit),
		Remaining: limit - int(count),
	}
	if result.Remaining < 0 {
		result.Remaining = 0
	}

	if !result.Allowed {
		ttl, err := r.client.TTL(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to read rate limit window: %w", err)
		}
		if ttl < 0 {
			// counter lost its expiry; start a fresh window
			_ = r.client.Expire(ctx, key, window).Err()
			ttl = window
		}
		result.RetryAfter = ttl
	}

	return result, nil
}
