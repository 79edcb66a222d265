package security

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

// RateLimiter applies a fixed-window per-IP request budget backed by
// Redis, shared across instances.
type RateLimiter struct {
	redis  *redis.Client
	limit  int
	window time.Duration
}

func NewRateLimiter(redisClient *redis.Client, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		redis:  redisClient,
		limit:  limit,
		window: window,
	}
}

// PurchaseLimit is route middleware for the buy-ticket endpoint.
// Redis hiccups fail open: losing the limiter is better than losing sales.
func (r *RateLimiter) PurchaseLimit() func(e *core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		allowed, err := r.allow(e.Request.Context(), e.RealIP())
		if err != nil {
			return e.Next()
		}
		if !allowed {
			return e.JSON(http.StatusTooManyRequests, map[string]string{
				"error": "Too many requests. Please try again later.",
			})
		}
		return e.Next()
	}
}

func (r *RateLimiter) allow(ctx context.Context, ip string) (bool, error) {
	key := fmt.Sprintf("ratelimit:purchase:%s", ip)

	count, err := r.redis.Incr(ctx, key).Result()
	if err != nil {
		return true, err
	}
	if count == 1 {
		r.redis.Expire(ctx, key, r.window)
	}

	return count <= int64(r.limit), nil
}
