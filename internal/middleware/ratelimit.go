package middleware

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"revayat/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store is unavailable.
type FailPolicy int

const (
	// FailOpen lets the request through when Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed rejects the request with 503 when Redis is unavailable.
	FailClosed
)

// ErrNoLimiter is returned by CheckRateLimit when no Redis client is configured.
var ErrNoLimiter = errors.New("rate limit: redis client is nil")

// CheckRateLimit counts one hit for id against resource and reports whether
// it is still within limit for the current window.
// Limiting is disabled when APP_ENV is "test" or "development".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, window time.Duration) (bool, error) {
	switch env := os.Getenv("APP_ENV"); env {
	case "", "test", "development":
		return true, nil
	}

	if rdb == nil {
		return false, ErrNoLimiter
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		rdb.Expire(ctx, key, window)
	}
	return cnt <= int64(limit), nil
}

// RateLimit enforces limit requests per window per client IP, failing open.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name)
}

// RateLimitWithPolicy is RateLimit with an explicit failure policy. An empty
// name keys the limit by request path.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		resource := name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := CheckRateLimit(c.UserContext(), rdb, resource, "ip:"+c.IP(), limit, window)
		if err != nil {
			if policy == FailClosed {
				observability.Logger.WarnContext(c.UserContext(), "rate limit unavailable",
					"resource", resource, "error", err.Error())
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}
		if !allowed {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
