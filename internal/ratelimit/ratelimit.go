// Package ratelimit throttles requests per client with a fixed window
// counter kept in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/triage-service/internal/config"
	apperrors "github.com/spec-kit/triage-service/pkg/util/errorutil"
)

const keyPrefix = "triage:ratelimit"

// Counter increments a key that expires after window and returns the new
// count and the remaining lifetime of the window.
type Counter interface {
	Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// RedisCounter implements Counter with INCR and EXPIRE.
type RedisCounter struct {
	client *redis.Client
}

// NewRedisCounter wraps a go-redis client.
func NewRedisCounter(client *redis.Client) *RedisCounter {
	return &RedisCounter{client: client}
}

// Incr implements Counter. The expiry is set when the window opens.
func (r *RedisCounter) Incr(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, key, window).Err(); err != nil {
			return n, window, err
		}
		return n, window, nil
	}
	ttl, err := r.client.TTL(ctx, key).Result()
	if err != nil {
		return n, window, err
	}
	if ttl < 0 {
		// lost expiry; reopen the window
		_ = r.client.Expire(ctx, key, window).Err()
		ttl = window
	}
	return n, ttl, nil
}

// Limiter allows at most Max hits per client per window.
type Limiter struct {
	counter Counter
	max     int
	window  time.Duration
	logger  *zap.Logger
}

// NewLimiter builds a limiter from configuration. A non-positive max
// disables limiting.
func NewLimiter(counter Counter, cfg config.RateLimitConfig, logger *zap.Logger) *Limiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Limiter{
		counter: counter,
		max:     cfg.AuthMax,
		window:  cfg.Window(),
		logger:  logger,
	}
}

// Middleware limits the named route group by client IP. Counter errors
// let the request through.
func (l *Limiter) Middleware(name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if l == nil || l.counter == nil || l.max <= 0 || l.window <= 0 {
			return c.Next()
		}

		key := fmt.Sprintf("%s:%s:%s", keyPrefix, name, c.IP())
		n, ttl, err := l.counter.Incr(c.UserContext(), key, l.window)
		if err != nil {
			l.logger.Warn("rate limiter unavailable; allowing request",
				zap.String("route", name),
				zap.Error(err))
			return c.Next()
		}

		remaining := int64(l.max) - n
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(l.max))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if n > int64(l.max) {
			retry := int(ttl.Round(time.Second) / time.Second)
			if retry < 1 {
				retry = 1
			}
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			l.logger.Info("rate limit exceeded", zap.String("route", name), zap.String("ip", c.IP()))
			return apperrors.NewTooManyRequests("too many requests, try again later")
		}
		return c.Next()
	}
}
