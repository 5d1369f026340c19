// internal/middleware/rate_limit.go
package middleware

import (
	"context"
	"fmt"
	"strconv"
	"time"

	xerrors "queueline-service/internal/pkg/errors"
	"queueline-service/internal/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter is a fixed-window counter in redis, keyed by client ip.
type RateLimiter struct {
	client *redis.Client
	name   string
	limit  int64
	window time.Duration
	logger *zap.Logger
}

// NewRateLimiter returns a limiter allowing limit requests per window. A nil
// client disables limiting.
func NewRateLimiter(client *redis.Client, name string, limit int64, window time.Duration, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{client: client, name: name, limit: limit, window: window, logger: logger}
}

// Allow counts one attempt and reports whether it is within the limit.
func (r *RateLimiter) Allow(ctx context.Context, ip string) (bool, int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%s", r.name, ip)

	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, 0, fmt.Errorf("failed to increment %s attempt: %w", r.name, err)
	}

	// Set expiration on first attempt
	if count == 1 {
		if err := r.client.Expire(ctx, key, r.window).Err(); err != nil {
			return false, 0, fmt.Errorf("failed to set %s window: %w", r.name, err)
		}
	}

	remaining := r.limit - count
	if remaining < 0 {
		remaining = 0
	}
	return count <= r.limit, remaining, nil
}

// Middleware rejects requests over the limit with 429. Redis failures let
// the request through.
func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r.client == nil || r.limit <= 0 {
			c.Next()
			return
		}

		allowed, remaining, err := r.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			r.logger.Warn("rate limiter unavailable", zap.Error(err), zap.String("limiter", r.name))
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", strconv.FormatInt(r.limit, 10))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			response.FromError(c, "too many requests, try again later", xerrors.ErrRateLimited)
			return
		}
		c.Next()
	}
}
