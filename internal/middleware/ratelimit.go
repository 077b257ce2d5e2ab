package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/eventboard/eventboard/internal/apperror"
)

// rateLimitTimeout bounds the Redis round trip so a slow Redis cannot stall
// requests.
const rateLimitTimeout = 250 * time.Millisecond

// RateLimit returns middleware that allows maxRequests per client IP in each
// fixed window, counted in Redis under "<prefix>:<ip>". Requests over the
// limit get 429. When Redis is unavailable requests are let through and a
// warning is logged.
func RateLimit(rdb redis.Cmdable, prefix string, maxRequests int, window time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rdb == nil || maxRequests <= 0 {
				return next(c)
			}

			key := fmt.Sprintf("%s:%s", prefix, c.RealIP())
			ctx, cancel := context.WithTimeout(c.Request().Context(), rateLimitTimeout)
			count, err := hit(ctx, rdb, key, window)
			cancel()

			if err != nil {
				slog.Warn("rate limiter unavailable, allowing request",
					slog.String("key", key),
					slog.Any("error", err),
				)
				return next(c)
			}
			if count > int64(maxRequests) {
				c.Response().Header().Set("Retry-After", fmt.Sprintf("%d", int(window.Seconds())))
				return apperror.NewTooManyRequests("Too many requests, please try again later")
			}
			return next(c)
		}
	}
}

// hit increments key and starts its window on the first hit.
func hit(ctx context.Context, rdb redis.Cmdable, key string, window time.Duration) (int64, error) {
	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("incrementing %s: %w", key, err)
	}
	if count == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return 0, fmt.Errorf("expiring %s: %w", key, err)
		}
	}
	return count, nil
}
