package middleware

import (
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/avellia/show-ticketing/internal/config"
)

// RateLimit returns a fixed-window rate limiter backed by Redis.  The
// window counter lives under a key of prefix, client identity and route,
// so the limit applies per user (falling back to the client IP for
// unauthenticated requests) and per endpoint.  When Redis is unavailable
// the middleware fails open: allocation correctness never depends on the
// limiter.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            ctx := c.Request().Context()
            window := time.Now().Unix() / int64(cfg.Window/time.Second)
            key := fmt.Sprintf("%s:%s:%s:%d", cfg.Prefix, clientID(c), c.Path(), window)

            count, err := rdb.Incr(ctx, key).Result()
            if err != nil {
                return next(c) // fail open
            }
            if count == 1 {
                rdb.Expire(ctx, key, cfg.Window)
            }
            if count > int64(cfg.Limit) {
                retry := cfg.Window - time.Duration(time.Now().Unix()%int64(cfg.Window/time.Second))*time.Second
                c.Response().Header().Set("Retry-After", strconv.Itoa(int(retry/time.Second)))
                return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
            }
            return next(c)
        }
    }
}

// clientID identifies the caller for rate limiting: the authenticated
// user id when present, otherwise the remote IP.
func clientID(c echo.Context) string {
    if v := c.Get("user_id"); v != nil {
        return fmt.Sprintf("u:%v", v)
    }
    return "ip:" + c.RealIP()
}
