package middleware

import (
    "bytes"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/avellia/show-ticketing/internal/config"
)

// bodyCapture tees the response body into a buffer while forwarding it
// to the client, up to a size limit.
type bodyCapture struct {
    http.ResponseWriter
    status int
    buf    bytes.Buffer
    size   int64
    limit  int64
}

func (w *bodyCapture) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *bodyCapture) Write(b []byte) (int, error) {
    if remain := w.limit - w.size; remain > 0 {
        if int64(len(b)) <= remain {
            w.buf.Write(b)
        } else {
            w.buf.Write(b[:remain])
        }
    }
    w.size += int64(len(b))
    return w.ResponseWriter.Write(b)
}

// CacheGET returns a middleware that caches successful GET responses in
// Redis keyed by route and query string.  It backs the public seat-map
// endpoint, where a short TTL keeps browse traffic off the database
// without affecting allocation correctness (the validator always reads
// live state inside its transaction).  Disabled when Redis is absent.
func CacheGET(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return func(next echo.HandlerFunc) echo.HandlerFunc {
            return func(c echo.Context) error { return next(c) }
        }
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if c.Request().Method != http.MethodGet {
                return next(c)
            }
            ctx := c.Request().Context()
            key := cfg.Prefix + ":" + c.Request().URL.Path + "?" + c.Request().URL.RawQuery

            if body, err := rdb.Get(ctx, key).Bytes(); err == nil {
                c.Response().Header().Set("X-Cache", "HIT")
                return c.JSONBlob(http.StatusOK, body)
            }

            capture := &bodyCapture{
                ResponseWriter: c.Response().Writer,
                status:         http.StatusOK,
                limit:          int64(cfg.MaxBodyBytes),
            }
            c.Response().Writer = capture
            if err := next(c); err != nil {
                return err
            }
            // Only cache complete successful bodies.
            if capture.status == http.StatusOK && capture.size <= int64(cfg.MaxBodyBytes) {
                rdb.Set(ctx, key, capture.buf.Bytes(), maxDuration(cfg.TTL, time.Second))
            }
            return nil
        }
    }
}

func maxDuration(a, b time.Duration) time.Duration {
    if a > b {
        return a
    }
    return b
}
