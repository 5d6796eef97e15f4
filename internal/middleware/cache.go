package middleware

import (
    "bytes"
    "context"
    "crypto/sha1"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/razherana/s5-web-4-carte/internal/config"
)

// cachedResponse is one stored entry.  The API only answers JSON, so the
// content type is the single header worth replaying.
type cachedResponse struct {
    Status      int    `json:"status"`
    ContentType string `json:"content_type"`
    Body        []byte `json:"body"`
}

// captureWriter tees the response into buf until limit is exceeded.
type captureWriter struct {
    http.ResponseWriter
    status   int
    buf      bytes.Buffer
    limit    int
    overflow bool
}

func (w *captureWriter) WriteHeader(code int) {
    w.status = code
    w.ResponseWriter.WriteHeader(code)
}

func (w *captureWriter) Write(b []byte) (int, error) {
    if !w.overflow {
        if w.limit > 0 && w.buf.Len()+len(b) > w.limit {
            w.overflow = true
            w.buf.Reset()
        } else {
            w.buf.Write(b)
        }
    }
    return w.ResponseWriter.Write(b)
}

func generationKey(cfg config.CacheConfig) string { return cfg.Prefix + ":gen" }

// generation returns the current cache generation, "0" before the first
// mutation.
func generation(ctx context.Context, rdb *redis.Client, cfg config.CacheConfig) (string, error) {
    gen, err := rdb.Get(ctx, generationKey(cfg)).Result()
    if errors.Is(err, redis.Nil) {
        return "0", nil
    }
    return gen, err
}

// cacheKey hashes route and query, and the caller when PerUser is set.
func cacheKey(cfg config.CacheConfig, gen string, c echo.Context) string {
    h := sha1.New()
    _, _ = io.WriteString(h, c.Request().Method+" "+c.Path()+"?"+c.Request().URL.RawQuery)
    if cfg.PerUser {
        _, _ = io.WriteString(h, "|"+userID(c))
    }
    return fmt.Sprintf("%s:%s:%x", cfg.Prefix, gen, h.Sum(nil))
}

func passThrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache serves repeated reads from Redis.  Only 200 responses no
// larger than MaxBodyBytes are stored.  Redis failures fall through to
// the handler.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
                return next(c)
            }
            ctx := c.Request().Context()
            gen, err := generation(ctx, rdb, cfg)
            if err != nil {
                return next(c)
            }
            key := cacheKey(cfg, gen, c)

            if raw, err := rdb.Get(ctx, key).Bytes(); err == nil {
                var hit cachedResponse
                if json.Unmarshal(raw, &hit) == nil {
                    c.Response().Header().Set("X-Cache", "HIT")
                    return c.Blob(hit.Status, hit.ContentType, hit.Body)
                }
            }

            cw := &captureWriter{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: cfg.MaxBodyBytes}
            c.Response().Writer = cw
            c.Response().Header().Set("X-Cache", "MISS")
            if err := next(c); err != nil {
                return err
            }
            if cw.status != http.StatusOK || cw.overflow {
                return nil
            }
            raw, err := json.Marshal(cachedResponse{
                Status:      cw.status,
                ContentType: c.Response().Header().Get(echo.HeaderContentType),
                Body:        cw.buf.Bytes(),
            })
            if err == nil {
                // the request may be gone once the body is written
                _ = rdb.Set(context.Background(), key, raw, cfg.TTL).Err()
            }
            return nil
        }
    }
}

// InvalidateCache starts a new cache generation after every successful
// mutation, so reads never see aggregates older than the last write.
func InvalidateCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            err := next(c)
            if err == nil && c.Response().Status < http.StatusBadRequest {
                ctx, cancel := context.WithTimeout(context.Background(), time.Second)
                defer cancel()
                _ = rdb.Incr(ctx, generationKey(cfg)).Err()
            }
            return err
        }
    }
}
