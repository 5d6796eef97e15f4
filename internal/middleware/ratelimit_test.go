package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/razherana/s5-web-4-carte/internal/config"
    "github.com/razherana/s5-web-4-carte/internal/logger"
    "github.com/razherana/s5-web-4-carte/internal/model"
)

func newRedis(t *testing.T) *redis.Client {
    t.Helper()
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
    t.Cleanup(func() { _ = rdb.Close() })
    return rdb
}

func TestTokenBucket_BlocksWhenEmpty(t *testing.T) {
    rdb := newRedis(t)
    cfg := config.RateLimitConfig{
        Enabled:        true,
        Capacity:       2,
        RefillTokens:   1,
        RefillInterval: time.Hour,
        TTL:            time.Hour,
        KeyStrategy:    config.RateByIP,
        Prefix:         "rl",
    }
    e := echo.New()
    e.POST("/v1/reports", func(c echo.Context) error { return c.NoContent(http.StatusCreated) },
        NewTokenBucket(cfg, rdb, logger.Nop()))

    codes := []int{}
    for i := 0; i < 3; i++ {
        rec := serve(e, http.MethodPost, "/v1/reports", "")
        codes = append(codes, rec.Code)
        if i == 2 {
            assert.Equal(t, "3600", rec.Header().Get("Retry-After"))
            assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
        }
    }
    assert.Equal(t, []int{http.StatusCreated, http.StatusCreated, http.StatusTooManyRequests}, codes)
}

func TestTokenBucket_DisabledPassesThrough(t *testing.T) {
    e := echo.New()
    e.GET("/x", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
        NewTokenBucket(config.RateLimitConfig{Enabled: true}, nil, logger.Nop()))
    require.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/x", "").Code)
}

func TestTokenBucket_RedisDownLetsRequestsThrough(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
    t.Cleanup(func() { _ = rdb.Close() })
    mr.Close()

    e := echo.New()
    e.POST("/x", func(c echo.Context) error { return c.NoContent(http.StatusAccepted) },
        NewTokenBucket(config.RateLimitConfig{Enabled: true, Capacity: 1, TTL: time.Minute, Prefix: "rl"}, rdb, logger.Nop()))
    assert.Equal(t, http.StatusAccepted, serve(e, http.MethodPost, "/x", "").Code)
}

func TestRateKey(t *testing.T) {
    e := echo.New()
    ctx := func(p *model.Principal) echo.Context {
        req := httptest.NewRequest(http.MethodPost, "/v1/reports", nil)
        req.Header.Set("X-Real-IP", "10.0.0.1")
        c := e.NewContext(req, httptest.NewRecorder())
        c.SetPath("/v1/reports")
        if p != nil {
            c.Set(principalKey, *p)
        }
        return c
    }
    alice := &model.Principal{ID: 5, Role: model.RoleUser}

    assert.Equal(t, "rl:ip:10.0.0.1", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: config.RateByUser}, ctx(nil)))
    assert.Equal(t, "rl:user:5", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: config.RateByUser}, ctx(alice)))
    assert.Equal(t, "rl:ip:10.0.0.1", rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: config.RateByIP}, ctx(alice)))
    assert.Equal(t, "rl:user:5:POST /v1/reports",
        rateKey(config.RateLimitConfig{Prefix: "rl", KeyStrategy: config.RateByUserRoute}, ctx(alice)))
}
