package middleware

import (
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/stretchr/testify/assert"

    "github.com/razherana/s5-web-4-carte/internal/config"
    "github.com/razherana/s5-web-4-carte/internal/model"
)

func cacheConfig() config.CacheConfig {
    return config.CacheConfig{
        Enabled:      true,
        Methods:      map[string]bool{"GET": true},
        TTL:          time.Minute,
        Prefix:       "reports-cache",
        MaxBodyBytes: 1 << 20,
    }
}

func TestRedisCache_HitAfterMiss(t *testing.T) {
    rdb := newRedis(t)
    calls := 0
    e := echo.New()
    e.GET("/v1/reports/statistics", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusOK, echo.Map{"summary": echo.Map{"resolved_count": 1}})
    }, NewRedisCache(cacheConfig(), rdb))

    first := serve(e, http.MethodGet, "/v1/reports/statistics", "")
    second := serve(e, http.MethodGet, "/v1/reports/statistics", "")

    assert.Equal(t, "MISS", first.Header().Get("X-Cache"))
    assert.Equal(t, "HIT", second.Header().Get("X-Cache"))
    assert.Equal(t, http.StatusOK, second.Code)
    assert.Equal(t, first.Header().Get(echo.HeaderContentType), second.Header().Get(echo.HeaderContentType))
    assert.JSONEq(t, first.Body.String(), second.Body.String())
    assert.Equal(t, 1, calls)

    serve(e, http.MethodGet, "/v1/reports/statistics?from=2025", "")
    assert.Equal(t, 2, calls, "query is part of the key")
}

func TestRedisCache_SkipsOversizedAndErrors(t *testing.T) {
    rdb := newRedis(t)
    cfg := cacheConfig()
    cfg.MaxBodyBytes = 4
    calls := 0
    e := echo.New()
    e.GET("/big", func(c echo.Context) error {
        calls++
        return c.String(http.StatusOK, "0123456789")
    }, NewRedisCache(cfg, rdb))
    e.GET("/missing", func(c echo.Context) error {
        calls++
        return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
    }, NewRedisCache(cacheConfig(), rdb))

    for i := 0; i < 2; i++ {
        assert.Equal(t, "0123456789", serve(e, http.MethodGet, "/big", "").Body.String())
        assert.Equal(t, http.StatusNotFound, serve(e, http.MethodGet, "/missing", "").Code)
    }
    assert.Equal(t, 4, calls)
}

func TestInvalidateCache_StartsNewGeneration(t *testing.T) {
    rdb := newRedis(t)
    cfg := cacheConfig()
    reads := 0
    e := echo.New()
    e.GET("/v1/reports/statistics", func(c echo.Context) error {
        reads++
        return c.JSON(http.StatusOK, echo.Map{"reads": reads})
    }, NewRedisCache(cfg, rdb))
    e.POST("/v1/reports/:id/history", func(c echo.Context) error {
        return c.JSON(http.StatusCreated, echo.Map{})
    }, InvalidateCache(cfg, rdb))
    e.POST("/v1/reports", func(c echo.Context) error {
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{})
    }, InvalidateCache(cfg, rdb))

    serve(e, http.MethodGet, "/v1/reports/statistics", "")
    serve(e, http.MethodGet, "/v1/reports/statistics", "")
    assert.Equal(t, 1, reads)

    serve(e, http.MethodPost, "/v1/reports", "")
    serve(e, http.MethodGet, "/v1/reports/statistics", "")
    assert.Equal(t, 1, reads, "failed mutations keep the generation")

    serve(e, http.MethodPost, "/v1/reports/4/history", "")
    rec := serve(e, http.MethodGet, "/v1/reports/statistics", "")
    assert.Equal(t, "MISS", rec.Header().Get("X-Cache"))
    assert.JSONEq(t, `{"reads":2}`, rec.Body.String())
}

func TestCacheKey_PerUser(t *testing.T) {
    e := echo.New()
    cfg := cacheConfig()
    ctx := func(id uint64) echo.Context {
        c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/reports?status=pending", nil), httptest.NewRecorder())
        c.SetPath("/v1/reports")
        c.Set(principalKey, model.Principal{ID: id, Role: model.RoleUser})
        return c
    }
    assert.Equal(t, cacheKey(cfg, "3", ctx(1)), cacheKey(cfg, "3", ctx(2)))
    assert.NotEqual(t, cacheKey(cfg, "3", ctx(1)), cacheKey(cfg, "4", ctx(1)))

    cfg.PerUser = true
    assert.NotEqual(t, cacheKey(cfg, "3", ctx(1)), cacheKey(cfg, "3", ctx(2)))
    assert.Contains(t, cacheKey(cfg, "3", ctx(1)), "reports-cache:3:")
}
