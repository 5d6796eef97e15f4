package middleware

import (
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"
    "github.com/redis/go-redis/v9"

    "github.com/razherana/s5-web-4-carte/internal/config"
    "github.com/razherana/s5-web-4-carte/internal/logger"
)

// bucketScript takes one token from the bucket at KEYS[1] after adding
// the refills earned since its last visit.  It answers
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local tokens = tonumber(redis.call('HGET', key, 'tokens'))
local stamp = tonumber(redis.call('HGET', key, 'stamp'))
if tokens == nil or stamp == nil then
    tokens = capacity
    stamp = now
end

local steps = math.floor(math.max(0, now - stamp) / interval)
if steps > 0 then
    tokens = math.min(capacity, tokens + steps * refill)
    stamp = stamp + steps * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
    allowed = 1
    tokens = tokens - 1
else
    wait = math.max(0, interval - (now - stamp))
end

redis.call('HSET', key, 'tokens', tokens, 'stamp', stamp)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// NewTokenBucket limits requests with a token bucket kept in Redis so that
// every instance shares the same budget.  Redis errors let the request
// through: losing the limiter must not take the API down.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *logger.Logger) echo.MiddlewareFunc {
    if !cfg.Enabled || rdb == nil {
        return passThrough
    }
    log = log.With("middleware", "RateLimit")
    interval := cfg.RefillInterval
    if interval <= 0 {
        interval = time.Second
    }
    ttl := int64(cfg.TTL / time.Second)
    if ttl < 1 {
        ttl = 1
    }

    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            key := rateKey(cfg, c)
            res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
                time.Now().UnixMilli(), cfg.Capacity, cfg.RefillTokens, interval.Milliseconds(), ttl,
            ).Int64Slice()
            if err != nil || len(res) != 3 {
                log.Warn("rate limiter unavailable", "key", key, "error", err)
                return next(c)
            }
            allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

            h := c.Response().Header()
            h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
            h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
            if allowed {
                return next(c)
            }

            secs := (waitMs + 999) / 1000
            h.Set("Retry-After", strconv.FormatInt(secs, 10))
            log.Debug("rate limited", "key", key, "retry_after", secs)
            return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded", "retry_after": secs})
        }
    }
}

// rateKey names the bucket of the request.  Anonymous callers always
// share a bucket per address.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
    who := "ip:" + c.RealIP()
    if p, ok := PrincipalFrom(c); ok && cfg.KeyStrategy != config.RateByIP {
        who = "user:" + strconv.FormatUint(p.ID, 10)
    }
    key := cfg.Prefix + ":" + who
    if cfg.KeyStrategy == config.RateByUserRoute {
        key += ":" + c.Request().Method + " " + c.Path()
    }
    return key
}
