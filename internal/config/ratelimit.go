package config

import "time"

// Rate limit key strategies.
const (
    RateByUser      = "user"       // one bucket per caller, by IP when anonymous
    RateByIP        = "ip"         // one bucket per client address
    RateByUserRoute = "user_route" // one bucket per caller and route
)

// RateLimitConfig tunes the Redis token bucket placed on mutating report
// routes.  A bucket holds Capacity tokens and regains RefillTokens every
// RefillInterval.
type RateLimitConfig struct {
    Enabled        bool
    Capacity       int
    RefillTokens   int
    RefillInterval time.Duration
    TTL            time.Duration // idle buckets expire after TTL
    KeyStrategy    string
    Prefix         string
}

func LoadRateLimitConfig() RateLimitConfig {
    c := RateLimitConfig{
        Enabled:        envBool("RATE_LIMIT_ENABLED", true),
        Capacity:       envInt("RATE_LIMIT_CAPACITY", 30),
        RefillTokens:   envInt("RATE_LIMIT_REFILL_TOKENS", 1),
        RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 2*time.Second),
        TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
        KeyStrategy:    envStr("RATE_LIMIT_KEY_STRATEGY", RateByUser),
        Prefix:         envStr("RATE_LIMIT_PREFIX", "reports-rl"),
    }
    if every := envDur("RATE_LIMIT_REFILL_EVERY", 0); every > 0 {
        c.RefillTokens, c.RefillInterval = 1, every
    }
    switch c.KeyStrategy {
    case RateByUser, RateByIP, RateByUserRoute:
    default:
        c.KeyStrategy = RateByUser
    }
    if c.Capacity < 1 {
        c.Capacity = 1
    }
    if c.RefillTokens < 1 {
        c.RefillTokens = 1
    }
    if c.RefillInterval <= 0 {
        c.RefillInterval = time.Second
    }
    // a bucket must outlive the time it takes to refill
    if floor := 5 * c.RefillInterval; c.TTL < floor {
        c.TTL = floor
    }
    return c
}
