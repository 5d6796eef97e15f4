package config

import "time"

// CacheConfig tunes the Redis response cache in front of read-heavy
// aggregate endpoints such as the report statistics.  Entries are
// grouped in generations; any successful mutation starts a new one, so
// the TTL only bounds memory, not staleness.
type CacheConfig struct {
    Enabled      bool
    Methods      map[string]bool // cached request methods, upper case
    TTL          time.Duration
    PerUser      bool   // add the caller to the key
    Prefix       string // namespace of entries and of the generation counter
    MaxBodyBytes int    // larger responses are served but not stored
}

func LoadCacheConfig() CacheConfig {
    c := CacheConfig{
        Enabled:      envBool("CACHE_ENABLED", true),
        Methods:      envSet("CACHE_METHODS", "GET"),
        TTL:          envDur("CACHE_TTL", 10*time.Second),
        PerUser:      envBool("CACHE_PER_USER", false),
        Prefix:       envStr("CACHE_PREFIX", "reports-cache"),
        MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
    }
    if c.TTL <= 0 {
        c.TTL = 10 * time.Second
    }
    return c
}
