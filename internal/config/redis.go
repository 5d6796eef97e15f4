package config

import (
    "context"
    "crypto/tls"
    "time"

    "github.com/redis/go-redis/v9"
)

// RedisConfig locates the Redis server shared by rate limiting, the
// response cache and, with MIRROR_DRIVER=redis, the report mirror.
type RedisConfig struct {
    Addr     string
    Password string
    DB       int
    TLS      bool
    PingWait time.Duration
}

// LoadRedisConfig reads REDIS_HOST/REDIS_PORT, or the REDIS_ADDR
// shorthand, plus REDIS_PASSWORD, REDIS_DB and REDIS_TLS.  Host and port
// win over REDIS_ADDR when both are set.
func LoadRedisConfig() RedisConfig {
    addr := envStr("REDIS_ADDR", "localhost:6379")
    if host, port := envStr("REDIS_HOST", ""), envStr("REDIS_PORT", ""); host != "" && port != "" {
        addr = host + ":" + port
    }
    return RedisConfig{
        Addr:     addr,
        Password: envStr("REDIS_PASSWORD", ""),
        DB:       envInt("REDIS_DB", 0),
        TLS:      envBool("REDIS_TLS", false),
        PingWait: envDur("REDIS_PING_TIMEOUT", 2*time.Second),
    }
}

// NewRedisClient connects with LoadRedisConfig.  It returns nil when the
// server does not answer; callers then run without rate limiting and
// caching, and the redis mirror falls back to memory.
func NewRedisClient() *redis.Client {
    return OpenRedis(LoadRedisConfig())
}

// OpenRedis connects to rc.Addr and pings it, nil on failure.
func OpenRedis(rc RedisConfig) *redis.Client {
    opts := &redis.Options{Addr: rc.Addr, Password: rc.Password, DB: rc.DB}
    if rc.TLS {
        opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
    }
    client := redis.NewClient(opts)

    wait := rc.PingWait
    if wait <= 0 {
        wait = 2 * time.Second
    }
    ctx, cancel := context.WithTimeout(context.Background(), wait)
    defer cancel()
    if err := client.Ping(ctx).Err(); err != nil {
        _ = client.Close()
        return nil
    }
    return client
}
