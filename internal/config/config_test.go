package config

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestLoadSyncConfig_Defaults(t *testing.T) {
    c := LoadSyncConfig()
    assert.Equal(t, 3*time.Second, c.CallTimeout)
    assert.Equal(t, 4, c.Workers)
    assert.Zero(t, c.Interval)
    assert.Equal(t, "8.8.8.8:53", c.ProbeAddr)
    assert.False(t, c.ForceOffline)
}

func TestLoadSyncConfig_Env(t *testing.T) {
    t.Setenv("MIRROR_CALL_TIMEOUT", "1500ms")
    t.Setenv("SYNC_WORKERS", "0")
    t.Setenv("SYNC_INTERVAL", "5m")
    t.Setenv("CONNECTIVITY_FORCE_OFFLINE", "yes")
    t.Setenv("CONNECTIVITY_CACHE_TTL", "500ms")

    c := LoadSyncConfig()
    assert.Equal(t, 1500*time.Millisecond, c.CallTimeout)
    assert.Equal(t, 1, c.Workers)
    assert.Equal(t, 5*time.Minute, c.Interval)
    assert.True(t, c.ForceOffline)
    assert.Equal(t, 500*time.Millisecond, c.ProbeCacheTTL)
}

func TestLoadMirrorConfig(t *testing.T) {
    c := LoadMirrorConfig()
    assert.Equal(t, MirrorMemory, c.Driver)
    assert.Equal(t, "signalements", c.Collection)

    t.Setenv("MIRROR_DRIVER", "firestore")
    assert.Equal(t, MirrorMemory, LoadMirrorConfig().Driver, "no project id")

    t.Setenv("FIRESTORE_PROJECT_ID", "road-reports")
    c = LoadMirrorConfig()
    assert.Equal(t, MirrorFirestore, c.Driver)
    assert.Equal(t, "road-reports", c.ProjectID)

    t.Setenv("MIRROR_DRIVER", "cassandra")
    assert.Equal(t, MirrorMemory, LoadMirrorConfig().Driver)
}

func TestLoadRateLimitConfig_Clamps(t *testing.T) {
    t.Setenv("RATE_LIMIT_CAPACITY", "0")
    t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
    t.Setenv("RATE_LIMIT_TTL", "1s")

    c := LoadRateLimitConfig()
    assert.Equal(t, 1, c.Capacity)
    assert.Equal(t, 1, c.RefillTokens)
    assert.Equal(t, 2*time.Second, c.RefillInterval)
    assert.Equal(t, 10*time.Second, c.TTL)
}

func TestLoadCacheConfig(t *testing.T) {
    t.Setenv("CACHE_METHODS", "get, head")
    c := LoadCacheConfig()
    assert.True(t, c.Methods["GET"])
    assert.True(t, c.Methods["HEAD"])
    assert.Equal(t, 10*time.Second, c.TTL)
    assert.Equal(t, "reports-cache", c.Prefix)
}

func TestLoadRateLimitConfig_Defaults(t *testing.T) {
    c := LoadRateLimitConfig()
    assert.Equal(t, 30, c.Capacity)
    assert.Equal(t, RateByUser, c.KeyStrategy)
    assert.Equal(t, "reports-rl", c.Prefix)

    t.Setenv("RATE_LIMIT_KEY_STRATEGY", "ip_user_route")
    assert.Equal(t, RateByUser, LoadRateLimitConfig().KeyStrategy)
    t.Setenv("RATE_LIMIT_KEY_STRATEGY", RateByUserRoute)
    assert.Equal(t, RateByUserRoute, LoadRateLimitConfig().KeyStrategy)
}

func TestEnvHelpers(t *testing.T) {
    t.Setenv("X_BOOL", "Off")
    t.Setenv("X_INT", "seven")
    t.Setenv("X_DUR", "90s")
    assert.False(t, envBool("X_BOOL", true))
    assert.True(t, envBool("X_UNSET", true))
    assert.Equal(t, 7, envInt("X_INT", 7))
    assert.Equal(t, 90*time.Second, envDur("X_DUR", time.Second))
    assert.Equal(t, map[string]bool{"GET": true, "HEAD": true}, envSet("X_UNSET", " get,,head "))
}
