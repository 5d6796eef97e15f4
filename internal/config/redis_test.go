package config

import (
    "testing"
    "time"

    "github.com/alicebob/miniredis/v2"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestLoadRedisConfig(t *testing.T) {
    assert.Equal(t, "localhost:6379", LoadRedisConfig().Addr)

    t.Setenv("REDIS_ADDR", "cache:6380")
    assert.Equal(t, "cache:6380", LoadRedisConfig().Addr)

    t.Setenv("REDIS_HOST", "redis")
    t.Setenv("REDIS_PORT", "6379")
    t.Setenv("REDIS_DB", "2")
    c := LoadRedisConfig()
    assert.Equal(t, "redis:6379", c.Addr)
    assert.Equal(t, 2, c.DB)
}

func TestOpenRedis(t *testing.T) {
    mr := miniredis.RunT(t)
    rdb := OpenRedis(RedisConfig{Addr: mr.Addr()})
    require.NotNil(t, rdb)
    _ = rdb.Close()

    addr := mr.Addr()
    mr.Close()
    assert.Nil(t, OpenRedis(RedisConfig{Addr: addr, PingWait: 200 * time.Millisecond}))
}
