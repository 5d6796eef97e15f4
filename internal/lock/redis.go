// Package lock provides the Redis backed sweep lock shared by every
// instance of the service.
package lock

import (
	"context"
	"errors"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/reconcile"
)

// DefaultTTL bounds how long a crashed instance can block sweeps.
const DefaultTTL = 2 * time.Minute

// RedisSweepLock implements reconcile.SweepLocker with redislock.  The
// lock is best effort: when Redis itself fails the sweep runs unlocked,
// which is safe because every state change is a compare-and-set.
type RedisSweepLock struct {
	locker *redislock.Client
	key    string
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisSweepLock(rdb *redis.Client, key string, ttl time.Duration, log *logger.Logger) *RedisSweepLock {
	if rdb == nil || log == nil {
		panic("nil dependency passed to NewRedisSweepLock")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisSweepLock{locker: redislock.New(rdb), key: key, ttl: ttl, log: log.With("service", "SweepLock")}
}

func (l *RedisSweepLock) Acquire(ctx context.Context) (func(), error) {
	lk, err := l.locker.Obtain(ctx, l.key, l.ttl, nil)
	if errors.Is(err, redislock.ErrNotObtained) {
		return nil, reconcile.ErrSweepInProgress
	}
	if err != nil {
		l.log.Warn("sweep lock unavailable, sweeping without it", "key", l.key, "error", err)
		return func() {}, nil
	}
	return func() {
		// the sweep's ctx may already be cancelled
		rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := lk.Release(rctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			l.log.Warn("release sweep lock", "key", l.key, "error", err)
		}
	}, nil
}
