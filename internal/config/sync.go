package config

import "time"

// SyncConfig tunes the reconciler and the connectivity probe.
type SyncConfig struct {
    CallTimeout time.Duration // bound of every remote mirror call
    Workers     int           // concurrent remote calls during a sweep
    Interval    time.Duration // periodic sweep; 0 disables it
    LockKey     string        // redis key serialising sweeps across instances
    LockTTL     time.Duration // upper bound of a sweep holding the lock

    ProbeAddr     string        // host:port dialled to decide online/offline
    ProbeTimeout  time.Duration // dial timeout, at most 2s
    ProbeCacheTTL time.Duration // reuse of the last answer, below 1s
    ForceOffline  bool          // skip the probe and always report offline
}

func LoadSyncConfig() SyncConfig {
    c := SyncConfig{
        CallTimeout:   envDur("MIRROR_CALL_TIMEOUT", 3*time.Second),
        Workers:       envInt("SYNC_WORKERS", 4),
        Interval:      envDur("SYNC_INTERVAL", 0),
        LockKey:       envStr("SYNC_LOCK_KEY", "reports:sweep-lock"),
        LockTTL:       envDur("SYNC_LOCK_TTL", 2*time.Minute),
        ProbeAddr:     envStr("CONNECTIVITY_PROBE_ADDR", "8.8.8.8:53"),
        ProbeTimeout:  envDur("CONNECTIVITY_TIMEOUT", 2*time.Second),
        ProbeCacheTTL: envDur("CONNECTIVITY_CACHE_TTL", 0),
        ForceOffline:  envBool("CONNECTIVITY_FORCE_OFFLINE", false),
    }
    if c.CallTimeout <= 0 { c.CallTimeout = 3 * time.Second }
    if c.Workers < 1 { c.Workers = 1 }
    if c.Interval < 0 { c.Interval = 0 }
    return c
}
