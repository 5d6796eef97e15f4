package config

// Mirror drivers.
const (
    MirrorFirestore = "firestore"
    MirrorRedis     = "redis"
    MirrorMemory    = "memory"
)

// MirrorConfig selects and configures the remote document store.
type MirrorConfig struct {
    Driver          string // firestore, redis or memory
    ProjectID       string // Google Cloud project of the Firestore database
    Collection      string // Firestore collection holding the reports
    CredentialsFile string // service account JSON; empty uses application default credentials
    RedisPrefix     string // key prefix of the redis driver
}

func LoadMirrorConfig() MirrorConfig {
    c := MirrorConfig{
        Driver:          envStr("MIRROR_DRIVER", MirrorMemory),
        ProjectID:       envStr("FIRESTORE_PROJECT_ID", envStr("GOOGLE_CLOUD_PROJECT", "")),
        Collection:      envStr("FIRESTORE_COLLECTION", "signalements"),
        CredentialsFile: envStr("GOOGLE_APPLICATION_CREDENTIALS", ""),
        RedisPrefix:     envStr("MIRROR_REDIS_PREFIX", "signalements"),
    }
    switch c.Driver {
    case MirrorFirestore, MirrorRedis, MirrorMemory:
    default:
        c.Driver = MirrorMemory
    }
    // firestore without a project cannot work
    if c.Driver == MirrorFirestore && c.ProjectID == "" {
        c.Driver = MirrorMemory
    }
    return c
}
