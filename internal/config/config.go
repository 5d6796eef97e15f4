package config // package config loads application configuration from environment variables

import (
    "log"      // log is used to report configuration errors and halt execution
    "os"       // os provides access to environment variables
)

// Config holds the core runtime configuration.  Each field corresponds to
// an environment variable.  Settings of optional subsystems (cache, rate
// limit, mirror, sync) have their own loaders.
type Config struct {
    Env         string // application environment (e.g. "dev", "prod")
    Port        string // HTTP port to listen on
    DBUser      string // database username
    DBPass      string // database password (optional)
    DBHost      string // database host address
    DBPort      string // database port number
    DBName      string // database name
    DBMaxConns  int    // connection pool size
    JWTSecret   string // secret used to verify identity provider tokens
    RabbitMQURL string // broker URL; empty disables status notifications
    LogDir      string // directory of the status audit log
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    return Config{
        Env:         must("APP_ENV"),                 // environment (dev/test/prod)
        Port:        must("APP_PORT"),                // port to bind the HTTP server
        DBUser:      must("DB_USER"),                 // database user
        DBPass:      os.Getenv("DB_PASS"),            // database password (empty allowed)
        DBHost:      must("DB_HOST"),                 // database host
        DBPort:      must("DB_PORT"),                 // database port
        DBName:      must("DB_NAME"),                 // database name
        DBMaxConns:  envInt("DB_MAX_CONNS", 10),      // pool size
        JWTSecret:   must("JWT_SECRET"),              // secret used for verifying JWTs
        RabbitMQURL: rabbitURL(),                     // optional broker
        LogDir:      envStr("LOG_DIR", "logs"),       // audit log directory
    }
}

// rabbitURL accepts both RABBITMQ_URL and AMQP_URL.
func rabbitURL() string {
    if v := os.Getenv("RABBITMQ_URL"); v != "" {
        return v
    }
    return os.Getenv("AMQP_URL")
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        log.Fatalf("missing required env var: %s", key)
    }
    return v
}
