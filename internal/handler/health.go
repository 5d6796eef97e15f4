package handler // declare the package name; contains HTTP handlers

import (
    "context"  // context bounds the readiness checks
    "net/http" // net/http provides status codes and response helpers
    "time"

    "github.com/labstack/echo/v4" // echo is the web framework used for this project

    "github.com/razherana/s5-web-4-carte/internal/connectivity"
)

// Health is a simple health‑check endpoint used by load balancers and
// monitoring systems to verify that the service is running.  It returns
// a plain text "ok" message with an HTTP 200 status code.
func Health(c echo.Context) error { // Health handler signature accepts an echo context and returns an error
    return c.String(http.StatusOK, "ok") // write "ok" with a 200 OK status; String writes plain text
}

// Pinger is satisfied by the record store.
type Pinger interface {
    Ping(ctx context.Context) error
}

// Ready reports whether the service can take traffic.  The database is
// required; being offline only means mutations will queue for the next
// sweep, so it is reported but does not fail readiness.
func Ready(db Pinger, probe connectivity.Prober) echo.HandlerFunc {
    return func(c echo.Context) error {
        ctx, cancel := context.WithTimeout(c.Request().Context(), 3*time.Second)
        defer cancel()
        online := probe.IsOnline(ctx)
        if err := db.Ping(ctx); err != nil {
            return c.JSON(http.StatusServiceUnavailable, echo.Map{"database": "down", "online": online})
        }
        return c.JSON(http.StatusOK, echo.Map{"database": "ok", "online": online})
    }
}
