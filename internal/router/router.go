package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/razherana/s5-web-4-carte/internal/connectivity"
	"github.com/razherana/s5-web-4-carte/internal/handler" // import the handlers that implement business logic
)

// RegisterRoutes registers routes that do not require authentication on the
// provided Echo instance: liveness, readiness and the Prometheus metrics
// of gatherer.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, probe connectivity.Prober, gatherer prometheus.Gatherer) {
	// Liveness: the process answers.
	e.GET("/healthz", handler.Health)
	// Readiness: the database answers; connectivity is reported.
	e.GET("/readyz", handler.Ready(db, probe))
	// Metrics in the Prometheus text format.
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
}
