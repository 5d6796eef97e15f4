package router // router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/razherana/s5-web-4-carte/internal/config"
	"github.com/razherana/s5-web-4-carte/internal/handler"    // report handlers
	"github.com/razherana/s5-web-4-carte/internal/logger"
	"github.com/razherana/s5-web-4-carte/internal/middleware" // JWT, role, rate limit and cache middlewares
	"github.com/razherana/s5-web-4-carte/internal/model"
)

// ReportDeps carries what the /v1 report routes need.  Redis is optional:
// without it rate limiting and caching are disabled.
type ReportDeps struct {
	Handler   *handler.ReportHandler
	JWTSecret string
	Redis     *redis.Client
	RateLimit config.RateLimitConfig
	Cache     config.CacheConfig
	Log       *logger.Logger
}

// RegisterReports registers the report endpoints under /v1.  Every route
// requires a valid token; the sweep, the audit and the remote copy
// additionally require the MANAGER role.  Mutations are rate limited and start a new cache generation;
// the statistics are cached.
func RegisterReports(e *echo.Echo, d ReportDeps) {
	h := d.Handler
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(model.RoleUser, model.RoleManager),
	)
	limit := middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log)
	cache := middleware.NewRedisCache(d.Cache, d.Redis)
	invalidate := middleware.InvalidateCache(d.Cache, d.Redis)

	// ---- Reports ----
	g.POST("/reports", h.CreateReport, limit, invalidate)
	g.GET("/reports", h.ListReports)
	// static segments win over :id in echo's router
	g.GET("/reports/statistics", h.Statistics, cache)
	g.POST("/reports/sync", h.SyncReports, middleware.RequireManager(), limit, invalidate)
	g.GET("/reports/audit", h.AuditReports, middleware.RequireManager())
	g.GET("/reports/:id", h.GetReport)
	g.PUT("/reports/:id", h.UpdateReport, limit, invalidate)
	g.PATCH("/reports/:id", h.UpdateReport, limit, invalidate) // same partial semantics as PUT
	g.DELETE("/reports/:id", h.DeleteReport, limit, invalidate)

	// ---- History ----
	g.GET("/reports/:id/history", h.GetHistory)
	g.POST("/reports/:id/history", h.AppendHistory, limit, invalidate)

	// ---- Live updates ----
	g.GET("/reports/:id/events", h.StreamEvents)

	// ---- Mirror ----
	g.GET("/reports/:id/remote", h.GetRemoteCopy, middleware.RequireManager())

	// ---- Companies ----
	g.GET("/companies", h.ListCompanies)
}
