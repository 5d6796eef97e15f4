package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"

	"github.com/razherana/s5-web-4-carte/internal/connectivity"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func serve(e *echo.Echo, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestRegisterRoutes_ReadyReflectsDatabase(t *testing.T) {
	e := echo.New()
	RegisterRoutes(e, pinger{err: errors.New("connection refused")}, connectivity.NewStatic(true), prometheus.NewRegistry())

	rec := serve(e, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"database":"down","online":true}`, rec.Body.String())

	assert.Equal(t, http.StatusOK, serve(e, "/healthz").Code)
}

func TestRegisterRoutes_MetricsUsesGivenGatherer(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	e := echo.New()
	RegisterRoutes(e, pinger{}, connectivity.NewStatic(false), reg)

	rec := serve(e, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "router_test_total 1")
}
