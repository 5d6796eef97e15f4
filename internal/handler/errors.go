package handler // handler defines http handlers

import (
    "errors"   // errors matches sentinel values
    "net/http" // http provides status code constants

    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/logger"
    "github.com/razherana/s5-web-4-carte/internal/mirror"
    "github.com/razherana/s5-web-4-carte/internal/model"
    "github.com/razherana/s5-web-4-carte/internal/reconcile"
    "github.com/razherana/s5-web-4-carte/internal/repository"
)

// writeError maps domain errors onto HTTP responses.  Unknown errors are
// logged and hidden behind a generic 500.
func writeError(c echo.Context, log *logger.Logger, err error) error {
    var verr *model.ValidationError
    switch {
    case errors.As(err, &verr):
        return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "validation failed", "fields": verr.Fields})
    case errors.Is(err, repository.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "report not found"})
    case errors.Is(err, mirror.ErrNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "remote document not found"})
    case errors.Is(err, repository.ErrConflict):
        return c.JSON(http.StatusConflict, echo.Map{"error": "conflict"})
    case errors.Is(err, reconcile.ErrSweepInProgress):
        return c.JSON(http.StatusConflict, echo.Map{"error": "sweep already in progress"})
    case errors.Is(err, reconcile.ErrNoConnectivity):
        return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "no connectivity"})
    case errors.Is(err, repository.ErrInconsistentStatus):
        log.Error("status history invariant broken", "path", c.Path(), "error", err)
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "status history inconsistent"})
    }
    log.Error("request failed", "path", c.Path(), "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
