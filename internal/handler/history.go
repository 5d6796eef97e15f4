package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/reconcile"
)

// GetHistory handles GET /v1/reports/:id/history
func (h *ReportHandler) GetHistory(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    entries, err := h.History.History(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"report_id": id, "history": entries})
}

// AppendHistory handles POST /v1/reports/:id/history.  It records a
// transition and returns the parent report realigned on its latest entry.
func (h *ReportHandler) AppendHistory(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var in reconcile.StatusInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    rep, entry, err := h.Reports.ChangeStatus(c.Request().Context(), id, in)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"report": rep, "entry": entry})
}

// Statistics handles GET /v1/reports/statistics
func (h *ReportHandler) Statistics(c echo.Context) error {
    stats, err := h.History.Statistics(c.Request().Context())
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, stats)
}
