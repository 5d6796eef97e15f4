package handler

import (
    "encoding/json"
    "fmt"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/events"
)

// streamBuffer is how many events a slow client may lag behind before
// further events are dropped for it.
const streamBuffer = 16

// heartbeatEvery keeps idle connections open through proxies.
var heartbeatEvery = 15 * time.Second

// StreamEvents handles GET /v1/reports/:id/events.  It holds a
// server-sent event stream open and forwards every change of the report
// until the client leaves or the report is deleted.
func (h *ReportHandler) StreamEvents(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    ctx := c.Request().Context()
    if _, err := h.Reports.Get(ctx, id); err != nil {
        return writeError(c, h.log, err)
    }

    ch := make(chan events.Event, streamBuffer)
    unsubscribe := h.Hub.Subscribe(id, func(ev events.Event) {
        select {
        case ch <- ev:
        default:
            h.log.Warn("event stream lagging, dropping event", "report_id", id, "kind", ev.Kind)
        }
    })
    defer unsubscribe()

    res := c.Response()
    res.Header().Set(echo.HeaderContentType, "text/event-stream")
    res.Header().Set(echo.HeaderCacheControl, "no-cache")
    res.Header().Set(echo.HeaderConnection, "keep-alive")
    res.WriteHeader(http.StatusOK)
    res.Flush()

    ticker := time.NewTicker(heartbeatEvery)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return nil
        case <-ticker.C:
            if _, err := fmt.Fprint(res, ": ping\n\n"); err != nil {
                return nil
            }
            res.Flush()
        case ev := <-ch:
            data, err := json.Marshal(ev)
            if err != nil {
                h.log.Error("encode event", "report_id", id, "error", err)
                continue
            }
            if _, err := fmt.Fprintf(res, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
                return nil
            }
            res.Flush()
            if ev.Kind == events.KindDeleted {
                return nil
            }
        }
    }
}
