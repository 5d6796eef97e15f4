package handler // handler package contains the report endpoints

import (
    "context"  // context is passed down to the reconciler
    "net/http" // http provides status code constants
    "strconv"  // strconv parses identifiers and filters

    "github.com/labstack/echo/v4"

    "github.com/razherana/s5-web-4-carte/internal/events"
    "github.com/razherana/s5-web-4-carte/internal/ledger"
    "github.com/razherana/s5-web-4-carte/internal/logger"
    "github.com/razherana/s5-web-4-carte/internal/middleware"
    "github.com/razherana/s5-web-4-carte/internal/mirror"
    "github.com/razherana/s5-web-4-carte/internal/model"
    "github.com/razherana/s5-web-4-carte/internal/reconcile"
)

// Reports is what the handlers need from the reconciler.
type Reports interface {
    Get(ctx context.Context, id uint64) (*model.Report, error)
    List(ctx context.Context, f model.ReportFilter) ([]model.Report, error)
    Create(ctx context.Context, p model.Principal, in reconcile.ReportInput) (*model.Report, error)
    Update(ctx context.Context, id uint64, in reconcile.ReportInput) (*model.Report, error)
    Delete(ctx context.Context, id uint64) (*reconcile.DeleteResult, error)
    ChangeStatus(ctx context.Context, id uint64, in reconcile.StatusInput) (*model.Report, *model.StatusHistoryEntry, error)
    SyncPending(ctx context.Context) (*reconcile.SweepResult, error)
    Audit(ctx context.Context) (*reconcile.AuditResult, error)
    RemoteCopy(ctx context.Context, id uint64) (mirror.Document, error)
}

// History is what the handlers need from the ledger.
type History interface {
    History(ctx context.Context, reportID uint64) ([]model.StatusHistoryEntry, error)
    Statistics(ctx context.Context) (ledger.Statistics, error)
}

// CompanyLister lists the companies known to the record store.
type CompanyLister interface {
    ListCompanies(ctx context.Context) ([]model.Company, error)
}

// ReportHandler bundles the services behind the /v1/reports endpoints
type ReportHandler struct {
    Reports   Reports
    History   History
    Companies CompanyLister
    Hub       *events.Hub
    log       *logger.Logger
}

// NewReportHandler constructs a ReportHandler and panics if any dependency is nil
func NewReportHandler(reports Reports, history History, companies CompanyLister, hub *events.Hub, log *logger.Logger) *ReportHandler {
    if reports == nil || history == nil || companies == nil || hub == nil || log == nil {
        panic("nil dependency passed to NewReportHandler")
    }
    return &ReportHandler{
        Reports:   reports,
        History:   history,
        Companies: companies,
        Hub:       hub,
        log:       log.With("handler", "Report"),
    }
}

// parseID reads the :id path parameter
func parseID(c echo.Context) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param("id"), 10, 64)
    return id, err == nil && id > 0
}

// CreateReport handles POST /v1/reports and returns the stored report with its sync state
func (h *ReportHandler) CreateReport(c echo.Context) error {
    p, ok := middleware.PrincipalFrom(c) // the caller becomes the report's owner
    if !ok {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
    }
    var in reconcile.ReportInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    rep, err := h.Reports.Create(c.Request().Context(), p, in)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, rep)
}

// ListReports handles GET /v1/reports with optional sync_state, user_id, company_id and status filters
func (h *ReportHandler) ListReports(c echo.Context) error {
    f, verr := parseFilter(c)
    if verr != nil {
        return writeError(c, h.log, verr)
    }
    reps, err := h.Reports.List(c.Request().Context(), f)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, reps)
}

func parseFilter(c echo.Context) (model.ReportFilter, error) {
    var f model.ReportFilter
    verr := model.NewValidationError()
    if v := c.QueryParam("sync_state"); v != "" {
        s := model.SyncState(v)
        if s.Valid() {
            f.SyncState = &s
        } else {
            verr.Add("sync_state", "oneof created synced updated deleted")
        }
    }
    if v := c.QueryParam("status"); v != "" {
        s := model.Status(v)
        if s.Valid() {
            f.Status = &s
        } else {
            verr.Add("status", "oneof pending in_progress resolved rejected")
        }
    }
    for name, dst := range map[string]**uint64{"user_id": &f.UserID, "company_id": &f.CompanyID} {
        v := c.QueryParam(name)
        if v == "" {
            continue
        }
        n, err := strconv.ParseUint(v, 10, 64)
        if err != nil {
            verr.Add(name, "numeric")
            continue
        }
        *dst = &n
    }
    return f, verr.OrNil()
}

// GetReport handles GET /v1/reports/:id
func (h *ReportHandler) GetReport(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    rep, err := h.Reports.Get(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, rep)
}

// UpdateReport handles PUT and PATCH /v1/reports/:id; both apply only the fields sent
func (h *ReportHandler) UpdateReport(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    var in reconcile.ReportInput
    if err := c.Bind(&in); err != nil {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
    }
    rep, err := h.Reports.Update(c.Request().Context(), id, in)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, rep)
}

// DeleteReport handles DELETE /v1/reports/:id.  The body says whether the row
// was purged or only tagged for remote deletion.
func (h *ReportHandler) DeleteReport(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    res, err := h.Reports.Delete(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// SyncReports handles POST /v1/reports/sync (managers only)
func (h *ReportHandler) SyncReports(c echo.Context) error {
    res, err := h.Reports.SyncPending(c.Request().Context())
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// AuditReports handles GET /v1/reports/audit (managers only)
func (h *ReportHandler) AuditReports(c echo.Context) error {
    res, err := h.Reports.Audit(c.Request().Context())
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, res)
}

// GetRemoteCopy handles GET /v1/reports/:id/remote (managers only)
func (h *ReportHandler) GetRemoteCopy(c echo.Context) error {
    id, ok := parseID(c)
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
    }
    doc, err := h.Reports.RemoteCopy(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, doc)
}

// ListCompanies handles GET /v1/companies
func (h *ReportHandler) ListCompanies(c echo.Context) error {
    companies, err := h.Companies.ListCompanies(c.Request().Context())
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, companies)
}
