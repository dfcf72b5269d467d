package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

const auditPageSize = 20

// CaseReader loads one case (routing.Engine).
type CaseReader interface {
	Get(ctx context.Context, actor routing.Actor, id string) (*models.Correspondence, error)
}

// AuditLogHandler serves the audit trail.
type AuditLogHandler struct {
	db    *gorm.DB
	cases CaseReader
	loc   *time.Location
}

// NewAuditLogHandler creates an AuditLogHandler. Date filters are read in loc.
func NewAuditLogHandler(db *gorm.DB, cases CaseReader, loc *time.Location) *AuditLogHandler {
	if loc == nil {
		loc = time.UTC
	}
	return &AuditLogHandler{db: db, cases: cases, loc: loc}
}

// List returns filtered and paginated audit logs
func (h *AuditLogHandler) List(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}

	filters := services.AuditLogFilters{
		UserID:      c.QueryParam("userId"),
		UserDept:    c.QueryParam("userDept"),
		Entity:      c.QueryParam("entity"),
		EntityID:    c.QueryParam("entityId"),
		Action:      strings.ToUpper(c.QueryParam("action")),
		Operation:   c.QueryParam("operation"),
		SearchQuery: c.QueryParam("q"),
	}

	if dateFrom := c.QueryParam("dateFrom"); dateFrom != "" {
		t, err := time.ParseInLocation("2006-01-02", dateFrom, h.loc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dateFrom must be YYYY-MM-DD")
		}
		filters.DateFrom = t
	}
	if dateTo := c.QueryParam("dateTo"); dateTo != "" {
		t, err := time.ParseInLocation("2006-01-02", dateTo, h.loc)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "dateTo must be YYYY-MM-DD")
		}
		filters.DateTo = t.Add(24*time.Hour - time.Nanosecond) // end of day
	}

	logs, total, err := services.QueryAuditLogs(h.db, filters, page, auditPageSize)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch audit logs")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}

	return okResponse(c, map[string]interface{}{
		"items":      logs,
		"pagination": newPagination(page, auditPageSize, total),
	})
}

// CaseHistory returns the audit entries of one case, newest first.
func (h *AuditLogHandler) CaseHistory(c echo.Context) error {
	item, err := h.cases.Get(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return err
	}

	logs, err := services.GetEntityAuditHistory(h.db, routing.EntityCorrespondence, item.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to fetch history")
	}
	if logs == nil {
		logs = []models.AuditLog{}
	}
	return okResponse(c, map[string]interface{}{"items": logs})
}
