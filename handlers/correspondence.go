package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// maxExportRows caps one spreadsheet export.
const maxExportRows = 5000

// Engine is the workflow surface used by the handlers (routing.Engine).
type Engine interface {
	Create(ctx context.Context, actor routing.Actor, in routing.CreateInput) (*models.Correspondence, error)
	Get(ctx context.Context, actor routing.Actor, id string) (*models.Correspondence, error)
	List(ctx context.Context, actor routing.Actor, params routing.ListParams) ([]models.Correspondence, int64, routing.ListFilter, error)

	SendToDirection(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	ReceptionSendToDirection(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	RouteFromDirection(ctx context.Context, actor routing.Actor, id string, in routing.RouteInput) (*models.Correspondence, error)
	SubdirectionAccept(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	AssignSupervisor(ctx context.Context, actor routing.Actor, id string, in routing.AssignSupervisorInput) (*models.Correspondence, error)
	SupervisorAccept(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	AssignSpecialist(ctx context.Context, actor routing.Actor, id string, in routing.AssignSpecialistInput) (*models.Correspondence, error)
	StartWork(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	Resolve(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	EscalateFromDepartment(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	ForwardToDirection(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	RemitForArchive(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	Archive(ctx context.Context, actor routing.Actor, id string, in routing.NotesInput) (*models.Correspondence, error)
	ReturnToDirection(ctx context.Context, actor routing.Actor, id string, in routing.ReturnInput) (*models.Correspondence, error)
}

// ExportAuditor records spreadsheet exports (services.AuditService).
type ExportAuditor interface {
	LogAuditEvent(ac services.AuditContext, action models.AuditAction, entity, entityID, operation string, oldValues, newValues interface{})
}

// CorrespondenceHandler serves the correspondence API.
type CorrespondenceHandler struct {
	engine   Engine
	auditor  ExportAuditor
	location *time.Location
	logger   *zap.Logger
}

// NewCorrespondenceHandler creates a CorrespondenceHandler. loc is the
// timezone used for exported timestamps.
func NewCorrespondenceHandler(engine Engine, auditor ExportAuditor, loc *time.Location, logger *zap.Logger) *CorrespondenceHandler {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CorrespondenceHandler{engine: engine, auditor: auditor, location: loc, logger: logger}
}

// Create registers a new case at reception.
func (h *CorrespondenceHandler) Create(c echo.Context) error {
	var in routing.CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	item, err := h.engine.Create(c.Request().Context(), middleware.GetActor(c), in)
	if err != nil {
		return err
	}
	return itemResponse(c, http.StatusCreated, "Correspondence registered", item)
}

// Get returns one case with its history.
func (h *CorrespondenceHandler) Get(c echo.Context) error {
	item, err := h.engine.Get(c.Request().Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		return err
	}
	return itemResponse(c, http.StatusOK, "", item)
}

// List returns the caller's scoped inbox.
func (h *CorrespondenceHandler) List(c echo.Context) error {
	items, total, filter, err := h.engine.List(c.Request().Context(), middleware.GetActor(c), listParams(c))
	if err != nil {
		return err
	}
	if items == nil {
		items = []models.Correspondence{}
	}
	return okResponse(c, map[string]interface{}{
		"items":      items,
		"pagination": newPagination(filter.Page, filter.Limit, total),
	})
}

// Export streams the filtered inbox as an .xlsx file. Paging parameters are
// ignored; every matching row up to maxExportRows is written.
func (h *CorrespondenceHandler) Export(c echo.Context) error {
	ctx := c.Request().Context()
	actor := middleware.GetActor(c)
	params := listParams(c)
	params.Limit = strconv.Itoa(routing.MaxPageSize)

	var rows []models.Correspondence
	for page := 1; ; page++ {
		params.Page = strconv.Itoa(page)
		items, total, _, err := h.engine.List(ctx, actor, params)
		if err != nil {
			return err
		}
		rows = append(rows, items...)
		if len(items) == 0 || int64(len(rows)) >= total || len(rows) >= maxExportRows {
			break
		}
	}
	if len(rows) > maxExportRows {
		rows = rows[:maxExportRows]
	}

	buf, err := services.ExportCorrespondenceXLSX(rows, h.location)
	if err != nil {
		return fmt.Errorf("failed to build export: %w", err)
	}

	if h.auditor != nil {
		h.auditor.LogAuditEvent(middleware.GetAuditContext(c), models.AuditActionExport,
			routing.EntityCorrespondence, "", "EXPORT_XLSX", nil, map[string]interface{}{
				"rows":   len(rows),
				"query":  c.QueryParams(),
				"userId": actor.ID,
			})
	}

	filename := fmt.Sprintf("correspondencia_%s.xlsx", time.Now().In(h.location).Format("20060102_150405"))
	c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+filename)
	return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func listParams(c echo.Context) routing.ListParams {
	anyState, _ := strconv.ParseBool(c.QueryParam("anyState"))
	return routing.ListParams{
		Q:           c.QueryParam("q"),
		Estado:      c.QueryParam("estado"),
		OwnerDept:   c.QueryParam("ownerDept"),
		OwnerRole:   c.QueryParam("ownerRole"),
		OwnerUserID: c.QueryParam("ownerUserId"),
		CreatedBy:   c.QueryParam("createdBy"),
		DateField:   c.QueryParam("dateField"),
		DateFrom:    c.QueryParam("dateFrom"),
		DateTo:      c.QueryParam("dateTo"),
		AnyState:    anyState,
		Page:        c.QueryParam("page"),
		Limit:       c.QueryParam("limit"),
		Sort:        c.QueryParam("sort"),
	}
}
