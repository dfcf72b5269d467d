package handlers

import (
	"context"
	"net/http"

	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
)

// transitionHandler binds the body into T and runs one engine transition.
func transitionHandler[T any](run func(ctx context.Context, actor routing.Actor, id string, in T) (*models.Correspondence, error), message string) echo.HandlerFunc {
	return func(c echo.Context) error {
		var in T
		if err := c.Bind(&in); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
		}
		item, err := run(c.Request().Context(), middleware.GetActor(c), c.Param("id"), in)
		if err != nil {
			return err
		}
		return itemResponse(c, http.StatusOK, message, item)
	}
}

// Action is one workflow endpoint under /correspondence/:id/. Depts and
// Roles are the route-level allow-list; the engine still checks who holds
// the case.
type Action struct {
	Path    string
	Handler echo.HandlerFunc
	Depts   []string
	Roles   []string
}

// Actions lists the transition endpoints in routing order.
func (h *CorrespondenceHandler) Actions(catalog *org.Catalog) []Action {
	e := h.engine
	reception := []string{catalog.Reception()}
	direction := []string{catalog.Direction()}
	asistente := []string{org.RoleAsistente}
	director := []string{org.RoleDirector}
	subdirector := []string{org.RoleSubdirector}
	jefe := []string{org.RoleJefe}
	tecnico := []string{org.RoleTecnico}

	return []Action{
		{Path: "send-to-direction", Handler: transitionHandler(e.SendToDirection, "Sent to Direction"), Depts: reception, Roles: asistente},
		{Path: "reception/send-to-direction", Handler: transitionHandler(e.ReceptionSendToDirection, "Sent to Direction"), Depts: reception, Roles: asistente},
		{Path: "route", Handler: transitionHandler(e.RouteFromDirection, "Routed"), Depts: direction, Roles: director},
		{Path: "subdirection/accept", Handler: transitionHandler(e.SubdirectionAccept, "Received by subdirection"), Roles: subdirector},
		{Path: "assign-jefe", Handler: transitionHandler(e.AssignSupervisor, "Supervisor assigned"), Roles: subdirector},
		{Path: "jefe/accept", Handler: transitionHandler(e.SupervisorAccept, "Received by department"), Roles: jefe},
		{Path: "assign-tecnico", Handler: transitionHandler(e.AssignSpecialist, "Specialist assigned"), Roles: jefe},
		{Path: "tecnico/start", Handler: transitionHandler(e.StartWork, "Work started"), Roles: tecnico},
		{Path: "tecnico/resolve", Handler: transitionHandler(e.Resolve, "Resolved"), Roles: tecnico},
		{Path: "jefe/escalate", Handler: transitionHandler(e.EscalateFromDepartment, "Escalated to subdirection"), Roles: jefe},
		{Path: "subdirection/forward", Handler: transitionHandler(e.ForwardToDirection, "Forwarded to Direction"), Roles: subdirector},
		{Path: "direction/remit", Handler: transitionHandler(e.RemitForArchive, "Remitted for archive"), Depts: direction, Roles: director},
		{Path: "archive", Handler: transitionHandler(e.Archive, "Archived"), Depts: reception, Roles: asistente},
		{Path: "return-to-direction", Handler: transitionHandler(e.ReturnToDirection, "Returned to Direction"), Roles: []string{org.RoleSubdirector, org.RoleJefe}},
	}
}
