package handlers

import (
	"context"
	"net/http"
	"strings"

	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services/org"

	"github.com/labstack/echo/v4"
)

// AssigneeLister lists active users by role (services.UserDirectory).
type AssigneeLister interface {
	ListAssignees(ctx context.Context, role, department string) ([]models.User, error)
}

// DirectoryHandler serves the organization catalog and user pickers.
type DirectoryHandler struct {
	catalog *org.Catalog
	users   AssigneeLister
}

// NewDirectoryHandler creates a DirectoryHandler
func NewDirectoryHandler(catalog *org.Catalog, users AssigneeLister) *DirectoryHandler {
	return &DirectoryHandler{catalog: catalog, users: users}
}

// Catalog returns departments, subdirections and the routing mapping.
func (h *DirectoryHandler) Catalog(c echo.Context) error {
	return okResponse(c, map[string]interface{}{
		"direction":                h.catalog.Direction(),
		"reception":                h.catalog.Reception(),
		"departments":              h.catalog.Departments(),
		"subdirections":            h.catalog.Subdirections(),
		"roles":                    h.catalog.Roles(),
		"noSubdirectorDepartments": h.catalog.NoSubdirectorDepartments(),
		"mapping":                  h.catalog.Mapping(),
	})
}

// Assignees lists candidate supervisors or specialists for the assignment
// pickers. role is JEFE or TECNICO; department is optional.
func (h *DirectoryHandler) Assignees(c echo.Context) error {
	role, ok := h.catalog.CanonicalRole(c.QueryParam("role"))
	if !ok || (role != org.RoleJefe && role != org.RoleTecnico) {
		return echo.NewHTTPError(http.StatusBadRequest, "role must be JEFE or TECNICO")
	}

	department := ""
	if raw := strings.TrimSpace(c.QueryParam("department")); raw != "" {
		canonical, ok := h.catalog.CanonicalDepartment(raw)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "unknown department")
		}
		department = canonical
	}

	users, err := h.users.ListAssignees(c.Request().Context(), role, department)
	if err != nil {
		return err
	}
	if users == nil {
		users = []models.User{}
	}
	return okResponse(c, map[string]interface{}{"items": users})
}

// Me returns the authenticated principal.
func (h *DirectoryHandler) Me(c echo.Context) error {
	actor := middleware.GetActor(c)
	return okResponse(c, map[string]interface{}{
		"item": map[string]interface{}{
			"id":           actor.ID,
			"email":        actor.Email,
			"name":         actor.Name,
			"roles":        actor.Roles,
			"departamento": actor.Department,
			"isSuper":      h.catalog.HasSuperRole(actor.Roles),
		},
	})
}
