package handlers

import (
	"docflow_app_go/middleware"
	"docflow_app_go/services/org"

	"github.com/labstack/echo/v4"
)

// RegisterAPI mounts the authenticated API on g. The group is expected to
// run middleware.RequireAuth and middleware.AuditContext already; write
// routes additionally pass through limiter when it is set.
func RegisterAPI(g *echo.Group, catalog *org.Catalog, cases *CorrespondenceHandler, directory *DirectoryHandler, audit *AuditLogHandler, auth *AuthHandler, limiter echo.MiddlewareFunc) {
	writes := []echo.MiddlewareFunc{}
	if limiter != nil {
		writes = append(writes, limiter)
	}

	g.GET("/me", directory.Me)
	g.PUT("/me/password", auth.ChangePassword, writes...)
	g.GET("/catalog", directory.Catalog)
	g.GET("/audit-logs", audit.List,
		middleware.RequireAccess(catalog, nil, []string{org.RoleDirector}))

	corr := g.Group("/correspondence")
	{
		corr.GET("", cases.List)
		corr.GET("/export", cases.Export)
		corr.GET("/assignees", directory.Assignees,
			middleware.RequireAccess(catalog, nil, []string{org.RoleDirector, org.RoleSubdirector, org.RoleJefe}))
		corr.GET("/:id", cases.Get)
		corr.GET("/:id/audit", audit.CaseHistory)

		// Intake is gated to reception assistants at the route level.
		corr.POST("", cases.Create, append(writes,
			middleware.RequireAccess(catalog, []string{catalog.Reception()}, []string{org.RoleAsistente}))...)

		for _, action := range cases.Actions(catalog) {
			mw := append(append([]echo.MiddlewareFunc{}, writes...),
				middleware.RequireAccess(catalog, action.Depts, action.Roles))
			corr.POST("/:id/"+action.Path, action.Handler, mw...)
		}
	}
}
