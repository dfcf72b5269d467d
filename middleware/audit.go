package middleware

import (
	"docflow_app_go/services"

	"github.com/labstack/echo/v4"
)

const ContextKeyAuditContext = "audit_context"

// AuditContext is middleware that extracts user info for audit logging. The
// result is stored on the echo context and on the request context, where
// services.AuditService picks it up.
func AuditContext() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac := services.AuditContext{
				IPAddress: c.RealIP(),
				UserAgent: c.Request().UserAgent(),
			}

			if user := GetCurrentUser(c); user != nil {
				ac.UserID = user.ID
				ac.UserName = user.Name
				ac.UserEmail = user.Email
				ac.UserDept = user.Departamento
				if len(user.Roles) > 0 {
					ac.UserRole = user.Roles[0]
				}
			}

			c.Set(ContextKeyAuditContext, ac)
			req := c.Request()
			c.SetRequest(req.WithContext(services.ContextWithAudit(req.Context(), ac)))
			return next(c)
		}
	}
}

// GetAuditContext retrieves the audit context from the request
func GetAuditContext(c echo.Context) services.AuditContext {
	if ctx, ok := c.Get(ContextKeyAuditContext).(services.AuditContext); ok {
		return ctx
	}
	return services.AuditContext{}
}
