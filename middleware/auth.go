package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
)

const (
	// ContextKeyActor is the context key for the authenticated principal
	ContextKeyActor = "actor"
	// ContextKeyUser is the context key for the authenticated user record
	ContextKeyUser = "user"
)

// TokenParser verifies bearer tokens (services.TokenService).
type TokenParser interface {
	Parse(token string) (*services.PrincipalClaims, error)
}

// UserLookup loads users by id (services.UserDirectory).
type UserLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// RequireAuth verifies the bearer token and loads the user it names. The
// stored user record, already canonicalized by the directory, becomes the
// request's actor, so role changes apply without reissuing tokens.
func RequireAuth(tokens TokenParser, users UserLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request())
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}

			claims, err := tokens.Parse(raw)
			if err != nil {
				if errors.Is(err, services.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			user, err := users.FindByID(c.Request().Context(), claims.Subject)
			if err != nil {
				return err
			}
			if user == nil || !user.IsActive {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			c.Set(ContextKeyUser, user)
			c.Set(ContextKeyActor, services.ActorFromUser(user))
			return next(c)
		}
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get(echo.HeaderAuthorization)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// RequireAccess limits a route to callers in one of depts holding one of
// roles. Empty lists do not restrict; super roles always pass.
func RequireAccess(catalog *org.Catalog, depts []string, roles []string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor := GetActor(c)
			if !actor.Authenticated() {
				return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
			}
			if catalog.HasSuperRole(actor.Roles) {
				return next(c)
			}

			if len(depts) > 0 && !containsString(depts, actor.Department) {
				return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
			}
			if len(roles) > 0 {
				hasRole := false
				for _, role := range roles {
					if actor.HasRole(role) {
						hasRole = true
						break
					}
				}
				if !hasRole {
					return echo.NewHTTPError(http.StatusForbidden, "insufficient permissions")
				}
			}

			return next(c)
		}
	}
}

// GetActor retrieves the authenticated principal, or the zero Actor.
func GetActor(c echo.Context) routing.Actor {
	actor, _ := c.Get(ContextKeyActor).(routing.Actor)
	return actor
}

// GetCurrentUser retrieves the current user from context
func GetCurrentUser(c echo.Context) *models.User {
	user, ok := c.Get(ContextKeyUser).(*models.User)
	if !ok {
		return nil
	}
	return user
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
