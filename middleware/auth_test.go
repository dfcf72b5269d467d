package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "middleware-test-secret-long-enough-1234"

type mapUsers map[string]*models.User

func (m mapUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	return m[id], nil
}

func TestRequireAuth(t *testing.T) {
	e := echo.New()
	tokens := services.NewTokenService(testSecret, "docflow")
	active := &models.User{ID: "u-1", Name: "Jefa", Email: "jefa@example.org", Departamento: "PRIMARIA", Roles: []string{org.RoleJefe}, IsActive: true}
	inactive := &models.User{ID: "u-2", Email: "off@example.org", Roles: []string{org.RoleJefe}}
	users := mapUsers{active.ID: active, inactive.ID: inactive}

	run := func(authHeader string) (echo.Context, error) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if authHeader != "" {
			req.Header.Set(echo.HeaderAuthorization, authHeader)
		}
		c := e.NewContext(req, httptest.NewRecorder())
		err := RequireAuth(tokens, users)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})(c)
		return c, err
	}

	assertStatus := func(t *testing.T, err error, code int) {
		t.Helper()
		he, ok := err.(*echo.HTTPError)
		require.True(t, ok, "expected echo.HTTPError, got %v", err)
		assert.Equal(t, code, he.Code)
	}

	t.Run("ValidToken", func(t *testing.T) {
		token, err := tokens.Issue(active, time.Hour)
		require.NoError(t, err)

		c, err := run("Bearer " + token)
		require.NoError(t, err)
		actor := GetActor(c)
		assert.Equal(t, "u-1", actor.ID)
		assert.Equal(t, []string{org.RoleJefe}, actor.Roles)
		assert.Equal(t, "PRIMARIA", actor.Department)
		assert.Equal(t, active, GetCurrentUser(c))
	})

	t.Run("NoHeader", func(t *testing.T) {
		_, err := run("")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("WrongScheme", func(t *testing.T) {
		_, err := run("Basic dXNlcjpwYXNz")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("InvalidToken", func(t *testing.T) {
		_, err := run("Bearer nope")
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("InactiveUser", func(t *testing.T) {
		token, err := tokens.Issue(inactive, time.Hour)
		require.NoError(t, err)
		_, err = run("Bearer " + token)
		assertStatus(t, err, http.StatusUnauthorized)
	})

	t.Run("UnknownUser", func(t *testing.T) {
		token, err := tokens.Issue(&models.User{ID: "ghost", Email: "ghost@example.org"}, time.Hour)
		require.NoError(t, err)
		_, err = run("Bearer " + token)
		assertStatus(t, err, http.StatusUnauthorized)
	})
}

func TestRequireAccess(t *testing.T) {
	e := echo.New()
	catalog := org.DefaultCatalog()
	mw := RequireAccess(catalog, []string{catalog.Reception()}, []string{org.RoleAsistente})

	tests := []struct {
		name  string
		actor *routing.Actor
		code  int
	}{
		{"Reception assistant", &routing.Actor{ID: "1", Roles: []string{org.RoleAsistente}, Department: catalog.Reception()}, http.StatusOK},
		{"Assistant elsewhere", &routing.Actor{ID: "2", Roles: []string{org.RoleAsistente}, Department: "PRIMARIA"}, http.StatusForbidden},
		{"Wrong role", &routing.Actor{ID: "3", Roles: []string{org.RoleJefe}, Department: catalog.Reception()}, http.StatusForbidden},
		{"Super role bypass", &routing.Actor{ID: "4", Roles: []string{org.RoleAdmin}, Department: "PRIMARIA"}, http.StatusOK},
		{"Anonymous", nil, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)
			if tt.actor != nil {
				c.Set(ContextKeyActor, *tt.actor)
			}
			err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c)
			if tt.code == http.StatusOK {
				require.NoError(t, err)
				assert.Equal(t, http.StatusOK, rec.Code)
				return
			}
			he, ok := err.(*echo.HTTPError)
			require.True(t, ok)
			assert.Equal(t, tt.code, he.Code)
		})
	}
}

func TestGetActor_Empty(t *testing.T) {
	c := echo.New().NewContext(nil, nil)
	assert.False(t, GetActor(c).Authenticated())
	assert.Nil(t, GetCurrentUser(c))
}
