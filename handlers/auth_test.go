package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow_app_go/models"
	"docflow_app_go/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestAuthHandler_Login(t *testing.T) {
	app := newTestApp(t)
	hash, err := services.HashPassword("Correcto#2026x")
	require.NoError(t, err)
	jefa := app.user("jefa@example.org")
	require.NoError(t, app.db.Model(&models.User{}).Where("id = ?", jefa.ID).Update("password", hash).Error)

	tec := app.user("tec.b@example.org")
	require.NoError(t, app.db.Model(&models.User{}).Where("id = ?", tec.ID).Updates(map[string]interface{}{"password": hash, "is_active": false}).Error)

	app.e.POST("/api/auth/login", NewAuthHandler(app.directory, app.tokens, 0, zap.NewNop()).Login)

	t.Run("Valid credentials", func(t *testing.T) {
		rec := app.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"email": "JEFA@example.org", "password": "Correcto#2026x"})
		requireStatus(t, rec, http.StatusOK)
		body := decode[struct {
			Token string      `json:"token"`
			Item  models.User `json:"item"`
		}](t, rec)
		require.NotEmpty(t, body.Token)
		assert.Equal(t, jefa.ID, body.Item.ID)

		claims, err := app.tokens.Parse(body.Token)
		require.NoError(t, err)
		assert.Equal(t, jefa.ID, claims.Subject)

		var stored models.User
		require.NoError(t, app.db.First(&stored, "id = ?", jefa.ID).Error)
		assert.NotNil(t, stored.LastLoginAt)
	})

	t.Run("Rejected", func(t *testing.T) {
		cases := map[string]map[string]string{
			"wrong password": {"email": "jefa@example.org", "password": "Otra#2026xxxx"},
			"unknown email":  {"email": "nadie@example.org", "password": "Correcto#2026x"},
			"inactive":       {"email": "tec.b@example.org", "password": "Correcto#2026x"},
		}
		for name, body := range cases {
			t.Run(name, func(t *testing.T) {
				assertError(t, app.do(t, "", http.MethodPost, "/api/auth/login", body), http.StatusUnauthorized)
			})
		}
	})

	t.Run("Missing fields", func(t *testing.T) {
		rec := app.do(t, "", http.MethodPost, "/api/auth/login", map[string]string{"email": "jefa@example.org"})
		assertError(t, rec, http.StatusBadRequest)
	})
}

func TestAuthHandler_ChangePassword(t *testing.T) {
	app := newTestApp(t)
	hash, err := services.HashPassword("Actual#2026xx")
	require.NoError(t, err)
	tec := app.user("tec.a@example.org")
	require.NoError(t, app.db.Model(&models.User{}).Where("id = ?", tec.ID).Update("password", hash).Error)

	change := func(current, next, confirm string) *httptest.ResponseRecorder {
		return app.do(t, "tec.a@example.org", http.MethodPut, "/api/me/password", map[string]string{
			"currentPassword": current,
			"newPassword":     next,
			"confirmPassword": confirm,
		})
	}

	t.Run("Wrong current password", func(t *testing.T) {
		assertError(t, change("Otra#2026xxxx", "Nueva#2026xxxx", "Nueva#2026xxxx"), http.StatusUnauthorized)
	})

	t.Run("Mismatched confirmation", func(t *testing.T) {
		assertError(t, change("Actual#2026xx", "Nueva#2026xxxx", "Nueva#2026yyyy"), http.StatusBadRequest)
	})

	t.Run("Weak password", func(t *testing.T) {
		assertError(t, change("Actual#2026xx", "corta", "corta"), http.StatusBadRequest)
	})

	t.Run("Missing fields", func(t *testing.T) {
		assertError(t, change("", "Nueva#2026xxxx", "Nueva#2026xxxx"), http.StatusBadRequest)
	})

	t.Run("Changed", func(t *testing.T) {
		rec := change("Actual#2026xx", "Nueva#2026xxxx", "Nueva#2026xxxx")
		requireStatus(t, rec, http.StatusOK)

		var stored models.User
		require.NoError(t, app.db.First(&stored, "id = ?", tec.ID).Error)
		assert.True(t, services.CheckPassword("Nueva#2026xxxx", stored.Password))
		assert.False(t, services.CheckPassword("Actual#2026xx", stored.Password))
	})

	t.Run("Anonymous", func(t *testing.T) {
		rec := app.do(t, "", http.MethodPut, "/api/me/password", map[string]string{"currentPassword": "x"})
		assertError(t, rec, http.StatusUnauthorized)
	})
}
