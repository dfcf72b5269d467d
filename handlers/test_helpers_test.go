package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"docflow_app_go/config"
	"docflow_app_go/db"
	"docflow_app_go/middleware"
	"docflow_app_go/models"
	"docflow_app_go/services"
	"docflow_app_go/services/org"
	"docflow_app_go/services/routing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret  = "handlers-test-secret-long-enough-12345"
	subBasica   = "SUBDIRECCIÓN DE EDUCACIÓN BÁSICA"
	deptPrim    = "PRIMARIA"
	validDocURL = "https://drive.google.com/file/d/1AbCdEfGhIjKlMnOp/view"
)

func setupTestDB(t *testing.T) *gorm.DB {
	// Use unique shared memory name to isolate tests while allowing shared cache for async tasks
	dbName := "mem_" + uuid.New().String()
	testDB, err := gorm.Open(sqlite.Open("file:"+dbName+"?mode=memory&cache=shared&_busy_timeout=5000"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = testDB.AutoMigrate(
		&models.User{},
		&models.AuditLog{},
		&models.Correspondence{},
		&models.CorrespondenceHistory{},
	)
	require.NoError(t, err)

	db.DB = testDB
	return testDB
}

func setupEcho(method, path string, body io.Reader) (*echo.Echo, echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, path, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	// Add config to context
	c.Set("config", &config.Config{
		Environment: "test",
	})

	return e, c, rec
}

// testApp is the API wired the way cmd/server wires it, over sqlite.
type testApp struct {
	e         *echo.Echo
	db        *gorm.DB
	audit     *services.AuditService
	tokens    *services.TokenService
	directory *services.UserDirectory
	users     map[string]*models.User
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	testDB := setupTestDB(t)
	catalog := org.DefaultCatalog()

	app := &testApp{
		db:     testDB,
		audit:  services.NewAuditService(testDB, zap.NewNop()),
		tokens: services.NewTokenService(testSecret, "docflow"),
		users:  make(map[string]*models.User),
	}
	t.Cleanup(func() { app.audit.Flush(2 * time.Second) })

	for _, u := range []*models.User{
		{Name: "Recepción", Email: "recepcion@example.org", Departamento: "Administracion", Roles: []string{"Asistente"}},
		{Name: "Directora", Email: "director@example.org", Departamento: "DIRECCIÓN", Roles: []string{org.RoleDirector}},
		{Name: "Subdirector", Email: "sub@example.org", Departamento: subBasica, Roles: []string{org.RoleSubdirector}},
		{Name: "Jefa Primaria", Email: "jefa@example.org", Departamento: deptPrim, Roles: []string{org.RoleJefe}},
		{Name: "Técnico A", Email: "tec.a@example.org", Departamento: deptPrim, Roles: []string{org.RoleTecnico}},
		{Name: "Técnico B", Email: "tec.b@example.org", Departamento: deptPrim, Roles: []string{org.RoleTecnico}},
		{Name: "Admin", Email: "admin@example.org", Departamento: "DIRECCIÓN", Roles: []string{org.RoleAdmin}},
	} {
		u.Password = "x"
		u.IsActive = true
		require.NoError(t, testDB.Create(u).Error)
		app.users[u.Email] = u
	}

	directory := services.NewUserDirectory(testDB, catalog)
	app.directory = directory
	engine := routing.NewEngine(catalog, routing.NewGormStore(testDB), directory,
		routing.WithAuditSink(app.audit),
		routing.WithDocumentValidator(services.NewDocumentChecker(nil, nil)),
	)

	e := echo.New()
	e.HTTPErrorHandler = middleware.ErrorHandler(zap.NewNop())
	api := e.Group("/api", middleware.RequireAuth(app.tokens, directory), middleware.AuditContext())
	RegisterAPI(api, catalog,
		NewCorrespondenceHandler(engine, app.audit, time.UTC, nil),
		NewDirectoryHandler(catalog, directory),
		NewAuditLogHandler(testDB, engine, time.UTC),
		NewAuthHandler(directory, app.tokens, time.Hour, nil),
		nil,
	)
	app.e = e
	return app
}

func (a *testApp) user(email string) *models.User {
	return a.users[email]
}

// do sends an authenticated JSON request as the user with email. An empty
// email sends no token.
func (a *testApp) do(t *testing.T, email, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if email != "" {
		token, err := a.tokens.Issue(a.user(email), time.Hour)
		require.NoError(t, err)
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.e.ServeHTTP(rec, req)
	return rec
}

type itemEnvelope struct {
	Success bool                  `json:"success"`
	Message string                `json:"message"`
	Item    models.Correspondence `json:"item"`
}

type listEnvelope struct {
	Success    bool                    `json:"success"`
	Items      []models.Correspondence `json:"items"`
	Pagination Pagination              `json:"pagination"`
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	require.Equal(t, status, rec.Code, rec.Body.String())
}

func assertError(t *testing.T, rec *httptest.ResponseRecorder, status int) {
	t.Helper()
	assert.Equal(t, status, rec.Code, rec.Body.String())
	body := decode[middleware.ErrorResponse](t, rec)
	assert.False(t, body.Success)
	assert.NotEmpty(t, body.Message)
}

func (a *testApp) createCase(t *testing.T) models.Correspondence {
	t.Helper()
	rec := a.do(t, "recepcion@example.org", http.MethodPost, "/api/correspondence", map[string]interface{}{
		"regExpediente":     "EXP-2026-001",
		"documentoRecibido": "Oficio 12/2026",
		"enviadoPor":        "Escuela Primaria Benito Juárez",
		"folios":            3,
		"profesionales":     []string{"Lic. Ruiz"},
		"documentoUrl":      validDocURL,
	})
	requireStatus(t, rec, http.StatusCreated)
	return decode[itemEnvelope](t, rec).Item
}

func (a *testApp) act(t *testing.T, email, id, action string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return a.do(t, email, http.MethodPost, "/api/correspondence/"+id+"/"+action, body)
}
