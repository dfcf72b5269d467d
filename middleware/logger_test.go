package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type MockHTTPRecorder struct {
	mock.Mock
}

func (m *MockHTTPRecorder) RecordHTTPRequest(method, pathPattern string, status int, elapsed time.Duration) {
	m.Called(method, pathPattern, status, elapsed)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	metrics := new(MockHTTPRecorder)
	metrics.On("RecordHTTPRequest", "GET", "/api/correspondence/:id", 200, mock.AnythingOfType("time.Duration")).Return().Once()
	metrics.On("RecordHTTPRequest", "GET", "/api/correspondence/:id", 404, mock.AnythingOfType("time.Duration")).Return().Once()

	e := echo.New()
	e.HTTPErrorHandler = ErrorHandler(zap.NewNop())
	e.Use(RequestLogger(zap.New(core), metrics))
	e.GET("/api/correspondence/:id", func(c echo.Context) error {
		if c.Param("id") == "missing" {
			return echo.NewHTTPError(http.StatusNotFound, "not found")
		}
		return c.NoContent(http.StatusOK)
	})

	for _, path := range []string{"/api/correspondence/abc", "/api/correspondence/missing"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	}

	require.Equal(t, 2, logs.Len())
	assert.Equal(t, zapcore.InfoLevel, logs.All()[0].Level)
	assert.Equal(t, zapcore.WarnLevel, logs.All()[1].Level)
	assert.EqualValues(t, 404, logs.All()[1].ContextMap()["status"])

	metrics.AssertExpectations(t)
}
