package middleware

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestErrorHandler(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	handler := ErrorHandler(zap.New(core))
	e := echo.New()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
		code    string
	}{
		{"Validation", &routing.Error{Code: routing.CodeValidation, Message: "folios must be positive"}, http.StatusBadRequest, "folios must be positive", "VALIDATION_ERROR"},
		{"Wrapped not found", fmt.Errorf("load: %w", &routing.Error{Code: routing.CodeNotFound, Message: "correspondence x not found"}), http.StatusNotFound, "correspondence x not found", "NOT_FOUND"},
		{"Invalid state", &routing.Error{Code: routing.CodeInvalidState, Message: "nope"}, http.StatusConflict, "nope", "INVALID_STATE"},
		{"Conflict", &routing.Error{Code: routing.CodeConflict, Message: "changed"}, http.StatusConflict, "changed", "CONFLICT"},
		{"Forbidden", &routing.Error{Code: routing.CodeForbidden, Message: "no"}, http.StatusForbidden, "no", "FORBIDDEN"},
		{"Unauthenticated", &routing.Error{Code: routing.CodeUnauthenticated, Message: "who"}, http.StatusUnauthorized, "who", "UNAUTHENTICATED"},
		{"Echo error", echo.NewHTTPError(http.StatusBadRequest, "invalid body"), http.StatusBadRequest, "invalid body", ""},
		{"Echo not found", echo.ErrNotFound, http.StatusNotFound, "Not Found", ""},
		{"Unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal server error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/correspondence", nil), rec)
			handler(tt.err, c)

			assert.Equal(t, tt.status, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.False(t, body.Success)
			assert.Equal(t, tt.message, body.Message)
			assert.Equal(t, tt.code, body.Code)
		})
	}

	// Only the unexpected failure is logged, without leaking into the body.
	assert.Equal(t, 1, logs.Len())
	assert.Equal(t, "disk on fire", logs.All()[0].ContextMap()["error"])
}

func TestErrorHandler_Head(t *testing.T) {
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(httptest.NewRequest(http.MethodHead, "/", nil), rec)
	ErrorHandler(zap.NewNop())(echo.ErrNotFound, c)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, rec.Body.String())
}
