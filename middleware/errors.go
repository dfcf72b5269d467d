package middleware

import (
	"errors"
	"net/http"

	"docflow_app_go/services/routing"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ErrorResponse is the failure envelope of the JSON API.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ErrorHandler renders engine errors, echo HTTP errors and unexpected
// failures in the API envelope. Unexpected failures are logged and reported
// as 500 without detail.
func ErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		resp := ErrorResponse{Message: "internal server error"}

		var he *echo.HTTPError
		if re, ok := routing.AsError(err); ok {
			status = re.Code.HTTPStatus()
			resp.Message = re.Message
			resp.Code = string(re.Code)
		} else if errors.As(err, &he) {
			status = he.Code
			if msg, ok := he.Message.(string); ok {
				resp.Message = msg
			} else {
				resp.Message = http.StatusText(he.Code)
			}
		} else {
			logger.Error("unhandled error",
				zap.String("method", c.Request().Method),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, resp)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}
