package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// RequestRecorder observes served requests (observability.Metrics).
type RequestRecorder interface {
	RecordHTTPRequest(method, pathPattern string, status int, duration time.Duration)
}

// RequestLogger logs one structured line per request and, when metrics is
// set, records it by route pattern.
func RequestLogger(logger *zap.Logger, metrics RequestRecorder) echo.MiddlewareFunc {
	return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		HandleError:  true,
		LogMethod:    true,
		LogURI:       true,
		LogRoutePath: true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("remote_ip", v.RemoteIP),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if actor := GetActor(c); actor.Authenticated() {
				fields = append(fields, zap.String("user_id", actor.ID))
			}

			switch {
			case v.Status >= 500:
				logger.Error("request", append(fields, zap.Error(v.Error))...)
			case v.Status >= 400:
				logger.Warn("request", fields...)
			default:
				logger.Info("request", fields...)
			}

			if metrics != nil {
				path := v.RoutePath
				if path == "" {
					path = "unmatched"
				}
				metrics.RecordHTTPRequest(v.Method, path, v.Status, v.Latency)
			}
			return nil
		},
	})
}
