package logger

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"go.uber.org/zap"

	apperrors "github.com/wekeepgrowing/portal-billing/pkg/errors"
)

var skippedPaths = map[string]struct{}{
	"/health":  {},
	"/metrics": {},
}

// NewEchoRequestLogger logs one entry per request. Health probes are skipped
// and the Authorization header is masked.
func NewEchoRequestLogger(logger *zap.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			_, skip := skippedPaths[c.Request().URL.Path]
			return skip
		},
		HandleError:     true,
		LogLatency:      true,
		LogRemoteIP:     true,
		LogMethod:       true,
		LogURI:          true,
		LogRoutePath:    true,
		LogRequestID:    true,
		LogUserAgent:    true,
		LogStatus:       true,
		LogError:        true,
		LogResponseSize: true,
		LogHeaders:      []string{"Content-Type", "Authorization", "Stripe-Signature"},
		LogQueryParams:  []string{"status", "page", "limit", "unreadOnly"},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request.remote_ip", v.RemoteIP),
				zap.String("request.method", v.Method),
				zap.String("request.uri", v.URI),
				zap.String("request.route", v.RoutePath),
				zap.String("request.user_agent", v.UserAgent),
				zap.String("request.request_id", v.RequestID),
				zap.Int("response.status", v.Status),
				zap.Duration("response.latency", v.Latency),
				zap.Int64("response.size", v.ResponseSize),
			}

			if len(v.Headers) > 0 {
				headers := make(map[string]string, len(v.Headers))
				for k, values := range v.Headers {
					if len(values) == 0 {
						continue
					}
					headers[k] = maskHeader(k, values[0])
				}
				fields = append(fields, zap.Any("request.headers", headers))
			}
			if len(v.QueryParams) > 0 {
				fields = append(fields, zap.Any("request.query_params", v.QueryParams))
			}

			switch {
			case v.Error != nil && v.Status >= http.StatusInternalServerError:
				logger.Error("Request failed", append(fields, zap.Error(v.Error))...)
			case v.Status >= http.StatusInternalServerError:
				logger.Error("Server error", fields...)
			case v.Status >= http.StatusBadRequest:
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Warn("Client error", fields...)
			default:
				logger.Info("Request completed", fields...)
			}
			return nil
		},
	})
}

func maskHeader(name, value string) string {
	switch name {
	case "Authorization", "Stripe-Signature":
		if len(value) > 15 {
			return value[:10] + "..." + value[len(value)-5:]
		}
		return "[MASKED]"
	default:
		return value
	}
}

// WithEchoLogger routes echo's own logging through zap and installs an error
// handler that renders AppErrors as {"error", "code"} JSON bodies.
func WithEchoLogger(e *echo.Echo, logger *zap.Logger) {
	e.Logger = NewEchoZapLogger(logger)

	e.HTTPErrorHandler = func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		httpErr := apperrors.ToHTTPError(err)
		if httpErr.Code >= http.StatusInternalServerError {
			logger.Error("HTTP error",
				zap.Error(err),
				zap.Int("status", httpErr.Code),
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
			)
		}

		body := map[string]interface{}{
			"error": httpErr.Message,
		}
		if code := apperrors.CodeOf(err); code != apperrors.ErrInternal {
			body["code"] = code
		}

		var respErr error
		if c.Request().Method == http.MethodHead {
			respErr = c.NoContent(httpErr.Code)
		} else {
			respErr = c.JSON(httpErr.Code, body)
		}
		if respErr != nil {
			logger.Error("Failed to send error response", zap.Error(respErr))
		}
	}
}

// EchoZapLogger adapts zap to echo.Logger.
type EchoZapLogger struct {
	Logger *zap.Logger
	level  log.Lvl
}

// NewEchoZapLogger creates an echo.Logger backed by zap.
func NewEchoZapLogger(logger *zap.Logger) *EchoZapLogger {
	return &EchoZapLogger{Logger: logger.Named("echo"), level: log.INFO}
}

func (l *EchoZapLogger) Output() io.Writer      { return &zapWriter{logger: l.Logger} }
func (l *EchoZapLogger) SetOutput(w io.Writer)  {}
func (l *EchoZapLogger) Level() log.Lvl         { return l.level }
func (l *EchoZapLogger) SetLevel(v log.Lvl)     { l.level = v }
func (l *EchoZapLogger) SetHeader(h string)     {}
func (l *EchoZapLogger) Prefix() string         { return "" }
func (l *EchoZapLogger) SetPrefix(p string)     {}
func (l *EchoZapLogger) Print(i ...interface{}) { l.Logger.Info(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Printf(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Printj(j log.JSON)      { l.Logger.Info("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Debug(i ...interface{}) { l.Logger.Debug(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Debug(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Debugj(j log.JSON)     { l.Logger.Debug("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Info(i ...interface{}) { l.Logger.Info(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Infof(format string, args ...interface{}) {
	l.Logger.Info(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Infoj(j log.JSON)      { l.Logger.Info("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Warn(i ...interface{}) { l.Logger.Warn(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Warnf(format string, args ...interface{}) {
	l.Logger.Warn(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Warnj(j log.JSON)       { l.Logger.Warn("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Error(i ...interface{}) { l.Logger.Error(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Errorj(j log.JSON)      { l.Logger.Error("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Fatal(i ...interface{}) { l.Logger.Fatal(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Fatalf(format string, args ...interface{}) {
	l.Logger.Fatal(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Fatalj(j log.JSON)      { l.Logger.Fatal("echo", zap.Any("json", j)) }
func (l *EchoZapLogger) Panic(i ...interface{}) { l.Logger.Panic(fmt.Sprint(i...)) }
func (l *EchoZapLogger) Panicf(format string, args ...interface{}) {
	l.Logger.Panic(fmt.Sprintf(format, args...))
}
func (l *EchoZapLogger) Panicj(j log.JSON) { l.Logger.Panic("echo", zap.Any("json", j)) }

type zapWriter struct {
	logger *zap.Logger
}

func (w *zapWriter) Write(p []byte) (n int, err error) {
	w.logger.Info(string(p))
	return len(p), nil
}
