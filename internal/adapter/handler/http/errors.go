package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	domainErrors "github.com/wekeepgrowing/portal-billing/internal/domain/errors"
	apperrors "github.com/wekeepgrowing/portal-billing/pkg/errors"
)

// respondError logs err with its code and returns the matching HTTP error.
func respondError(logger *zap.Logger, err error, msg string, fields ...zap.Field) error {
	appErr := domainErrors.ToAppError(err)
	apperrors.LogError(logger, appErr, msg, fields...)
	return apperrors.ToHTTPError(appErr)
}

// NewHTTPErrorHandler renders every error as {"error": message, "code": code}.
func NewHTTPErrorHandler(logger *zap.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var httpErr *echo.HTTPError
		if !errors.As(err, &httpErr) {
			httpErr = apperrors.ToHTTPError(domainErrors.ToAppError(err))
			apperrors.LogError(logger, err, "Unhandled request error",
				zap.String("path", c.Request().URL.Path))
		}

		msg, ok := httpErr.Message.(string)
		if !ok {
			msg = http.StatusText(httpErr.Code)
		}
		body := echo.Map{
			"error": msg,
			"code":  apperrors.CodeOf(apperrors.FromHTTPError(httpErr)),
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(httpErr.Code)
		} else {
			err = c.JSON(httpErr.Code, body)
		}
		if err != nil {
			logger.Error("Failed to write error response", zap.Error(err))
		}
	}
}
