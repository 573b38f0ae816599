// Package middleware holds the API-specific echo middleware.
package middleware

import (
	"log/slog"
	"net/http"

	"accounts/internal/delivery/api/response"
	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
)

// httpStatusErrors gives echo's own failures a domain error code.
var httpStatusErrors = map[int]*domainerrors.BaseError{
	http.StatusNotFound:              domainerrors.ErrNotFound,
	http.StatusMethodNotAllowed:      domainerrors.ErrNotFound,
	http.StatusRequestEntityTooLarge: domainerrors.ErrValidationFailed.WithDetails("request body is too large"),
	http.StatusBadRequest:            domainerrors.ErrValidationFailed,
	http.StatusUnsupportedMediaType:  domainerrors.ErrValidationFailed.WithDetails("unsupported content type"),
}

// ErrorMiddleware handles errors in the HTTP pipeline
type ErrorMiddleware struct {
	logger *slog.Logger
}

// NewErrorMiddleware creates a new error handling middleware
func NewErrorMiddleware(logger *slog.Logger) *ErrorMiddleware {
	return &ErrorMiddleware{
		logger: logger,
	}
}

// HandleHTTPError handles errors as Echo's HTTPErrorHandler
func (m *ErrorMiddleware) HandleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var appErr domainerrors.AppError
	if errors.As(err, &appErr) {
		if appErr.HTTPCode() >= http.StatusInternalServerError {
			m.logFailure(c, err)
		}
		_ = response.HandleAppError(c, appErr)

		return
	}

	var httpErr *echo.HTTPError
	if errors.As(err, &httpErr) {
		if mapped, ok := httpStatusErrors[httpErr.Code]; ok {
			_ = response.Error(c, httpErr.Code, mapped.ErrorCode(), mapped.Message(), nilIfEmpty(mapped.Details()))

			return
		}

		message := http.StatusText(httpErr.Code)
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
		_ = response.Error(c, httpErr.Code, "HTTP_ERROR", message, nil)

		return
	}

	// Never expose the cause of an unexpected failure.
	m.logFailure(c, err)
	_ = response.Error(c, domainerrors.ErrInternalError.HTTPCode(), domainerrors.ErrInternalError.ErrorCode(),
		domainerrors.ErrInternalError.Message(), nil)
}

func (m *ErrorMiddleware) logFailure(c echo.Context, err error) {
	deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).Error("Request failed",
		slog.Any("error", err),
		slog.String("path", c.Request().URL.Path),
		slog.String("method", c.Request().Method),
	)
}

func nilIfEmpty(details string) any {
	if details == "" {
		return nil
	}

	return details
}
