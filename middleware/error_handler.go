package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/yshengliao/casedesk/response"
)

// ErrorHandlerConfig contains configuration for the error handler
type ErrorHandlerConfig struct {
	// Logger is used to log errors
	Logger *zap.Logger
	// HideInternalServerErrorDetails hides the actual error details in production
	HideInternalServerErrorDetails bool
	// DefaultMessage is the message used when hiding internal server error details
	DefaultMessage string
}

// ErrorHandler returns an echo.HTTPErrorHandler that writes errors in the
// standard response envelope.
func ErrorHandler(config ErrorHandlerConfig) echo.HTTPErrorHandler {
	if config.DefaultMessage == "" {
		config.DefaultMessage = "An internal error occurred"
	}
	logger := config.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code := http.StatusInternalServerError
		message := err.Error()
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if m, ok := he.Message.(string); ok {
				message = m
			} else {
				message = http.StatusText(code)
			}
		}

		if code >= http.StatusInternalServerError {
			logger.Error("request failed",
				zap.String("request_id", GetRequestID(c)),
				zap.String("path", c.Request().URL.Path),
				zap.Error(err))
			if config.HideInternalServerErrorDetails {
				message = config.DefaultMessage
			}
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = response.Error(c, code, message)
		}
		if err != nil {
			logger.Error("failed to write error response", zap.Error(err))
		}
	}
}
