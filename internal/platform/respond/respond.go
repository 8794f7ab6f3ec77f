// Package respond writes the {success, data|error} JSON envelope used by every
// API response.
package respond

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
)

type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// OK writes a successful envelope with the given status.
func OK(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// Fail writes a failure envelope.
func Fail(c echo.Context, status int, msg string) error {
	return c.JSON(status, Envelope{Success: false, Error: msg})
}

// ErrorHandler is installed as echo's HTTPErrorHandler. Classified service
// errors keep their message; echo errors keep their code; an expired request
// deadline is a 504; anything else is logged and reported as a generic 500.
func ErrorHandler(logger zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "internal server error"

		var he *echo.HTTPError
		switch {
		case errors.As(err, &he):
			status = he.Code
			if he.Internal != nil && status >= 500 {
				logger.Error().Err(he.Internal).Str("path", c.Request().URL.Path).Msg("request failed")
			}
			if status < 500 {
				msg = fmt.Sprintf("%v", he.Message)
			} else if s, ok := he.Message.(string); ok && s != "" {
				msg = s
			}
		case errors.Is(err, context.DeadlineExceeded):
			status = http.StatusGatewayTimeout
			msg = "request timed out"
		default:
			if m, ok := apperr.Message(err); ok {
				status = apperr.HTTPStatus(err)
				msg = m
			} else {
				rid, _ := c.Get("request_id").(string)
				logger.Error().Err(err).
					Str("request_id", rid).
					Str("method", c.Request().Method).
					Str("path", c.Request().URL.Path).
					Msg("unhandled error")
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = Fail(c, status, msg)
		}
		if werr != nil {
			logger.Error().Err(werr).Msg("write error response")
		}
	}
}
