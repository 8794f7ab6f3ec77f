package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// ErrRequestTimeout is returned when a handler fails because the request
// deadline passed. respond.ErrorHandler renders it as a 504 envelope.
var ErrRequestTimeout = echo.NewHTTPError(http.StatusGatewayTimeout, "request timed out")

// RequestTimeout sets a deadline on each request context. The handler runs on
// the request goroutine and owns the response; an error caused by the
// deadline is reported as ErrRequestTimeout. A non-positive timeout disables
// the deadline.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	if timeout <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{
		Timeout: timeout,
		ErrorHandler: func(err error, c echo.Context) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return ErrRequestTimeout.WithInternal(err)
			}
			return err
		},
	})
}
