package auth

import (
	"github.com/labstack/echo/v4"
)

// publicPaths are reachable without credentials regardless of method.
var publicPaths = map[string]bool{
	"/health":               true,
	"/health/db":            true,
	"/api/v1/auth/login":    true,
	"/api/v1/auth/register": true,
}

// publicReads are route patterns whose GET requests are anonymous: browsing
// clinics, doctors and free slots needs no account.
var publicReads = map[string]bool{
	"/api/v1/clinics":                     true,
	"/api/v1/clinics/:id":                 true,
	"/api/v1/clinics/:id/doctors":         true,
	"/api/v1/clinics/:id/available-slots": true,
	"/api/v1/doctors/:id":                 true,
}

// AuthSkipper returns true for requests whose route should skip
// authentication. It matches on the registered route pattern.
func AuthSkipper(c echo.Context) bool {
	path := c.Path()
	if publicPaths[path] {
		return true
	}
	return c.Request().Method == "GET" && publicReads[path]
}

// IsPublicPath reports whether the given route pattern is public for any method.
func IsPublicPath(path string) bool {
	return publicPaths[path]
}
