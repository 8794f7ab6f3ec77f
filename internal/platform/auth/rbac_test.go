package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func contextWithRoles(roles ...string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithUser(req.Context(), "user-1", roles))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRequireRole_Allowed(t *testing.T) {
	c, rec := contextWithRoles(RoleDoctor)

	err := RequireRole(RoleDoctor)(okHandler)(c)
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestRequireRole_Denied(t *testing.T) {
	c, _ := contextWithRoles(RolePatient)

	err := RequireRole(RoleDoctor)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}

func TestRequireRole_AdminPassesEverything(t *testing.T) {
	c, _ := contextWithRoles(RoleAdmin)

	if err := RequireRole(RoleDoctor)(okHandler)(c); err != nil {
		t.Errorf("admin should pass, got %v", err)
	}
}

func TestRequireRole_NoRoles(t *testing.T) {
	c, _ := contextWithRoles()

	err := RequireRole(RolePatient, RoleDoctor)(okHandler)(c)
	expectStatus(t, err, http.StatusForbidden)
}
