package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/auth"
)

func TestAudit_LogsAPIAccess(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/appointments/abc/cancel", nil)
	req = req.WithContext(auth.WithUser(req.Context(), "user-9", []string{"patient"}))
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := Audit(zerolog.New(&buf))(okHandler)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("audit line is not JSON: %v", err)
	}
	checks := map[string]string{
		"type":        "audit",
		"user_id":     "user-9",
		"resource":    "appointments",
		"resource_id": "abc",
		"action":      "cancel",
		"message":     "api_access",
	}
	for k, v := range checks {
		if entry[k] != v {
			t.Errorf("%s: expected %q, got %v", k, v, entry[k])
		}
	}
}

func TestAudit_SkipsNonAPIPaths(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health", nil), httptest.NewRecorder())

	_ = Audit(zerolog.New(&buf))(okHandler)(c)

	if buf.Len() != 0 {
		t.Errorf("expected no audit output, got %s", buf.String())
	}
}

func TestActionOf(t *testing.T) {
	tests := []struct {
		method, path, want string
	}{
		{http.MethodGet, "/api/v1/clinics", "read"},
		{http.MethodPost, "/api/v1/appointments", "create"},
		{http.MethodPut, "/api/v1/doctors/1/schedule", "update"},
		{http.MethodPatch, "/api/v1/appointments/1/confirm", "confirm"},
		{http.MethodDelete, "/api/v1/x/1", "delete"},
	}
	for _, tt := range tests {
		if got := actionOf(tt.method, tt.path); got != tt.want {
			t.Errorf("actionOf(%s, %s) = %s, want %s", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestResourceOf(t *testing.T) {
	if got := resourceOf("/api/v1/clinics/1/available-slots"); got != "clinics" {
		t.Errorf("expected clinics, got %s", got)
	}
	if got := resourceOf("/api/v1/"); got != "unknown" {
		t.Errorf("expected unknown, got %s", got)
	}
}
