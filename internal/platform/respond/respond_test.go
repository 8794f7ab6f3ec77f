package respond

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/platform/apperr"
)

func handle(t *testing.T, err error) (*httptest.ResponseRecorder, Envelope) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/x", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	ErrorHandler(zerolog.Nop())(err, c)

	var env Envelope
	if jerr := json.Unmarshal(rec.Body.Bytes(), &env); jerr != nil {
		t.Fatalf("invalid JSON body %q: %v", rec.Body.String(), jerr)
	}
	return rec, env
}

func TestErrorHandler_Classified(t *testing.T) {
	tests := []struct {
		err    error
		status int
		msg    string
	}{
		{apperr.NotFound("clinic not found"), http.StatusNotFound, "clinic not found"},
		{apperr.Validation("date is required"), http.StatusBadRequest, "date is required"},
		{fmt.Errorf("book: %w", apperr.Conflict("slot already booked")), http.StatusBadRequest, "slot already booked"},
		{apperr.Forbidden("not your appointment"), http.StatusForbidden, "not your appointment"},
	}
	for _, tt := range tests {
		rec, env := handle(t, tt.err)
		if rec.Code != tt.status {
			t.Errorf("%v: expected %d, got %d", tt.err, tt.status, rec.Code)
		}
		if env.Success {
			t.Errorf("%v: expected success=false", tt.err)
		}
		if env.Error != tt.msg {
			t.Errorf("expected message %q, got %q", tt.msg, env.Error)
		}
	}
}

func TestErrorHandler_Unclassified(t *testing.T) {
	rec, env := handle(t, errors.New("dial tcp 10.0.0.1:5432: connection refused"))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	if env.Error != "internal server error" {
		t.Errorf("internal detail leaked: %q", env.Error)
	}
}

func TestErrorHandler_EchoHTTPError(t *testing.T) {
	rec, env := handle(t, echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header"))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
	if env.Error != "missing authorization header" {
		t.Errorf("unexpected message %q", env.Error)
	}
}

func TestErrorHandler_DeadlineExceeded(t *testing.T) {
	rec, env := handle(t, fmt.Errorf("list appointments: %w", context.DeadlineExceeded))
	if rec.Code != http.StatusGatewayTimeout {
		t.Errorf("expected 504, got %d", rec.Code)
	}
	if env.Success || env.Error != "request timed out" {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestOK(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	if err := OK(c, http.StatusCreated, map[string]string{"id": "1"}); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var body map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}
	if _, ok := body["error"]; ok {
		t.Error("error key should be omitted on success")
	}
}
