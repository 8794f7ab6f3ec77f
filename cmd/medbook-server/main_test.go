package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medbook/medbook/internal/config"
	"github.com/medbook/medbook/internal/domain/clinic"
	"github.com/medbook/medbook/internal/domain/identity"
	"github.com/medbook/medbook/internal/domain/scheduling"
	"github.com/medbook/medbook/internal/platform/auth"
	"github.com/medbook/medbook/internal/platform/events"
)

// testApp wires services over nil repositories; only routing and middleware
// run in these tests.
func testApp() *app {
	logger := zerolog.Nop()
	clinicSvc := clinic.NewService(nil, nil, logger)
	return &app{
		publisher:  events.NewLogPublisher(logger),
		clinics:    clinicSvc,
		identity:   identity.NewService(nil, auth.NewIssuer("medbook", []byte("k"), time.Hour), logger),
		scheduling: scheduling.NewService(nil, clinicSvc, nil, nil, time.UTC, logger),
	}
}

func testConfig(env string) *config.Config {
	return &config.Config{
		Env:                 env,
		JWTIssuer:           "medbook",
		JWTSecret:           "0123456789abcdef0123456789abcdef",
		JWTTTL:              time.Hour,
		CORSOrigins:         []string{"http://localhost:3000"},
		RateLimitRPS:        100,
		RateLimitBurst:      100,
		RateLimitMaxClients: 100,
		RequestTimeout:      5 * time.Second,
	}
}

func TestNewServer_Routes(t *testing.T) {
	e := newServer(testConfig("production"), testApp(), zerolog.Nop())

	registered := make(map[string]bool)
	for _, r := range e.Routes() {
		registered[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"GET /health",
		"GET /api/v1/clinics/:id/available-slots",
		"POST /api/v1/appointments",
		"GET /api/v1/appointments",
		"PATCH /api/v1/appointments/:id/cancel",
		"PATCH /api/v1/appointments/:id/confirm",
		"POST /api/v1/auth/login",
		"PUT /api/v1/doctors/:id/schedule",
	} {
		if !registered[want] {
			t.Errorf("route %s not registered", want)
		}
	}
}

func TestNewServer_AuthEnforcedOutsideDevelopment(t *testing.T) {
	e := newServer(testConfig("production"), testApp(), zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/appointments", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from /health, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}
}

func TestNewServer_ValidationErrorsUseEnvelope(t *testing.T) {
	e := newServer(testConfig("production"), testApp(), zerolog.Nop())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/clinics/not-a-uuid/available-slots?date=2030-01-07", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if body := rec.Body.String(); body != "{\"success\":false,\"error\":\"invalid id\"}\n" {
		t.Errorf("unexpected body %q", body)
	}
}
