package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func doRequest(mw echo.MiddlewareFunc, req *http.Request) (*httptest.ResponseRecorder, error) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	handler := mw(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	err := handler(c)
	return rec, err
}

func TestRequestID_Generated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := doRequest(RequestID(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header to be set")
	}
}

func TestRequestID_Propagated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "upstream-id-42")
	rec, err := doRequest(RequestID(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := rec.Header().Get("X-Request-ID"); got != "upstream-id-42" {
		t.Errorf("expected propagated request id, got %q", got)
	}
}

func TestRateLimit_AllowsWithinBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 3})
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if _, err := doRequest(mw, req); err != nil {
			t.Fatalf("request %d: unexpected error: %v", i, err)
		}
	}
}

func TestRateLimit_RejectsOverBurst(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 1})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, err := doRequest(mw, req); err != nil {
		t.Fatalf("first request should pass: %v", err)
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	_, err := doRequest(mw, req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusTooManyRequests {
		t.Errorf("expected 429, got %v", err)
	}
}

func TestSecurityHeaders_Set(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec, err := doRequest(SecurityHeaders(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]string{
		"X-Content-Type-Options":    "nosniff",
		"X-Frame-Options":           "DENY",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"Referrer-Policy":           "no-referrer",
		"Cache-Control":             "no-store",
	}
	for k, v := range want {
		if got := rec.Header().Get(k); got != v {
			t.Errorf("%s: expected %q, got %q", k, v, got)
		}
	}
}

func TestLogger_RequestFields(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients?status=active", nil)
	req.Header.Set("User-Agent", "evolua-client/1.0")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-9")
	c.Set("clinic_id", "fono_sp")

	handler := Logger(logger)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("parse log line: %v", err)
	}
	if entry["clinic_id"] != "fono_sp" {
		t.Errorf("expected clinic_id fono_sp, got %v", entry["clinic_id"])
	}
	if entry["query"] != "status=active" {
		t.Errorf("expected query string in log, got %v", entry["query"])
	}
	if entry["user_agent"] != "evolua-client/1.0" {
		t.Errorf("expected user agent in log, got %v", entry["user_agent"])
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := Recovery(zerolog.Nop())(func(c echo.Context) error {
		panic("boom")
	})

	err := handler(c)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 after panic, got %v", err)
	}
}

func TestBodyLimit_RejectsByContentLength(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 100)))
	_, err := doRequest(BodyLimit(10), req)
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %v", err)
	}
}

func TestBodyLimit_AllowsSmallBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("small"))
	if _, err := doRequest(BodyLimit(1024), req); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAudit_RecordsAPIAccess(t *testing.T) {
	var recorded []AuditEntry
	recorder := AuditRecorderFunc(func(_ context.Context, e AuditEntry) error {
		recorded = append(recorded, e)
		return nil
	})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/patients/550e8400-e29b-41d4-a716-446655440000", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.Set("request_id", "req-1")
	c.Set("clinic_id", "fono_sp")

	handler := Audit(zerolog.Nop(), recorder)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := handler(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(recorded) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(recorded))
	}
	entry := recorded[0]
	if entry.ResourceType != "patients" {
		t.Errorf("expected resource type patients, got %q", entry.ResourceType)
	}
	if entry.PatientID != "550e8400-e29b-41d4-a716-446655440000" {
		t.Errorf("unexpected patient id %q", entry.PatientID)
	}
	if entry.Action != "read" {
		t.Errorf("expected read action, got %q", entry.Action)
	}
	if entry.ClinicID != "fono_sp" {
		t.Errorf("expected clinic fono_sp, got %q", entry.ClinicID)
	}
}

func TestAudit_SkipsNonAPIRoutes(t *testing.T) {
	called := false
	recorder := AuditRecorderFunc(func(_ context.Context, e AuditEntry) error {
		called = true
		return nil
	})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	if _, err := doRequest(Audit(zerolog.Nop(), recorder), req); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called {
		t.Error("health endpoint should not be audited")
	}
}
