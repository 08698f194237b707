package db

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
)

func newEchoContext(target string, header map[string]string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestExtractClinicID_Default(t *testing.T) {
	c := newEchoContext("/patients", nil)
	if got := extractClinicID(c, "default"); got != "default" {
		t.Errorf("expected default clinic, got %q", got)
	}
}

func TestExtractClinicID_Header(t *testing.T) {
	c := newEchoContext("/patients", map[string]string{"X-Clinic-ID": "fono_sp"})
	if got := extractClinicID(c, "default"); got != "fono_sp" {
		t.Errorf("expected fono_sp, got %q", got)
	}
}

func TestExtractClinicID_QueryParam(t *testing.T) {
	c := newEchoContext("/patients?clinic_id=fono_rj", nil)
	if got := extractClinicID(c, "default"); got != "fono_rj" {
		t.Errorf("expected fono_rj, got %q", got)
	}
}

func TestExtractClinicID_JWTClaimWins(t *testing.T) {
	c := newEchoContext("/patients?clinic_id=query_clinic", map[string]string{"X-Clinic-ID": "header_clinic"})
	c.Set("jwt_clinic_id", "jwt_clinic")
	if got := extractClinicID(c, "default"); got != "jwt_clinic" {
		t.Errorf("expected jwt claim to take precedence, got %q", got)
	}
}

func TestClinicIDPattern(t *testing.T) {
	valid := []string{"default", "fono_sp", "Clinic01"}
	for _, id := range valid {
		if !clinicIDPattern.MatchString(id) {
			t.Errorf("expected %q to be valid", id)
		}
	}

	invalid := []string{"", "a-b", "x; DROP SCHEMA public", "clinic.one", "a b"}
	for _, id := range invalid {
		if clinicIDPattern.MatchString(id) {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestClinicFromContext(t *testing.T) {
	ctx := context.WithValue(context.Background(), ClinicIDKey, "fono_sp")
	if got := ClinicFromContext(ctx); got != "fono_sp" {
		t.Errorf("expected fono_sp, got %q", got)
	}
	if got := ClinicFromContext(context.Background()); got != "" {
		t.Errorf("expected empty clinic on bare context, got %q", got)
	}
}

type recordingExecer struct {
	statements []string
	ctxErr     error
}

func (r *recordingExecer) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	r.ctxErr = ctx.Err()
	r.statements = append(r.statements, sql)
	return pgconn.CommandTag{}, nil
}

func TestResetSearchPath(t *testing.T) {
	rec := &recordingExecer{}
	resetSearchPath(rec)

	if len(rec.statements) != 1 || rec.statements[0] != "SET search_path TO public" {
		t.Errorf("expected search_path reset before release, got %v", rec.statements)
	}
	if rec.ctxErr != nil {
		t.Errorf("reset must run on a live context, got %v", rec.ctxErr)
	}
}

func TestConnFromContext_Empty(t *testing.T) {
	if conn := ConnFromContext(context.Background()); conn != nil {
		t.Error("expected nil connection on bare context")
	}
	if tx := TxFromContext(context.Background()); tx != nil {
		t.Error("expected nil transaction on bare context")
	}
}
