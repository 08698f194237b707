package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(query string) echo.Context {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec)
}

func TestFromContext_Defaults(t *testing.T) {
	p := FromContext(newContext(""))
	if p.Page != 1 {
		t.Errorf("expected page 1, got %d", p.Page)
	}
	if p.Limit != DefaultLimit {
		t.Errorf("expected limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.SortOrder != "asc" {
		t.Errorf("expected asc, got %s", p.SortOrder)
	}
}

func TestFromContext_Values(t *testing.T) {
	p := FromContext(newContext("page=3&limit=50&sort_by=name&sort_order=desc"))
	if p.Page != 3 || p.Limit != 50 {
		t.Errorf("unexpected params: %+v", p)
	}
	if p.SortBy != "name" || p.SortOrder != "desc" {
		t.Errorf("unexpected sort: %+v", p)
	}
	if p.Offset() != 100 {
		t.Errorf("expected offset 100, got %d", p.Offset())
	}
}

func TestFromContext_LimitClamped(t *testing.T) {
	p := FromContext(newContext("limit=5000"))
	if p.Limit != MaxLimit {
		t.Errorf("expected limit clamped to %d, got %d", MaxLimit, p.Limit)
	}
}

func TestNewResponse(t *testing.T) {
	p := Params{Page: 2, Limit: 10}
	resp := NewResponse([]string{"a"}, 35, p)

	if resp.TotalPages != 4 {
		t.Errorf("expected 4 pages, got %d", resp.TotalPages)
	}
	if !resp.HasNext {
		t.Error("expected has_next on page 2 of 4")
	}
	if !resp.HasPrevious {
		t.Error("expected has_previous on page 2")
	}
}

func TestNewResponse_LastPage(t *testing.T) {
	resp := NewResponse(nil, 35, Params{Page: 4, Limit: 10})
	if resp.HasNext {
		t.Error("expected no next page on last page")
	}
}
