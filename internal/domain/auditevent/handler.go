package auditevent

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type Handler struct {
	repo Repository
}

func NewHandler(repo Repository) *Handler {
	return &Handler{repo: repo}
}

// RegisterRoutes mounts the audit listing endpoints; only admins may read
// the trail.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole(auth.RoleAdmin))
	g.GET("/audit-events", h.List)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)

	criteria := SearchCriteria{
		UserID:       c.QueryParam("user_id"),
		Action:       c.QueryParam("action"),
		ResourceType: c.QueryParam("resource_type"),
		ResourceID:   c.QueryParam("resource_id"),
		PatientID:    c.QueryParam("patient_id"),
	}
	if v := c.QueryParam("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid from timestamp")
		}
		criteria.From = &t
	}
	if v := c.QueryParam("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid to timestamp")
		}
		criteria.To = &t
	}

	events, total, err := h.repo.Search(c.Request().Context(), criteria, page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "audit search failed")
	}
	if events == nil {
		events = []*Event{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, page))
}
