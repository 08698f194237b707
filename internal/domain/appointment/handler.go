package appointment

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type Handler struct {
	scheduler *Scheduler
}

func NewHandler(scheduler *Scheduler) *Handler {
	return &Handler{scheduler: scheduler}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleTherapist, auth.RoleReceptionist)

	g := api.Group("/appointments", staff)
	g.POST("", h.Book)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/status", h.ChangeStatus)
}

func (h *Handler) Book(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.scheduler.Book(c.Request().Context(), in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.scheduler.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment lookup failed")
	}
	if appt == nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	appt, err := h.scheduler.Update(c.Request().Context(), id, in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) Cancel(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	appt, err := h.scheduler.Cancel(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid appointment id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	status, err := NewStatus(req.Status)
	if err != nil {
		return domainError(c, err)
	}

	appt, err := h.scheduler.ChangeStatus(c.Request().Context(), id, status, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) List(c echo.Context) error {
	page := pagination.FromContext(c)

	criteria := ListCriteria{PractitionerID: c.QueryParam("practitioner_id")}
	if raw := c.QueryParam("patient_id"); raw != "" {
		patientID, err := uuid.Parse(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid patient_id")
		}
		criteria.PatientID = &patientID
	}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := NewStatus(raw)
		if err != nil {
			return domainError(c, err)
		}
		criteria.Status = status
	}
	if raw := c.QueryParam("day"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid day, expected YYYY-MM-DD")
		}
		criteria.Day = &day
	}

	resp, err := h.scheduler.List(c.Request().Context(), criteria, page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "appointment listing failed")
	}
	return c.JSON(http.StatusOK, resp)
}

func validationResponse(c echo.Context, verr *ValidationError) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":  "validation failed",
		"fields": verr.Fields,
	})
}

func domainError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return validationResponse(c, verr)
	}

	var conflict *ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":           conflict.Error(),
			"practitioner_id": conflict.PractitionerID,
			"start_time":      conflict.Start,
			"end_time":        conflict.End,
		})
	}

	var trans *InvalidTransitionError
	if errors.As(err, &trans) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": trans.Error(),
			"from":  trans.From,
			"to":    trans.To,
		})
	}

	switch {
	case errors.Is(err, ErrAppointmentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	case errors.Is(err, patient.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrPatientCannotSchedule):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
