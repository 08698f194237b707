package patient

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type Handler struct {
	registry *Registry
}

func NewHandler(registry *Registry) *Handler {
	return &Handler{registry: registry}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleTherapist, auth.RoleReceptionist)

	g := api.Group("/patients", staff)
	g.POST("", h.Create)
	g.GET("", h.Search)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/discharge", h.Discharge, auth.RequireRole(auth.RoleTherapist))
	g.POST("/:id/reactivate", h.Reactivate)
	g.POST("/:id/status", h.ChangeStatus)
	g.DELETE("/:id", h.Delete, auth.RequireRole(auth.RoleAdmin))
}

type createRequest struct {
	FullName  string            `json:"full_name"`
	BirthDate string            `json:"birth_date"`
	Gender    *string           `json:"gender,omitempty"`
	CPF       string            `json:"cpf"`
	RG        *string           `json:"rg,omitempty"`
	Contact   ContactInfo       `json:"contact_info"`
	Emergency *EmergencyContact `json:"emergency_contact,omitempty"`
	Insurance *InsuranceInfo    `json:"insurance_info,omitempty"`
	Status    string            `json:"status,omitempty"`
}

// patientView is the JSON projection returned to clients: CPF rendered in
// canonical punctuated form, age derived.
type patientView struct {
	*Patient
	CPF string `json:"cpf"`
	Age int    `json:"age"`
}

func view(p *Patient) patientView {
	return patientView{Patient: p, CPF: p.FormattedCPF(), Age: p.Age(time.Now().UTC())}
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	birthDate, err := parseDate(req.BirthDate)
	if err != nil {
		return validationResponse(c, NewValidationError("birth_date", "must be a YYYY-MM-DD date"))
	}

	in := CreateInput{
		FullName:  req.FullName,
		BirthDate: birthDate,
		Gender:    req.Gender,
		CPF:       req.CPF,
		RG:        req.RG,
		Contact:   req.Contact,
		Emergency: req.Emergency,
		Insurance: req.Insurance,
		Status:    req.Status,
	}

	p, err := h.registry.CreatePatient(c.Request().Context(), in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, view(p))
}

type updateRequest struct {
	Personal *struct {
		FullName  *string `json:"full_name,omitempty"`
		BirthDate *string `json:"birth_date,omitempty"`
		Gender    *string `json:"gender,omitempty"`
		CPF       *string `json:"cpf,omitempty"`
		RG        *string `json:"rg,omitempty"`
	} `json:"personal_info,omitempty"`
	Contact   *ContactInfo      `json:"contact_info,omitempty"`
	Emergency *EmergencyContact `json:"emergency_contact,omitempty"`
	Insurance *InsuranceInfo    `json:"insurance_info,omitempty"`
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req updateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	in := UpdateInput{
		Contact:   req.Contact,
		Emergency: req.Emergency,
		Insurance: req.Insurance,
	}
	if req.Personal != nil {
		personal := &PersonalUpdate{
			FullName: req.Personal.FullName,
			Gender:   req.Personal.Gender,
			CPF:      req.Personal.CPF,
			RG:       req.Personal.RG,
		}
		if req.Personal.BirthDate != nil {
			birthDate, err := parseDate(*req.Personal.BirthDate)
			if err != nil {
				return validationResponse(c, NewValidationError("birth_date", "must be a YYYY-MM-DD date"))
			}
			personal.BirthDate = &birthDate
		}
		in.Personal = personal
	}

	p, err := h.registry.UpdatePatient(c.Request().Context(), id, in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, view(p))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	p, err := h.registry.GetPatient(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "patient lookup failed")
	}
	if p == nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, view(p))
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	if err := h.registry.DeletePatient(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Search(c echo.Context) error {
	page := pagination.FromContext(c)

	criteria := SearchCriteria{Query: c.QueryParam("q")}
	if raw := c.QueryParam("status"); raw != "" {
		status, err := NewStatus(raw)
		if err != nil {
			return domainError(c, err)
		}
		criteria.Status = status
	}
	if v := c.QueryParam("age_min"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid age_min")
		}
		criteria.AgeMin = &n
	}
	if v := c.QueryParam("age_max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid age_max")
		}
		criteria.AgeMax = &n
	}
	if v := c.QueryParam("created_from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid created_from")
		}
		criteria.CreatedFrom = &t
	}
	if v := c.QueryParam("created_to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid created_to")
		}
		criteria.CreatedTo = &t
	}

	resp, err := h.registry.SearchPatients(c.Request().Context(), criteria, page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "patient search failed")
	}
	return c.JSON(http.StatusOK, resp)
}

type dischargeRequest struct {
	DischargeDate   *string `json:"discharge_date,omitempty"`
	DischargeReason *string `json:"discharge_reason,omitempty"`
}

func (h *Handler) Discharge(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req dischargeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	change := StatusChange{DischargeReason: req.DischargeReason}
	if req.DischargeDate != nil {
		date, err := parseDate(*req.DischargeDate)
		if err != nil {
			return validationResponse(c, NewValidationError("discharge_date", "must be a YYYY-MM-DD date"))
		}
		change.DischargeDate = &date
	}

	p, err := h.registry.DischargePatient(c.Request().Context(), id, change, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, view(p))
}

func (h *Handler) Reactivate(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	p, err := h.registry.ReactivatePatient(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, view(p))
}

type statusRequest struct {
	Status          string  `json:"status"`
	DischargeDate   *string `json:"discharge_date,omitempty"`
	DischargeReason *string `json:"discharge_reason,omitempty"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	var req statusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	status, err := NewStatus(req.Status)
	if err != nil {
		return domainError(c, err)
	}

	change := StatusChange{DischargeReason: req.DischargeReason}
	if req.DischargeDate != nil {
		date, err := parseDate(*req.DischargeDate)
		if err != nil {
			return validationResponse(c, NewValidationError("discharge_date", "must be a YYYY-MM-DD date"))
		}
		change.DischargeDate = &date
	}

	p, err := h.registry.ChangeStatus(c.Request().Context(), id, status, change, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, view(p))
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse("2006-01-02", raw)
}

func validationResponse(c echo.Context, verr *ValidationError) error {
	return c.JSON(http.StatusBadRequest, map[string]interface{}{
		"error":  "validation failed",
		"fields": verr.Fields,
	})
}

// domainError maps domain errors to HTTP responses: validation 400, not
// found 404, duplicate 409, illegal transition 422.
func domainError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return validationResponse(c, verr)
	}

	var dup *DuplicateError
	if errors.As(err, &dup) {
		return c.JSON(http.StatusConflict, map[string]interface{}{
			"error":        "patient already registered",
			"existing_id":  dup.ExistingID,
			"existing_cpf": dup.ExistingCPF,
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

	if errors.Is(err, ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}

	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
