package medicalrecord

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

// RegisterRoutes mounts the medical-record endpoints. Clinical content is
// restricted to therapists.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := auth.RequireRole(auth.RoleTherapist)

	g := api.Group("/medical-records", clinical)
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PUT("/:id", h.Update)
	g.POST("/:id/progress-notes", h.AddProgressNote)

	api.GET("/patients/:id/medical-records", h.History, clinical)
}

type createRequest struct {
	PatientID         string       `json:"patient_id"`
	Diagnoses         []Diagnosis  `json:"diagnoses,omitempty"`
	Medications       []Medication `json:"medications,omitempty"`
	Allergies         []Allergy    `json:"allergies,omitempty"`
	Treatments        []Treatment  `json:"treatments,omitempty"`
	InitialAssessment *Assessment  `json:"initial_assessment,omitempty"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		return validationResponse(c, NewValidationError("patient_id", "must be a valid id"))
	}

	in := CreateInput{
		PatientID:         patientID,
		Diagnoses:         req.Diagnoses,
		Medications:       req.Medications,
		Allergies:         req.Allergies,
		Treatments:        req.Treatments,
		InitialAssessment: req.InitialAssessment,
	}

	rec, err := h.manager.CreateRecord(c.Request().Context(), in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medical record id")
	}

	rec, err := h.manager.GetRecord(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "medical record lookup failed")
	}
	if rec == nil {
		return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) History(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid patient id")
	}

	records, err := h.manager.GetHistory(c.Request().Context(), patientID)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, records)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medical record id")
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	rec, err := h.manager.UpdateRecord(c.Request().Context(), id, in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, rec)
}

type progressNoteRequest struct {
	Content     string `json:"content"`
	SessionDate string `json:"session_date"`
	Category    string `json:"category,omitempty"`
}

func (h *Handler) AddProgressNote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid medical record id")
	}

	var req progressNoteRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	note := ProgressNote{
		Content:   req.Content,
		CreatedBy: auth.UserIDFromContext(c.Request().Context()),
		Category:  req.Category,
	}
	if req.SessionDate != "" {
		sessionDate, err := parseDate(req.SessionDate)
		if err != nil {
			return validationResponse(c, NewValidationError("session_date", "must be a YYYY-MM-DD date"))
		}
		note.SessionDate = sessionDate
	}

	added, err := h.manager.AddProgressNote(c.Request().Context(), id, note)
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, added)
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

func domainError(c echo.Context, err error) error {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return validationResponse(c, verr)
	}
	if errors.Is(err, ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "medical record not found")
	}
	if errors.Is(err, patient.ErrPatientNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
