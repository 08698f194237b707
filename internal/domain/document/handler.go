package document

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/auth"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type Handler struct {
	manager *Manager
}

func NewHandler(manager *Manager) *Handler {
	return &Handler{manager: manager}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	staff := auth.RequireRole(auth.RoleTherapist, auth.RoleReceptionist)

	g := api.Group("/documents", staff)
	g.POST("", h.Upload)
	g.GET("", h.Search)
	g.GET("/:id", h.Get)
	g.GET("/:id/download", h.Download)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete, auth.RequireRole(auth.RoleTherapist))
}

// Upload accepts a multipart form: the file part plus metadata fields.
func (h *Handler) Upload(c echo.Context) error {
	patientID, err := uuid.Parse(c.FormValue("patient_id"))
	if err != nil {
		return validationResponse(c, NewValidationError("patient_id", "must be a valid id"))
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return validationResponse(c, NewValidationError("file", "is required"))
	}
	file, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer file.Close()

	metadata := Metadata{
		Title:          c.FormValue("title"),
		Description:    c.FormValue("description"),
		DocumentType:   c.FormValue("document_type"),
		IsConfidential: c.FormValue("is_confidential") == "true",
		LegalBasis:     c.FormValue("legal_basis"),
	}
	if tags := c.FormValue("tags"); tags != "" {
		metadata.Tags = splitTags(tags)
	}
	if raw := c.FormValue("retention_days"); raw != "" {
		var days int
		if _, err := fmt.Sscanf(raw, "%d", &days); err != nil {
			return validationResponse(c, NewValidationError("retention_days", "must be an integer"))
		}
		metadata.RetentionDays = days
	}

	in := UploadInput{
		PatientID: patientID,
		FileName:  fileHeader.Filename,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Content:   file,
		Metadata:  metadata,
	}
	if raw := c.FormValue("expires_at"); raw != "" {
		expiresAt, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return validationResponse(c, NewValidationError("expires_at", "must be an RFC 3339 timestamp"))
		}
		in.ExpiresAt = &expiresAt
	}

	doc, err := h.manager.Upload(c.Request().Context(), in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	doc, err := h.manager.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "document lookup failed")
	}
	if doc == nil {
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Download(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	doc, content, err := h.manager.Download(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	defer content.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, doc.FileName))
	mimeType := doc.MimeType
	if mimeType == "" {
		mimeType = echo.MIMEOctetStream
	}
	return c.Stream(http.StatusOK, mimeType, content)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	doc, err := h.manager.Update(c.Request().Context(), id, in, auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return domainError(c, err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid document id")
	}

	if err := h.manager.Delete(c.Request().Context(), id, auth.UserIDFromContext(c.Request().Context())); err != nil {
		return domainError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Search(c echo.Context) error {
	page := pagination.FromContext(c)

	criteria := SearchCriteria{
		Query:        c.QueryParam("q"),
		DocumentType: c.QueryParam("document_type"),
	}
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

	resp, err := h.manager.Search(c.Request().Context(), criteria, page)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "document search failed")
	}
	return c.JSON(http.StatusOK, resp)
}

func splitTags(raw string) []string {
	parts := strings.Split(raw, ",")
	tags := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
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

	var trans *InvalidTransitionError
	if errors.As(err, &trans) {
		return c.JSON(http.StatusUnprocessableEntity, map[string]interface{}{
			"error": trans.Error(),
			"from":  trans.From,
			"to":    trans.To,
		})
	}

	switch {
	case errors.Is(err, ErrDocumentNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "document not found")
	case errors.Is(err, patient.ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrUnauthorized), errors.Is(err, ErrNotAccessible):
		return echo.NewHTTPError(http.StatusForbidden, "access denied")
	}
	return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
}
