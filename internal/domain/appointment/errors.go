package appointment

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrAppointmentNotFound is returned when a lookup by ID finds nothing
	// and existence was required.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrPatientCannotSchedule is returned when the patient's status does
	// not allow booking.
	ErrPatientCannotSchedule = errors.New("patient cannot schedule appointments in their current status")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return "validation failed"
	}
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

func NewValidationError(field, message string) *ValidationError {
	verr := &ValidationError{}
	verr.Add(field, message)
	return verr
}

// ConflictError reports an overlapping booking for the same practitioner.
type ConflictError struct {
	PractitionerID string
	Start          time.Time
	End            time.Time
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("practitioner %s already has an appointment between %s and %s",
		e.PractitionerID, e.Start.Format(time.RFC3339), e.End.Format(time.RFC3339))
}

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("appointment status cannot change from %s to %s", e.From, e.To)
}
