package patient

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrPatientNotFound = errors.New("patient not found")
)

// FieldError describes a single invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError aggregates field-level failures so callers can report every
// problem in one response instead of the first one hit.
type ValidationError struct {
	Fields []FieldError `json:"fields"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool {
	return len(e.Fields) > 0
}

// NewValidationError builds a single-field validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// DuplicateError reports an attempt to register a patient that already exists
// in the clinic, carrying the conflicting record's identity.
type DuplicateError struct {
	ExistingID  string `json:"existing_id"`
	ExistingCPF string `json:"existing_cpf"`
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("patient already registered with CPF %s (id %s)", e.ExistingCPF, e.ExistingID)
}

// asValidation unwraps err into target when it is a ValidationError.
func asValidation(err error, target **ValidationError) bool {
	return errors.As(err, target)
}

// InvalidTransitionError reports a disallowed status change.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid status transition from %s to %s", e.From, e.To)
}
