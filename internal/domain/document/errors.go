package document

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrDocumentNotFound is returned when a lookup by ID finds nothing and
	// existence was required.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrUnauthorized is returned when the authorization collaborator denies
	// access to a document.
	ErrUnauthorized = errors.New("access to document denied")

	// ErrNotAccessible is returned when a document exists but its state
	// forbids access: quarantined, deleted, or a failed virus scan.
	ErrNotAccessible = errors.New("document is not accessible")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects every invalid field of a request.
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

// InvalidTransitionError reports a status change the lifecycle does not
// allow.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("document status cannot change from %s to %s", e.From, e.To)
}
