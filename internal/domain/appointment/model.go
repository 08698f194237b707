package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the appointment lifecycle state.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
	StatusNoShow    Status = "no_show"
)

var validStatuses = map[Status]bool{
	StatusScheduled: true,
	StatusConfirmed: true,
	StatusCompleted: true,
	StatusCancelled: true,
	StatusNoShow:    true,
}

// Completed, cancelled, and no_show are terminal.
var statusTransitions = map[Status][]Status{
	StatusScheduled: {StatusConfirmed, StatusCancelled, StatusNoShow},
	StatusConfirmed: {StatusCompleted, StatusCancelled, StatusNoShow},
	StatusCompleted: {},
	StatusCancelled: {},
	StatusNoShow:    {},
}

func NewStatus(raw string) (Status, error) {
	s := Status(raw)
	if !validStatuses[s] {
		return "", NewValidationError("status", "unknown appointment status "+raw)
	}
	return s, nil
}

func (s Status) IsValid() bool {
	return validStatuses[s]
}

func (s Status) CanTransitionTo(to Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Appointment maps to the appointment table.
type Appointment struct {
	ID             uuid.UUID `db:"id" json:"id"`
	PatientID      uuid.UUID `db:"patient_id" json:"patient_id"`
	PractitionerID string    `db:"practitioner_id" json:"practitioner_id"`
	StartTime      time.Time `db:"start_time" json:"start_time"`
	EndTime        time.Time `db:"end_time" json:"end_time"`
	Status         Status    `db:"status" json:"status"`
	Notes          string    `db:"notes" json:"notes,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

type CreateInput struct {
	PatientID      uuid.UUID `json:"patient_id"`
	PractitionerID string    `json:"practitioner_id"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	Notes          string    `json:"notes,omitempty"`
}

// NewAppointment validates the booking window and assembles the aggregate.
func NewAppointment(in CreateInput, now time.Time) (*Appointment, error) {
	verr := &ValidationError{}

	if in.PatientID == uuid.Nil {
		verr.Add("patient_id", "is required")
	}
	if in.PractitionerID == "" {
		verr.Add("practitioner_id", "is required")
	}
	if in.StartTime.IsZero() {
		verr.Add("start_time", "is required")
	} else if in.StartTime.Before(now) {
		verr.Add("start_time", "must be in the future")
	}
	if in.EndTime.IsZero() {
		verr.Add("end_time", "is required")
	} else if !in.StartTime.IsZero() && !in.EndTime.After(in.StartTime) {
		verr.Add("end_time", "must be after start_time")
	}

	if verr.HasErrors() {
		return nil, verr
	}

	return &Appointment{
		ID:             uuid.New(),
		PatientID:      in.PatientID,
		PractitionerID: in.PractitionerID,
		StartTime:      in.StartTime,
		EndTime:        in.EndTime,
		Status:         StatusScheduled,
		Notes:          in.Notes,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// Overlaps reports whether two time windows intersect.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.StartTime.Before(end) && start.Before(a.EndTime)
}

// ChangeStatus performs a guarded lifecycle transition.
func (a *Appointment) ChangeStatus(to Status, now time.Time) error {
	if !to.IsValid() {
		return NewValidationError("status", "unknown appointment status "+string(to))
	}
	if !a.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: a.Status, To: to}
	}
	a.Status = to
	a.UpdatedAt = now
	return nil
}

// UpdateInput reschedules or annotates an appointment. Times must be supplied
// together.
type UpdateInput struct {
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Notes     *string    `json:"notes,omitempty"`
}

// ApplyUpdate merges the supplied fields, re-validating the time window.
func (a *Appointment) ApplyUpdate(in UpdateInput, now time.Time) error {
	verr := &ValidationError{}

	start, end := a.StartTime, a.EndTime
	if in.StartTime != nil {
		start = *in.StartTime
	}
	if in.EndTime != nil {
		end = *in.EndTime
	}
	if (in.StartTime != nil || in.EndTime != nil) && !end.After(start) {
		verr.Add("end_time", "must be after start_time")
	}
	if verr.HasErrors() {
		return verr
	}

	a.StartTime = start
	a.EndTime = end
	if in.Notes != nil {
		a.Notes = *in.Notes
	}
	a.UpdatedAt = now
	return nil
}
