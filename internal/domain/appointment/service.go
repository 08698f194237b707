package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type patientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Scheduler is the application service for appointments. Booking is refused
// for patients whose status forbids scheduling and for practitioner time
// conflicts.
type Scheduler struct {
	repo     Repository
	patients patientLookup
	events   auditevent.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewScheduler(repo Repository, patients patientLookup, events auditevent.Recorder, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		repo:     repo,
		patients: patients,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Scheduler) record(ctx context.Context, e auditevent.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", e.Action).Msg("failed to record audit event")
	}
}

// Book creates an appointment after checking patient eligibility and
// practitioner availability.
func (s *Scheduler) Book(ctx context.Context, in CreateInput, bookedBy string) (*Appointment, error) {
	p, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	if p == nil {
		return nil, patient.ErrPatientNotFound
	}
	if !p.CanScheduleAppointment() {
		return nil, ErrPatientCannotSchedule
	}

	appt, err := NewAppointment(in, s.now())
	if err != nil {
		return nil, err
	}

	overlapping, err := s.repo.FindOverlapping(ctx, appt.PractitionerID, appt.StartTime, appt.EndTime, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("conflict check: %w", err)
	}
	if len(overlapping) > 0 {
		return nil, &ConflictError{
			PractitionerID: appt.PractitionerID,
			Start:          overlapping[0].StartTime,
			End:            overlapping[0].EndTime,
		}
	}

	if err := s.repo.Create(ctx, appt); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(bookedBy, auditevent.ActionAppointmentBooked, "appointment", appt.ID.String())
	e.PatientID = appt.PatientID.String()
	s.record(ctx, e)

	return appt, nil
}

// Get returns the appointment or nil when absent.
func (s *Scheduler) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.repo.GetByID(ctx, id)
}

// Update reschedules or annotates an appointment, re-running the conflict
// check when the window moves.
func (s *Scheduler) Update(ctx context.Context, id uuid.UUID, in UpdateInput, updatedBy string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}

	windowMoved := in.StartTime != nil || in.EndTime != nil
	if err := appt.ApplyUpdate(in, s.now()); err != nil {
		return nil, err
	}

	if windowMoved {
		overlapping, err := s.repo.FindOverlapping(ctx, appt.PractitionerID, appt.StartTime, appt.EndTime, appt.ID)
		if err != nil {
			return nil, fmt.Errorf("conflict check: %w", err)
		}
		if len(overlapping) > 0 {
			return nil, &ConflictError{
				PractitionerID: appt.PractitionerID,
				Start:          overlapping[0].StartTime,
				End:            overlapping[0].EndTime,
			}
		}
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}
	return appt, nil
}

// ChangeStatus performs a guarded lifecycle transition.
func (s *Scheduler) ChangeStatus(ctx context.Context, id uuid.UUID, to Status, changedBy string) (*Appointment, error) {
	appt, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if appt == nil {
		return nil, ErrAppointmentNotFound
	}

	from := appt.Status
	if err := appt.ChangeStatus(to, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, appt); err != nil {
		return nil, err
	}

	action := auditevent.ActionAppointmentUpdated
	if to == StatusCancelled {
		action = auditevent.ActionAppointmentCancelled
	}
	e := auditevent.NewEvent(changedBy, action, "appointment", appt.ID.String())
	e.PatientID = appt.PatientID.String()
	e.Details = map[string]string{"from": string(from), "to": string(to)}
	s.record(ctx, e)

	return appt, nil
}

// Cancel is a convenience wrapper for the cancellation transition.
func (s *Scheduler) Cancel(ctx context.Context, id uuid.UUID, cancelledBy string) (*Appointment, error) {
	return s.ChangeStatus(ctx, id, StatusCancelled, cancelledBy)
}

// List returns a paginated slice of appointments matching the criteria,
// ordered by start time.
func (s *Scheduler) List(ctx context.Context, criteria ListCriteria, page pagination.Params) (*pagination.Response, error) {
	appointments, total, err := s.repo.List(ctx, criteria, page)
	if err != nil {
		return nil, err
	}
	if appointments == nil {
		appointments = []*Appointment{}
	}
	return pagination.NewResponse(appointments, total, page), nil
}
