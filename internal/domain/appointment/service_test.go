package appointment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appointments[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	cp := *a
	m.appointments[a.ID] = &cp
	return nil
}

func (m *mockRepo) List(_ context.Context, criteria ListCriteria, _ pagination.Params) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if criteria.PatientID != nil && a.PatientID != *criteria.PatientID {
			continue
		}
		if criteria.PractitionerID != "" && a.PractitionerID != criteria.PractitionerID {
			continue
		}
		if criteria.Status != "" && a.Status != criteria.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func (m *mockRepo) FindOverlapping(_ context.Context, practitionerID string, start, end time.Time, exclude uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appointments {
		if a.ID == exclude || a.PractitionerID != practitionerID {
			continue
		}
		if a.Status != StatusScheduled && a.Status != StatusConfirmed {
			continue
		}
		if a.Overlaps(start, end) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, nil
}

type mockPatients struct {
	known map[uuid.UUID]*patient.Patient
}

func (m *mockPatients) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	return m.known[id], nil
}

type recordedEvents struct {
	events []auditevent.Event
}

func (r *recordedEvents) Record(_ context.Context, e auditevent.Event) error {
	r.events = append(r.events, e)
	return nil
}

func newTestScheduler(patients map[uuid.UUID]*patient.Patient) (*Scheduler, *mockRepo, *recordedEvents) {
	repo := newMockRepo()
	events := &recordedEvents{}
	sched := NewScheduler(repo, &mockPatients{known: patients}, events, zerolog.Nop())
	sched.now = func() time.Time { return testNow }
	return sched, repo, events
}

func activePatient() *patient.Patient {
	return &patient.Patient{ID: uuid.New(), Status: patient.StatusActive}
}

func TestScheduler_Book(t *testing.T) {
	p := activePatient()
	sched, repo, events := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	appt, err := sched.Book(context.Background(), in, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.appointments[appt.ID]; !ok {
		t.Error("appointment should be persisted")
	}
	if len(events.events) == 0 || events.events[0].Action != auditevent.ActionAppointmentBooked {
		t.Error("expected a booking audit event")
	}
}

func TestScheduler_Book_IneligiblePatient(t *testing.T) {
	p := activePatient()
	p.Status = patient.StatusDischarged
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	_, err := sched.Book(context.Background(), in, "receptionist-1")
	if !errors.Is(err, ErrPatientCannotSchedule) {
		t.Fatalf("expected ErrPatientCannotSchedule, got %v", err)
	}
}

func TestScheduler_Book_NewPatientCannotSchedule(t *testing.T) {
	p := activePatient()
	p.Status = patient.StatusNew
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	if _, err := sched.Book(context.Background(), in, "receptionist-1"); !errors.Is(err, ErrPatientCannotSchedule) {
		t.Fatalf("expected ErrPatientCannotSchedule, got %v", err)
	}
}

func TestScheduler_Book_UnknownPatient(t *testing.T) {
	sched, _, _ := newTestScheduler(nil)

	_, err := sched.Book(context.Background(), validInput(), "receptionist-1")
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestScheduler_Book_PractitionerConflict(t *testing.T) {
	p := activePatient()
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	if _, err := sched.Book(context.Background(), in, "receptionist-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Same practitioner, overlapping window.
	second := in
	second.StartTime = in.StartTime.Add(30 * time.Minute)
	second.EndTime = in.EndTime.Add(30 * time.Minute)
	_, err := sched.Book(context.Background(), second, "receptionist-1")

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflict.PractitionerID != in.PractitionerID {
		t.Errorf("conflict should name the practitioner, got %q", conflict.PractitionerID)
	}
}

func TestScheduler_Book_DifferentPractitionerNoConflict(t *testing.T) {
	p := activePatient()
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	if _, err := sched.Book(context.Background(), in, "receptionist-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := in
	second.PractitionerID = "therapist-2"
	if _, err := sched.Book(context.Background(), second, "receptionist-1"); err != nil {
		t.Fatalf("different practitioners can overlap: %v", err)
	}
}

func TestScheduler_Book_CancelledSlotIsFree(t *testing.T) {
	p := activePatient()
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	appt, err := sched.Book(context.Background(), in, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := sched.Cancel(context.Background(), appt.ID, "receptionist-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := sched.Book(context.Background(), in, "receptionist-1"); err != nil {
		t.Fatalf("cancelled appointments should not block the slot: %v", err)
	}
}

func TestScheduler_Update_RechecksConflicts(t *testing.T) {
	p := activePatient()
	sched, _, _ := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	first, err := sched.Book(context.Background(), in, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	second := in
	second.StartTime = in.EndTime.Add(time.Hour)
	second.EndTime = in.EndTime.Add(2 * time.Hour)
	moved, err := sched.Book(context.Background(), second, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Move the second appointment onto the first one.
	newStart := first.StartTime
	newEnd := first.EndTime
	_, err = sched.Update(context.Background(), moved.ID, UpdateInput{StartTime: &newStart, EndTime: &newEnd}, "receptionist-1")

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
}

func TestScheduler_Cancel(t *testing.T) {
	p := activePatient()
	sched, repo, events := newTestScheduler(map[uuid.UUID]*patient.Patient{p.ID: p})

	in := validInput()
	in.PatientID = p.ID
	appt, err := sched.Book(context.Background(), in, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cancelled, err := sched.Cancel(context.Background(), appt.ID, "receptionist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected cancelled, got %s", cancelled.Status)
	}
	if repo.appointments[appt.ID].Status != StatusCancelled {
		t.Error("cancellation should be persisted")
	}
	last := events.events[len(events.events)-1]
	if last.Action != auditevent.ActionAppointmentCancelled {
		t.Errorf("expected cancellation audit event, got %q", last.Action)
	}
}

func TestScheduler_ChangeStatus_NotFound(t *testing.T) {
	sched, _, _ := newTestScheduler(nil)

	_, err := sched.ChangeStatus(context.Background(), uuid.New(), StatusConfirmed, "receptionist-1")
	if !errors.Is(err, ErrAppointmentNotFound) {
		t.Fatalf("expected ErrAppointmentNotFound, got %v", err)
	}
}
