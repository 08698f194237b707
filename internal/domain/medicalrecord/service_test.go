package medicalrecord

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
)

type mockRepo struct {
	records map[uuid.UUID]*MedicalRecord
	order   []uuid.UUID
}

func newMockRepo() *mockRepo {
	return &mockRepo{records: make(map[uuid.UUID]*MedicalRecord)}
}

func (m *mockRepo) Create(_ context.Context, r *MedicalRecord) error {
	cp := *r
	m.records[r.ID] = &cp
	m.order = append(m.order, r.ID)
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicalRecord, error) {
	r, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	var out []*MedicalRecord
	for _, id := range m.order {
		if r := m.records[id]; r.PatientID == patientID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, r *MedicalRecord) error {
	if _, ok := m.records[r.ID]; !ok {
		return ErrRecordNotFound
	}
	cp := *r
	m.records[r.ID] = &cp
	return nil
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

func (r *recordedEvents) lastAction() string {
	if len(r.events) == 0 {
		return ""
	}
	return r.events[len(r.events)-1].Action
}

func newTestManager(patientIDs ...uuid.UUID) (*Manager, *mockRepo, *recordedEvents) {
	repo := newMockRepo()
	patients := &mockPatients{known: make(map[uuid.UUID]*patient.Patient)}
	for _, id := range patientIDs {
		patients.known[id] = &patient.Patient{ID: id, Status: patient.StatusActive}
	}
	events := &recordedEvents{}
	mgr := NewManager(repo, patients, events, zerolog.Nop())
	mgr.now = func() time.Time { return testNow }
	return mgr, repo, events
}

func TestManager_CreateRecord(t *testing.T) {
	patientID := uuid.New()
	mgr, repo, events := newTestManager(patientID)

	in := validCreateInput()
	in.PatientID = patientID
	rec, err := mgr.CreateRecord(context.Background(), in, "therapist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := repo.records[rec.ID]; !ok {
		t.Error("record should be persisted")
	}
	if events.lastAction() != auditevent.ActionRecordCreated {
		t.Errorf("expected creation audit event, got %q", events.lastAction())
	}
}

func TestManager_CreateRecord_UnknownPatient(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.CreateRecord(context.Background(), validCreateInput(), "therapist-1")
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestManager_GetHistory_Chronological(t *testing.T) {
	patientID := uuid.New()
	mgr, _, _ := newTestManager(patientID)

	for i := 0; i < 3; i++ {
		in := validCreateInput()
		in.PatientID = patientID
		if _, err := mgr.CreateRecord(context.Background(), in, "therapist-1"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	history, err := mgr.GetHistory(context.Background(), patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("expected three records, got %d", len(history))
	}
}

func TestManager_GetHistory_UnknownPatient(t *testing.T) {
	mgr, _, _ := newTestManager()

	_, err := mgr.GetHistory(context.Background(), uuid.New())
	if !errors.Is(err, patient.ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestManager_GetHistory_Empty(t *testing.T) {
	patientID := uuid.New()
	mgr, _, _ := newTestManager(patientID)

	history, err := mgr.GetHistory(context.Background(), patientID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if history == nil || len(history) != 0 {
		t.Errorf("expected empty non-nil history, got %v", history)
	}
}

func TestManager_UpdateRecord(t *testing.T) {
	patientID := uuid.New()
	mgr, repo, events := newTestManager(patientID)

	in := validCreateInput()
	in.PatientID = patientID
	rec, err := mgr.CreateRecord(context.Background(), in, "therapist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	allergies := []Allergy{{Allergen: "penicillin", Severity: "high", DiagnosedAt: testNow}}
	updated, err := mgr.UpdateRecord(context.Background(), rec.ID, UpdateInput{Allergies: &allergies}, "therapist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(updated.Allergies) != 1 {
		t.Errorf("allergy list not replaced: %+v", updated.Allergies)
	}
	if len(repo.records[rec.ID].Allergies) != 1 {
		t.Error("update should be persisted")
	}
	if events.lastAction() != auditevent.ActionRecordUpdated {
		t.Errorf("expected update audit event, got %q", events.lastAction())
	}
}

func TestManager_UpdateRecord_NotFound(t *testing.T) {
	mgr, _, _ := newTestManager()

	meds := []Medication{{Name: "A", Dosage: "1mg", StartDate: testNow}}
	_, err := mgr.UpdateRecord(context.Background(), uuid.New(), UpdateInput{Medications: &meds}, "therapist-1")
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestManager_AddProgressNote(t *testing.T) {
	patientID := uuid.New()
	mgr, repo, events := newTestManager(patientID)

	in := validCreateInput()
	in.PatientID = patientID
	rec, err := mgr.CreateRecord(context.Background(), in, "therapist-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	note := ProgressNote{Content: "good session", CreatedBy: "therapist-1", SessionDate: testNow}
	added, err := mgr.AddProgressNote(context.Background(), rec.ID, note)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if added.ID == uuid.Nil {
		t.Error("note should get an id")
	}
	if len(repo.records[rec.ID].ProgressNotes) != 1 {
		t.Error("note should be persisted with the record")
	}
	if events.lastAction() != auditevent.ActionNoteAdded {
		t.Errorf("expected note audit event, got %q", events.lastAction())
	}
}

func TestManager_AddProgressNote_RecordNotFound(t *testing.T) {
	mgr, _, _ := newTestManager()

	note := ProgressNote{Content: "orphan", CreatedBy: "therapist-1", SessionDate: testNow}
	_, err := mgr.AddProgressNote(context.Background(), uuid.New(), note)
	if !errors.Is(err, ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}
