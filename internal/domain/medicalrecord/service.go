package medicalrecord

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
)

// patientLookup is the slice of the patient repository the manager needs to
// verify that a record's patient exists. patient.Repository satisfies it.
type patientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Manager is the application service for medical records.
type Manager struct {
	repo     Repository
	patients patientLookup
	events   auditevent.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewManager(repo Repository, patients patientLookup, events auditevent.Recorder, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		patients: patients,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Manager) record(ctx context.Context, e auditevent.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", e.Action).Msg("failed to record audit event")
	}
}

// CreateRecord assembles and persists a new medical record for an existing
// patient.
func (s *Manager) CreateRecord(ctx context.Context, in CreateInput, createdBy string) (*MedicalRecord, error) {
	p, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	if p == nil {
		return nil, patient.ErrPatientNotFound
	}

	rec, err := NewMedicalRecord(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(createdBy, auditevent.ActionRecordCreated, "medical_record", rec.ID.String())
	e.PatientID = rec.PatientID.String()
	s.record(ctx, e)

	return rec, nil
}

// GetRecord returns the record or nil when absent.
func (s *Manager) GetRecord(ctx context.Context, id uuid.UUID) (*MedicalRecord, error) {
	return s.repo.GetByID(ctx, id)
}

// GetHistory returns a patient's records in chronological order, oldest
// first. The patient must exist; an empty history is not an error.
func (s *Manager) GetHistory(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error) {
	p, err := s.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	if p == nil {
		return nil, patient.ErrPatientNotFound
	}

	records, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if records == nil {
		records = []*MedicalRecord{}
	}
	return records, nil
}

// UpdateRecord replaces the list fields supplied in the input.
func (s *Manager) UpdateRecord(ctx context.Context, id uuid.UUID, in UpdateInput, updatedBy string) (*MedicalRecord, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	if err := rec.ApplyUpdate(in, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(updatedBy, auditevent.ActionRecordUpdated, "medical_record", rec.ID.String())
	e.PatientID = rec.PatientID.String()
	s.record(ctx, e)

	return rec, nil
}

// AddProgressNote appends a note to an existing record. Notes are immutable
// once written.
func (s *Manager) AddProgressNote(ctx context.Context, id uuid.UUID, note ProgressNote) (*ProgressNote, error) {
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrRecordNotFound
	}

	added, err := rec.AddProgressNote(note, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(note.CreatedBy, auditevent.ActionNoteAdded, "medical_record", rec.ID.String())
	e.PatientID = rec.PatientID.String()
	e.Details = map[string]string{"note_id": added.ID.String()}
	s.record(ctx, e)

	return added, nil
}
