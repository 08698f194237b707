package patient

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// Registry is the application service for patient registration. It owns
// duplicate detection and composes validation, persistence, and audit
// recording. The database unique index on cpf is the real duplicate guard
// against concurrent inserts; the lookup here only produces a richer error.
type Registry struct {
	repo   Repository
	events auditevent.Recorder
	logger zerolog.Logger
	now    func() time.Time
}

func NewRegistry(repo Repository, events auditevent.Recorder, logger zerolog.Logger) *Registry {
	return &Registry{
		repo:   repo,
		events: events,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Registry) record(ctx context.Context, e auditevent.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", e.Action).Msg("failed to record audit event")
	}
}

// CreatePatient registers a new patient after checking for a conflicting
// record by CPF or by name plus birth date.
func (s *Registry) CreatePatient(ctx context.Context, in CreateInput, createdBy string) (*Patient, error) {
	cpf, err := NewCPF(in.CPF)
	if err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByCPF(ctx, cpf.Clean())
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing == nil && in.FullName != "" && !in.BirthDate.IsZero() {
		existing, err = s.repo.GetByNameAndBirthDate(ctx, in.FullName, in.BirthDate)
		if err != nil {
			return nil, fmt.Errorf("duplicate check: %w", err)
		}
	}
	if existing != nil {
		return nil, &DuplicateError{
			ExistingID:  existing.ID.String(),
			ExistingCPF: existing.FormattedCPF(),
		}
	}

	p, err := NewPatient(in, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(createdBy, auditevent.ActionPatientRegistered, "patient", p.ID.String())
	e.PatientID = p.ID.String()
	s.record(ctx, e)

	return p, nil
}

// UpdatePatient applies a partial update to an existing patient.
func (s *Registry) UpdatePatient(ctx context.Context, id uuid.UUID, in UpdateInput, updatedBy string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}

	if err := p.ApplyUpdate(in, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	e := auditevent.NewEvent(updatedBy, auditevent.ActionPatientUpdated, "patient", p.ID.String())
	e.PatientID = p.ID.String()
	s.record(ctx, e)

	return p, nil
}

// GetPatient returns the patient or nil when absent; absence is not an error
// at this level.
func (s *Registry) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.repo.GetByID(ctx, id)
}

// DeletePatient hard-deletes a patient record.
func (s *Registry) DeletePatient(ctx context.Context, id uuid.UUID, deletedBy string) error {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return ErrPatientNotFound
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	e := auditevent.NewEvent(deletedBy, auditevent.ActionPatientDeleted, "patient", id.String())
	e.PatientID = id.String()
	s.record(ctx, e)

	return nil
}

// SearchPatients returns a paginated result set for the given criteria.
func (s *Registry) SearchPatients(ctx context.Context, criteria SearchCriteria, page pagination.Params) (*pagination.Response, error) {
	patients, total, err := s.repo.Search(ctx, criteria, page)
	if err != nil {
		return nil, err
	}
	if patients == nil {
		patients = []*Patient{}
	}
	return pagination.NewResponse(patients, total, page), nil
}

// ChangeStatus performs a guarded transition on a loaded patient and
// persists the result.
func (s *Registry) ChangeStatus(ctx context.Context, id uuid.UUID, to Status, change StatusChange, changedBy string) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPatientNotFound
	}

	from := p.Status
	if err := p.ChangeStatus(to, change, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}

	action := auditevent.ActionPatientUpdated
	switch to {
	case StatusDischarged:
		action = auditevent.ActionPatientDischarged
	case StatusActive:
		if from == StatusDischarged || from == StatusInactive {
			action = auditevent.ActionPatientReactivated
		}
	}
	e := auditevent.NewEvent(changedBy, action, "patient", p.ID.String())
	e.PatientID = p.ID.String()
	e.Details = map[string]string{"from": string(from), "to": string(to)}
	s.record(ctx, e)

	return p, nil
}

// DischargePatient is a convenience wrapper for the discharge transition.
func (s *Registry) DischargePatient(ctx context.Context, id uuid.UUID, change StatusChange, changedBy string) (*Patient, error) {
	return s.ChangeStatus(ctx, id, StatusDischarged, change, changedBy)
}

// ReactivatePatient moves a discharged or inactive patient back to active,
// clearing the discharge fields.
func (s *Registry) ReactivatePatient(ctx context.Context, id uuid.UUID, changedBy string) (*Patient, error) {
	return s.ChangeStatus(ctx, id, StatusActive, StatusChange{}, changedBy)
}
