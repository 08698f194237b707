package medicalrecord

import (
	"context"

	"github.com/google/uuid"
)

// Repository persists medical records inside the current tenant schema.
// GetByID returns (nil, nil) when no record exists.
type Repository interface {
	Create(ctx context.Context, r *MedicalRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicalRecord, error)
	// ListByPatient returns the patient's records in chronological order,
	// oldest first.
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*MedicalRecord, error)
	Update(ctx context.Context, r *MedicalRecord) error
}
