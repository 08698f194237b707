package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// ListCriteria filters the appointment listing. Zero values mean "no filter".
// Day restricts to appointments starting within that calendar day (UTC).
type ListCriteria struct {
	PatientID      *uuid.UUID
	PractitionerID string
	Status         Status
	Day            *time.Time
}

// Repository persists appointments inside the current tenant schema. GetByID
// returns (nil, nil) when no row exists.
type Repository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	List(ctx context.Context, criteria ListCriteria, page pagination.Params) ([]*Appointment, int, error)
	// FindOverlapping returns the practitioner's scheduled or confirmed
	// appointments that intersect [start, end), excluding the given id.
	FindOverlapping(ctx context.Context, practitionerID string, start, end time.Time, exclude uuid.UUID) ([]*Appointment, error)
}
