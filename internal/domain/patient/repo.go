package patient

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// SearchCriteria filters patient searches. Query matches name, email, phone,
// and CPF as free text; the age range is translated to birth-date bounds.
type SearchCriteria struct {
	Query       string
	Status      Status
	AgeMin      *int
	AgeMax      *int
	CreatedFrom *time.Time
	CreatedTo   *time.Time
}

// Repository is the persistence contract for the patient aggregate. Lookups
// return (nil, nil) when no row matches; errors are reserved for storage
// failures.
type Repository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	GetByCPF(ctx context.Context, cleanCPF string) (*Patient, error)
	GetByNameAndBirthDate(ctx context.Context, fullName string, birthDate time.Time) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Patient, int, error)
}
