package document

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// SearchCriteria filters the document listing. Zero values mean "no filter".
type SearchCriteria struct {
	PatientID    *uuid.UUID
	DocumentType string
	Status       Status
	Query        string
}

// Repository persists document metadata inside the current tenant schema.
// GetByID returns (nil, nil) when no row exists.
type Repository interface {
	Create(ctx context.Context, d *Document) error
	GetByID(ctx context.Context, id uuid.UUID) (*Document, error)
	Update(ctx context.Context, d *Document) error
	Delete(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Document, int, error)
	// ListArchiveCandidates returns active documents whose expiry has passed
	// or whose retention period has elapsed as of now.
	ListArchiveCandidates(ctx context.Context, now time.Time) ([]*Document, error)
}
