package auditevent

import (
	"context"
	"time"

	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// Recorder is the write side of the audit trail.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

// RecorderFunc adapts a function to the Recorder interface.
type RecorderFunc func(ctx context.Context, e Event) error

func (f RecorderFunc) Record(ctx context.Context, e Event) error {
	return f(ctx, e)
}

// SearchCriteria filters the audit listing endpoints.
type SearchCriteria struct {
	UserID       string
	Action       string
	ResourceType string
	ResourceID   string
	PatientID    string
	From         *time.Time
	To           *time.Time
}

// Repository adds the read side used by the audit listing endpoint.
type Repository interface {
	Recorder
	Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) ([]*Event, int, error)
}
