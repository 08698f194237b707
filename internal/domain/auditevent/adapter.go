package auditevent

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/middleware"
)

// AccessRecorder adapts the Repository to the HTTP audit middleware, turning
// access entries into persisted events.
type AccessRecorder struct {
	repo Recorder
}

func NewAccessRecorder(repo Recorder) *AccessRecorder {
	return &AccessRecorder{repo: repo}
}

func (a *AccessRecorder) RecordAccess(ctx context.Context, entry middleware.AuditEntry) error {
	return a.repo.Record(ctx, Event{
		ID:           uuid.New(),
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		PatientID:    entry.PatientID,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		StatusCode:   entry.StatusCode,
		CreatedAt:    entry.Timestamp,
	})
}

// NewEvent fills the identity fields common to service-recorded events.
func NewEvent(userID, action, resourceType, resourceID string) Event {
	return Event{
		ID:           uuid.New(),
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		CreatedAt:    time.Now().UTC(),
	}
}
