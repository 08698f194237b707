// Package auditevent persists the clinic's audit trail. Domain services
// record business events (patient discharged, document deleted); the HTTP
// audit middleware records every access to clinical routes. Events live in
// the tenant schema, so each clinic only ever sees its own trail.
package auditevent

import (
	"time"

	"github.com/google/uuid"
)

// Event maps to the audit_event table.
type Event struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	UserID       string            `db:"user_id" json:"user_id"`
	UserName     string            `db:"user_name" json:"user_name,omitempty"`
	Action       string            `db:"action" json:"action"`
	ResourceType string            `db:"resource_type" json:"resource_type"`
	ResourceID   string            `db:"resource_id" json:"resource_id,omitempty"`
	PatientID    string            `db:"patient_id" json:"patient_id,omitempty"`
	Details      map[string]string `db:"details" json:"details,omitempty"`
	IPAddress    string            `db:"ip_address" json:"ip_address,omitempty"`
	RequestID    string            `db:"request_id" json:"request_id,omitempty"`
	StatusCode   int               `db:"status_code" json:"status_code,omitempty"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// Actions recorded by the domain services, beyond the read/create/update/
// delete actions the middleware derives from HTTP methods.
const (
	ActionPatientRegistered  = "patient.registered"
	ActionPatientUpdated     = "patient.updated"
	ActionPatientDischarged  = "patient.discharged"
	ActionPatientReactivated = "patient.reactivated"
	ActionPatientDeleted     = "patient.deleted"
	ActionRecordCreated      = "medical_record.created"
	ActionRecordUpdated      = "medical_record.updated"
	ActionNoteAdded          = "medical_record.note_added"
	ActionDocumentUploaded   = "document.uploaded"
	ActionDocumentDownloaded = "document.downloaded"
	ActionDocumentDeleted    = "document.deleted"

	ActionAppointmentBooked    = "appointment.booked"
	ActionAppointmentUpdated   = "appointment.updated"
	ActionAppointmentCancelled = "appointment.cancelled"
)
