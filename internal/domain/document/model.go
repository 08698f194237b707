package document

import (
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/antivirus"
)

// Metadata is the descriptive wrapper around an uploaded file, stored as a
// JSONB column.
type Metadata struct {
	Title          string   `json:"title"`
	Description    string   `json:"description,omitempty"`
	DocumentType   string   `json:"document_type"`
	Tags           []string `json:"tags,omitempty"`
	IsConfidential bool     `json:"is_confidential"`
	Version        int      `json:"version"`
	RetentionDays  int      `json:"retention_days,omitempty"`
	LegalBasis     string   `json:"legal_basis,omitempty"`
}

// SecurityInfo records what is known about the stored bytes, stored as a
// JSONB column. The scan verdict gates access independently of status.
type SecurityInfo struct {
	IsEncrypted         bool              `json:"is_encrypted"`
	EncryptionAlgorithm string            `json:"encryption_algorithm,omitempty"`
	Checksum            string            `json:"checksum"`
	VirusScanResult     antivirus.Verdict `json:"virus_scan_result,omitempty"`
	VirusScanDate       *time.Time        `json:"virus_scan_date,omitempty"`
}

// Document maps to the document table. The bytes themselves live in the blob
// store under StorageKey; this row only carries metadata.
type Document struct {
	ID         uuid.UUID    `db:"id" json:"id"`
	PatientID  uuid.UUID    `db:"patient_id" json:"patient_id"`
	FileName   string       `db:"file_name" json:"file_name"`
	StorageKey string       `db:"storage_key" json:"-"`
	MimeType   string       `db:"mime_type" json:"mime_type"`
	SizeBytes  int64        `db:"size_bytes" json:"size_bytes"`
	Metadata   Metadata     `db:"metadata" json:"metadata"`
	Security   SecurityInfo `db:"security_info" json:"security_info"`
	Status     Status       `db:"status" json:"status"`
	UploadedAt time.Time    `db:"uploaded_at" json:"uploaded_at"`
	UploadedBy string       `db:"uploaded_by" json:"uploaded_by"`
	ExpiresAt  *time.Time   `db:"expires_at" json:"expires_at,omitempty"`
	UpdatedAt  time.Time    `db:"updated_at" json:"updated_at"`
}

// CreateParams carries the validated facts needed to assemble a document row
// after the bytes have been stored and scanned.
type CreateParams struct {
	PatientID  uuid.UUID
	FileName   string
	StorageKey string
	MimeType   string
	SizeBytes  int64
	Metadata   Metadata
	Security   SecurityInfo
	UploadedBy string
	ExpiresAt  *time.Time
}

// NewDocument assembles the aggregate. A failed or infected scan lands the
// document in quarantine instead of active.
func NewDocument(p CreateParams, now time.Time) (*Document, error) {
	verr := &ValidationError{}
	if p.PatientID == uuid.Nil {
		verr.Add("patient_id", "is required")
	}
	if p.FileName == "" {
		verr.Add("file_name", "is required")
	}
	if p.Metadata.Title == "" {
		verr.Add("metadata.title", "is required")
	}
	if p.Metadata.DocumentType == "" {
		verr.Add("metadata.document_type", "is required")
	}
	if p.Metadata.RetentionDays < 0 {
		verr.Add("metadata.retention_days", "must not be negative")
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		verr.Add("expires_at", "must be in the future")
	}
	if verr.HasErrors() {
		return nil, verr
	}

	status := StatusActive
	if p.Security.VirusScanResult == antivirus.VerdictInfected ||
		p.Security.VirusScanResult == antivirus.VerdictError {
		status = StatusQuarantined
	}

	metadata := p.Metadata
	if metadata.Version == 0 {
		metadata.Version = 1
	}

	return &Document{
		ID:         uuid.New(),
		PatientID:  p.PatientID,
		FileName:   p.FileName,
		StorageKey: p.StorageKey,
		MimeType:   p.MimeType,
		SizeBytes:  p.SizeBytes,
		Metadata:   metadata,
		Security:   p.Security,
		Status:     status,
		UploadedAt: now,
		UploadedBy: p.UploadedBy,
		ExpiresAt:  p.ExpiresAt,
		UpdatedAt:  now,
	}, nil
}

// CanBeAccessed is false for quarantined or deleted documents and for any
// document whose virus scan reported an infection, regardless of status.
func (d *Document) CanBeAccessed() bool {
	if d.Status == StatusQuarantined || d.Status == StatusDeleted {
		return false
	}
	return d.Security.VirusScanResult != antivirus.VerdictInfected
}

// ShouldBeArchived is true once the expiry date has passed or the retention
// period has elapsed since upload.
func (d *Document) ShouldBeArchived(now time.Time) bool {
	if d.ExpiresAt != nil && now.After(*d.ExpiresAt) {
		return true
	}
	if d.Metadata.RetentionDays > 0 {
		return now.After(d.UploadedAt.AddDate(0, 0, d.Metadata.RetentionDays))
	}
	return false
}

// ChangeStatus performs a guarded lifecycle transition.
func (d *Document) ChangeStatus(to Status, now time.Time) error {
	if !to.IsValid() {
		return NewValidationError("status", "unknown document status "+string(to))
	}
	if !d.Status.CanTransitionTo(to) {
		return &InvalidTransitionError{From: d.Status, To: to}
	}
	d.Status = to
	d.UpdatedAt = now
	return nil
}

// MetadataUpdate holds the optional metadata fields of a partial update.
// Updating metadata bumps the version; the stored bytes are never rewritten.
type MetadataUpdate struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	DocumentType   *string   `json:"document_type,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	IsConfidential *bool     `json:"is_confidential,omitempty"`
	RetentionDays  *int      `json:"retention_days,omitempty"`
	LegalBasis     *string   `json:"legal_basis,omitempty"`
}

type UpdateInput struct {
	Metadata *MetadataUpdate `json:"metadata,omitempty"`
	Status   *string         `json:"status,omitempty"`
}

// ApplyUpdate merges metadata fields and applies any status change, in that
// order, so a rejected transition leaves metadata untouched too.
func (d *Document) ApplyUpdate(in UpdateInput, now time.Time) error {
	verr := &ValidationError{}

	var newStatus *Status
	if in.Status != nil {
		status, err := NewStatus(*in.Status)
		if err != nil {
			verr.Add("status", "unknown document status "+*in.Status)
		} else {
			newStatus = &status
		}
	}
	if in.Metadata != nil {
		if in.Metadata.Title != nil && *in.Metadata.Title == "" {
			verr.Add("metadata.title", "cannot be empty")
		}
		if in.Metadata.DocumentType != nil && *in.Metadata.DocumentType == "" {
			verr.Add("metadata.document_type", "cannot be empty")
		}
		if in.Metadata.RetentionDays != nil && *in.Metadata.RetentionDays < 0 {
			verr.Add("metadata.retention_days", "must not be negative")
		}
	}
	if verr.HasErrors() {
		return verr
	}

	if newStatus != nil && !d.Status.CanTransitionTo(*newStatus) {
		return &InvalidTransitionError{From: d.Status, To: *newStatus}
	}

	if in.Metadata != nil {
		m := in.Metadata
		if m.Title != nil {
			d.Metadata.Title = *m.Title
		}
		if m.Description != nil {
			d.Metadata.Description = *m.Description
		}
		if m.DocumentType != nil {
			d.Metadata.DocumentType = *m.DocumentType
		}
		if m.Tags != nil {
			d.Metadata.Tags = *m.Tags
		}
		if m.IsConfidential != nil {
			d.Metadata.IsConfidential = *m.IsConfidential
		}
		if m.RetentionDays != nil {
			d.Metadata.RetentionDays = *m.RetentionDays
		}
		if m.LegalBasis != nil {
			d.Metadata.LegalBasis = *m.LegalBasis
		}
		d.Metadata.Version++
	}
	if newStatus != nil {
		d.Status = *newStatus
	}

	d.UpdatedAt = now
	return nil
}
