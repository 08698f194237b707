package document

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/antivirus"
)

var testNow = time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

func validParams() CreateParams {
	return CreateParams{
		PatientID:  uuid.New(),
		FileName:   "laudo-fonoaudiologico.pdf",
		StorageKey: "clinic/patient/doc",
		MimeType:   "application/pdf",
		SizeBytes:  2048,
		Metadata:   Metadata{Title: "Laudo fonoaudiológico", DocumentType: "report"},
		Security: SecurityInfo{
			Checksum:        "abc123",
			VirusScanResult: antivirus.VerdictClean,
			VirusScanDate:   &testNow,
		},
		UploadedBy: "therapist-1",
	}
}

func TestNewDocument(t *testing.T) {
	doc, err := NewDocument(validParams(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Status != StatusActive {
		t.Errorf("clean upload should be active, got %s", doc.Status)
	}
	if doc.Metadata.Version != 1 {
		t.Errorf("initial version should be 1, got %d", doc.Metadata.Version)
	}
	if !doc.CanBeAccessed() {
		t.Error("clean active document should be accessible")
	}
}

func TestNewDocument_InfectedScanQuarantines(t *testing.T) {
	p := validParams()
	p.Security.VirusScanResult = antivirus.VerdictInfected

	doc, err := NewDocument(p, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Status != StatusQuarantined {
		t.Errorf("infected upload should be quarantined, got %s", doc.Status)
	}
	if doc.CanBeAccessed() {
		t.Error("quarantined document must not be accessible")
	}
}

func TestNewDocument_ScanErrorQuarantines(t *testing.T) {
	p := validParams()
	p.Security.VirusScanResult = antivirus.VerdictError

	doc, err := NewDocument(p, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Status != StatusQuarantined {
		t.Errorf("failed scan should quarantine, got %s", doc.Status)
	}
}

func TestNewDocument_Validation(t *testing.T) {
	past := testNow.AddDate(0, 0, -1)
	p := CreateParams{
		Metadata:  Metadata{RetentionDays: -1},
		ExpiresAt: &past,
	}
	_, err := NewDocument(p, testNow)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) < 5 {
		t.Errorf("expected every invalid field reported, got %v", verr.Fields)
	}
}

func TestCanBeAccessed_InfectedOverridesStatus(t *testing.T) {
	doc, err := NewDocument(validParams(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Flip the scan result without touching status: access must still be
	// denied.
	doc.Security.VirusScanResult = antivirus.VerdictInfected
	if doc.Status != StatusActive {
		t.Fatalf("precondition: status should be active, got %s", doc.Status)
	}
	if doc.CanBeAccessed() {
		t.Error("infected document must not be accessible regardless of status")
	}
}

func TestShouldBeArchived(t *testing.T) {
	t.Run("expiry passed", func(t *testing.T) {
		future := testNow.Add(time.Hour)
		p := validParams()
		p.ExpiresAt = &future

		doc, err := NewDocument(p, testNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.ShouldBeArchived(testNow) {
			t.Error("not yet expired")
		}
		if !doc.ShouldBeArchived(testNow.Add(2 * time.Hour)) {
			t.Error("past expiry should be archivable")
		}
	})

	t.Run("retention elapsed", func(t *testing.T) {
		p := validParams()
		p.Metadata.RetentionDays = 30

		doc, err := NewDocument(p, testNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.ShouldBeArchived(testNow.AddDate(0, 0, 29)) {
			t.Error("retention not yet elapsed")
		}
		if !doc.ShouldBeArchived(testNow.AddDate(0, 0, 31)) {
			t.Error("elapsed retention should be archivable")
		}
	})

	t.Run("no policy", func(t *testing.T) {
		doc, err := NewDocument(validParams(), testNow)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.ShouldBeArchived(testNow.AddDate(10, 0, 0)) {
			t.Error("no expiry or retention set, never archivable")
		}
	})
}

func TestChangeStatus(t *testing.T) {
	doc, err := NewDocument(validParams(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := doc.ChangeStatus(StatusArchived, testNow); err != nil {
		t.Fatalf("active -> archived should be allowed: %v", err)
	}
	if err := doc.ChangeStatus(StatusActive, testNow); err != nil {
		t.Fatalf("archived -> active should be allowed: %v", err)
	}
	if err := doc.ChangeStatus(StatusDeleted, testNow); err != nil {
		t.Fatalf("active -> deleted should be allowed: %v", err)
	}

	err = doc.ChangeStatus(StatusActive, testNow)
	var trans *InvalidTransitionError
	if !errors.As(err, &trans) {
		t.Fatalf("deleted is terminal; expected InvalidTransitionError, got %v", err)
	}
}

func TestChangeStatus_QuarantineIsNotRestorable(t *testing.T) {
	p := validParams()
	p.Security.VirusScanResult = antivirus.VerdictInfected
	doc, err := NewDocument(p, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var trans *InvalidTransitionError
	if err := doc.ChangeStatus(StatusActive, testNow); !errors.As(err, &trans) {
		t.Fatalf("quarantined -> active should be denied, got %v", err)
	}
	if err := doc.ChangeStatus(StatusDeleted, testNow); err != nil {
		t.Fatalf("quarantined -> deleted should be allowed: %v", err)
	}
}

func TestApplyUpdate(t *testing.T) {
	doc, err := NewDocument(validParams(), testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	later := testNow.Add(time.Hour)
	title := "Laudo atualizado"
	confidential := true
	status := string(StatusArchived)
	err = doc.ApplyUpdate(UpdateInput{
		Metadata: &MetadataUpdate{Title: &title, IsConfidential: &confidential},
		Status:   &status,
	}, later)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if doc.Metadata.Title != "Laudo atualizado" || !doc.Metadata.IsConfidential {
		t.Errorf("metadata not merged: %+v", doc.Metadata)
	}
	if doc.Metadata.DocumentType != "report" {
		t.Error("unsupplied fields must be preserved")
	}
	if doc.Metadata.Version != 2 {
		t.Errorf("metadata update should bump version, got %d", doc.Metadata.Version)
	}
	if doc.Status != StatusArchived {
		t.Errorf("status not applied: %s", doc.Status)
	}
}

func TestApplyUpdate_RejectedTransitionLeavesMetadata(t *testing.T) {
	p := validParams()
	p.Security.VirusScanResult = antivirus.VerdictInfected
	doc, err := NewDocument(p, testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title := "tentativa"
	status := string(StatusActive)
	err = doc.ApplyUpdate(UpdateInput{
		Metadata: &MetadataUpdate{Title: &title},
		Status:   &status,
	}, testNow)

	var trans *InvalidTransitionError
	if !errors.As(err, &trans) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
	if doc.Metadata.Title == "tentativa" {
		t.Error("rejected update must not mutate metadata")
	}
}
