package document

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/auditevent"
	"github.com/matalvesdev/evolua-backend-sub004/internal/domain/patient"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/antivirus"
	"github.com/matalvesdev/evolua-backend-sub004/internal/platform/blobstore"
	"github.com/matalvesdev/evolua-backend-sub004/pkg/pagination"
)

// Authorizer decides whether a user may access a specific document. It is
// consulted before every download and delete.
type Authorizer interface {
	CanAccess(ctx context.Context, userID string, resourceID uuid.UUID) (bool, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, userID string, resourceID uuid.UUID) (bool, error)

func (f AuthorizerFunc) CanAccess(ctx context.Context, userID string, resourceID uuid.UUID) (bool, error) {
	return f(ctx, userID, resourceID)
}

type patientLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error)
}

// Manager is the application service for documents. Bytes go to the blob
// store, metadata to the repository; uploads are virus-scanned before the
// document becomes accessible.
type Manager struct {
	repo     Repository
	blobs    blobstore.Store
	scanner  antivirus.Scanner
	authz    Authorizer
	patients patientLookup
	events   auditevent.Recorder
	logger   zerolog.Logger
	now      func() time.Time
}

func NewManager(repo Repository, blobs blobstore.Store, scanner antivirus.Scanner, authz Authorizer, patients patientLookup, events auditevent.Recorder, logger zerolog.Logger) *Manager {
	return &Manager{
		repo:     repo,
		blobs:    blobs,
		scanner:  scanner,
		authz:    authz,
		patients: patients,
		events:   events,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *Manager) record(ctx context.Context, e auditevent.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Record(ctx, e); err != nil {
		s.logger.Error().Err(err).Str("action", e.Action).Msg("failed to record audit event")
	}
}

// UploadInput carries an incoming file and its metadata.
type UploadInput struct {
	PatientID uuid.UUID
	FileName  string
	MimeType  string
	Content   io.Reader
	Metadata  Metadata
	ExpiresAt *time.Time
}

// Upload stores the bytes, scans them, and persists the metadata row. An
// infected or failed scan quarantines the document instead of failing the
// upload, so the evidence is retained.
func (s *Manager) Upload(ctx context.Context, in UploadInput, uploadedBy string) (*Document, error) {
	p, err := s.patients.GetByID(ctx, in.PatientID)
	if err != nil {
		return nil, fmt.Errorf("patient lookup: %w", err)
	}
	if p == nil {
		return nil, patient.ErrPatientNotFound
	}

	docID := uuid.New()
	key := fmt.Sprintf("%s/%s", in.PatientID, docID)

	size, checksum, err := s.blobs.Put(ctx, key, in.Content)
	if err != nil {
		return nil, fmt.Errorf("storing document bytes: %w", err)
	}

	scan, err := s.scanContent(ctx, key)
	if err != nil {
		s.logger.Error().Err(err).Str("document_id", docID.String()).Msg("virus scan failed")
	}

	now := s.now()
	doc, err := NewDocument(CreateParams{
		PatientID:  in.PatientID,
		FileName:   in.FileName,
		StorageKey: key,
		MimeType:   in.MimeType,
		SizeBytes:  size,
		Metadata:   in.Metadata,
		Security: SecurityInfo{
			Checksum:        checksum,
			VirusScanResult: scan.Verdict,
			VirusScanDate:   &scan.ScannedAt,
		},
		UploadedBy: uploadedBy,
		ExpiresAt:  in.ExpiresAt,
	}, now)
	if err != nil {
		// Validation failed after the bytes were written; clean them up.
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("failed to remove orphaned blob")
		}
		return nil, err
	}
	doc.ID = docID

	if err := s.repo.Create(ctx, doc); err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error().Err(delErr).Str("key", key).Msg("failed to remove orphaned blob")
		}
		return nil, err
	}

	e := auditevent.NewEvent(uploadedBy, auditevent.ActionDocumentUploaded, "document", doc.ID.String())
	e.PatientID = doc.PatientID.String()
	e.Details = map[string]string{"scan_verdict": string(scan.Verdict)}
	s.record(ctx, e)

	return doc, nil
}

// scanContent re-reads the stored blob and runs it through the scanner.
func (s *Manager) scanContent(ctx context.Context, key string) (antivirus.Result, error) {
	content, err := s.blobs.Get(ctx, key)
	if err != nil {
		return antivirus.Result{Verdict: antivirus.VerdictError, ScannedAt: s.now()}, err
	}
	defer content.Close()
	return s.scanner.Scan(ctx, content)
}

// Get returns the document metadata or nil when absent.
func (s *Manager) Get(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetByID(ctx, id)
}

// Download checks authorization and access gating, then returns the document
// and a reader over its bytes. The caller closes the reader.
func (s *Manager) Download(ctx context.Context, id uuid.UUID, userID string) (*Document, io.ReadCloser, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if doc == nil {
		return nil, nil, ErrDocumentNotFound
	}

	allowed, err := s.authz.CanAccess(ctx, userID, doc.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("authorization check: %w", err)
	}
	if !allowed {
		return nil, nil, ErrUnauthorized
	}
	if !doc.CanBeAccessed() {
		return nil, nil, ErrNotAccessible
	}

	content, err := s.blobs.Get(ctx, doc.StorageKey)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching document bytes: %w", err)
	}

	e := auditevent.NewEvent(userID, auditevent.ActionDocumentDownloaded, "document", doc.ID.String())
	e.PatientID = doc.PatientID.String()
	s.record(ctx, e)

	return doc, content, nil
}

// Update merges metadata fields and applies status changes. Bytes are never
// rewritten through this path.
func (s *Manager) Update(ctx context.Context, id uuid.UUID, in UpdateInput, updatedBy string) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}

	if err := doc.ApplyUpdate(in, s.now()); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete checks authorization, removes the metadata row, and requests byte
// deletion from the blob store.
func (s *Manager) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if doc == nil {
		return ErrDocumentNotFound
	}

	allowed, err := s.authz.CanAccess(ctx, userID, doc.ID)
	if err != nil {
		return fmt.Errorf("authorization check: %w", err)
	}
	if !allowed {
		return ErrUnauthorized
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, doc.StorageKey); err != nil {
		// The metadata row is gone; the orphaned blob is only logged.
		s.logger.Error().Err(err).Str("key", doc.StorageKey).Msg("failed to delete document bytes")
	}

	e := auditevent.NewEvent(userID, auditevent.ActionDocumentDeleted, "document", id.String())
	e.PatientID = doc.PatientID.String()
	s.record(ctx, e)

	return nil
}

// Search returns a paginated result set for the given criteria.
func (s *Manager) Search(ctx context.Context, criteria SearchCriteria, page pagination.Params) (*pagination.Response, error) {
	documents, total, err := s.repo.Search(ctx, criteria, page)
	if err != nil {
		return nil, err
	}
	if documents == nil {
		documents = []*Document{}
	}
	return pagination.NewResponse(documents, total, page), nil
}

// ArchiveExpired moves every archive candidate to archived. It is meant to be
// driven by an external scheduler and returns how many documents it moved.
func (s *Manager) ArchiveExpired(ctx context.Context) (int, error) {
	now := s.now()
	candidates, err := s.repo.ListArchiveCandidates(ctx, now)
	if err != nil {
		return 0, err
	}

	archived := 0
	for _, doc := range candidates {
		if !doc.ShouldBeArchived(now) {
			continue
		}
		if err := doc.ChangeStatus(StatusArchived, now); err != nil {
			s.logger.Warn().Err(err).Str("document_id", doc.ID.String()).Msg("skipping archive candidate")
			continue
		}
		if err := s.repo.Update(ctx, doc); err != nil {
			return archived, err
		}
		archived++
	}
	return archived, nil
}
