// Package antivirus scans uploaded document content before it becomes
// downloadable. Uploads land in quarantine and only move to available after a
// clean verdict.
package antivirus

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"
)

// Verdict is the outcome of a scan.
type Verdict string

const (
	VerdictClean    Verdict = "clean"
	VerdictInfected Verdict = "infected"
	// VerdictError means the scan could not complete; the content stays
	// quarantined until a later rescan succeeds.
	VerdictError Verdict = "error"
)

// Result describes a completed (or failed) scan.
type Result struct {
	Verdict   Verdict   `json:"verdict"`
	Signature string    `json:"signature,omitempty"`
	ScannedAt time.Time `json:"scanned_at"`
}

// Scanner is the contract for antivirus backends.
type Scanner interface {
	Scan(ctx context.Context, content io.Reader) (Result, error)
}

// eicarSignature is the standard antivirus test string. Any content that
// contains it is reported as infected, which gives integration tests a safe
// way to exercise the quarantine path.
var eicarSignature = []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)

// maxScanBytes caps how much content the signature scanner reads.
const maxScanBytes = 256 * 1024 * 1024

// SignatureScanner is an in-process Scanner that matches content against a
// fixed list of byte signatures. It always knows the EICAR test signature.
type SignatureScanner struct {
	signatures map[string][]byte
}

func NewSignatureScanner() *SignatureScanner {
	return &SignatureScanner{
		signatures: map[string][]byte{
			"EICAR-Test-File": eicarSignature,
		},
	}
}

// AddSignature registers an extra named signature.
func (s *SignatureScanner) AddSignature(name string, pattern []byte) {
	s.signatures[name] = append([]byte(nil), pattern...)
}

func (s *SignatureScanner) Scan(ctx context.Context, content io.Reader) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Verdict: VerdictError, ScannedAt: time.Now().UTC()}, err
	}

	data, err := io.ReadAll(io.LimitReader(content, maxScanBytes))
	if err != nil {
		return Result{Verdict: VerdictError, ScannedAt: time.Now().UTC()},
			fmt.Errorf("reading content for scan: %w", err)
	}

	for name, sig := range s.signatures {
		if bytes.Contains(data, sig) {
			return Result{
				Verdict:   VerdictInfected,
				Signature: name,
				ScannedAt: time.Now().UTC(),
			}, nil
		}
	}

	return Result{Verdict: VerdictClean, ScannedAt: time.Now().UTC()}, nil
}

// ScannerFunc adapts a function to the Scanner interface.
type ScannerFunc func(ctx context.Context, content io.Reader) (Result, error)

func (f ScannerFunc) Scan(ctx context.Context, content io.Reader) (Result, error) {
	return f(ctx, content)
}
