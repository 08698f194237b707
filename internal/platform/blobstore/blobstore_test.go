package blobstore

import (
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
)

func testStore(t *testing.T, name string, store Store) {
	ctx := context.Background()

	t.Run(name+"/put_get", func(t *testing.T) {
		content := "laudo audiometria"
		size, checksum, err := store.Put(ctx, "fono_sp/patient-1/doc-1.pdf", strings.NewReader(content))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if size != int64(len(content)) {
			t.Errorf("expected size %d, got %d", len(content), size)
		}
		want := fmt.Sprintf("%x", sha256.Sum256([]byte(content)))
		if checksum != want {
			t.Errorf("checksum mismatch: got %s want %s", checksum, want)
		}

		rc, err := store.Get(ctx, "fono_sp/patient-1/doc-1.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer rc.Close()
		data, _ := io.ReadAll(rc)
		if string(data) != content {
			t.Errorf("content mismatch: got %q", data)
		}
	})

	t.Run(name+"/not_found", func(t *testing.T) {
		if _, err := store.Get(ctx, "missing/key.pdf"); !errors.Is(err, ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got %v", err)
		}
		if err := store.Delete(ctx, "missing/key.pdf"); !errors.Is(err, ErrBlobNotFound) {
			t.Errorf("expected ErrBlobNotFound, got %v", err)
		}
	})

	t.Run(name+"/delete", func(t *testing.T) {
		if _, _, err := store.Put(ctx, "del/doc.pdf", strings.NewReader("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := store.Delete(ctx, "del/doc.pdf"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		exists, err := store.Exists(ctx, "del/doc.pdf")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if exists {
			t.Error("blob should be gone after delete")
		}
	})

	t.Run(name+"/too_large", func(t *testing.T) {
		_, _, err := store.Put(ctx, "big/doc.pdf", strings.NewReader(strings.Repeat("x", 2048)))
		if !errors.Is(err, ErrBlobTooLarge) {
			t.Errorf("expected ErrBlobTooLarge, got %v", err)
		}
	})

	t.Run(name+"/empty", func(t *testing.T) {
		_, _, err := store.Put(ctx, "empty/doc.pdf", strings.NewReader(""))
		if !errors.Is(err, ErrEmptyBlob) {
			t.Errorf("expected ErrEmptyBlob, got %v", err)
		}
	})

	t.Run(name+"/invalid_key", func(t *testing.T) {
		for _, key := range []string{"", "../escape.pdf", "a b.pdf"} {
			if _, _, err := store.Put(ctx, key, strings.NewReader("x")); !errors.Is(err, ErrInvalidKey) {
				t.Errorf("key %q: expected ErrInvalidKey, got %v", key, err)
			}
		}
	})
}

func TestMemoryStore(t *testing.T) {
	testStore(t, "memory", NewMemoryStore(1024))
}

func TestFileStore(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), 1024)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testStore(t, "file", store)
}
