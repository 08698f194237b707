// Package blobstore stores document binary content. Metadata lives in the
// database; this package only deals in raw bytes addressed by storage key.
// It provides an in-memory store for tests and a filesystem store for
// deployments without object storage.
package blobstore

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	ErrBlobNotFound = errors.New("blob not found")
	ErrBlobTooLarge = errors.New("blob exceeds maximum allowed size")
	ErrEmptyBlob    = errors.New("blob content is empty")
	ErrInvalidKey   = errors.New("invalid storage key")
)

// Store is the contract for blob storage backends.
type Store interface {
	// Put stores the content under key and returns the byte count and the
	// SHA-256 checksum (hex) of what was written.
	Put(ctx context.Context, key string, content io.Reader) (int64, string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

func validKey(key string) bool {
	if key == "" || strings.Contains(key, "..") {
		return false
	}
	for _, r := range key {
		ok := r == '/' || r == '-' || r == '_' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return true
}

// readAll drains content up to maxBytes, computing the checksum as it goes.
func readAll(content io.Reader, maxBytes int64) ([]byte, string, error) {
	limit := io.LimitReader(content, maxBytes+1)
	data, err := io.ReadAll(limit)
	if err != nil {
		return nil, "", fmt.Errorf("reading content: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, "", ErrBlobTooLarge
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyBlob
	}
	sum := sha256.Sum256(data)
	return data, fmt.Sprintf("%x", sum), nil
}

// MemoryStore is a thread-safe in-memory Store for tests and development.
type MemoryStore struct {
	mu       sync.RWMutex
	blobs    map[string][]byte
	maxBytes int64
}

func NewMemoryStore(maxBytes int64) *MemoryStore {
	return &MemoryStore{
		blobs:    make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (s *MemoryStore) Put(_ context.Context, key string, content io.Reader) (int64, string, error) {
	if !validKey(key) {
		return 0, "", ErrInvalidKey
	}
	data, checksum, err := readAll(content, s.maxBytes)
	if err != nil {
		return 0, "", err
	}

	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()

	return int64(len(data)), checksum, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrBlobNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *MemoryStore) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.blobs[key]
	return ok, nil
}

// FileStore persists blobs under a root directory, one file per key. Keys may
// contain slashes to shard by clinic and patient.
type FileStore struct {
	root     string
	maxBytes int64
}

func NewFileStore(root string, maxBytes int64) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &FileStore{root: root, maxBytes: maxBytes}, nil
}

func (s *FileStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *FileStore) Put(_ context.Context, key string, content io.Reader) (int64, string, error) {
	if !validKey(key) {
		return 0, "", ErrInvalidKey
	}
	data, checksum, err := readAll(content, s.maxBytes)
	if err != nil {
		return 0, "", err
	}

	path := s.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return 0, "", fmt.Errorf("create blob directory: %w", err)
	}

	// Write to a temp file first so readers never see partial content.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return 0, "", fmt.Errorf("write blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return 0, "", fmt.Errorf("finalize blob: %w", err)
	}

	return int64(len(data)), checksum, nil
}

func (s *FileStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if !validKey(key) {
		return nil, ErrInvalidKey
	}
	f, err := os.Open(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrBlobNotFound
		}
		return nil, fmt.Errorf("open blob: %w", err)
	}
	return f, nil
}

func (s *FileStore) Delete(_ context.Context, key string) error {
	if !validKey(key) {
		return ErrInvalidKey
	}
	err := os.Remove(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrBlobNotFound
		}
		return fmt.Errorf("delete blob: %w", err)
	}
	return nil
}

func (s *FileStore) Exists(_ context.Context, key string) (bool, error) {
	if !validKey(key) {
		return false, ErrInvalidKey
	}
	_, err := os.Stat(s.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat blob: %w", err)
	}
	return true, nil
}
