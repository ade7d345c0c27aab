// Copyright (c) 2025, Lux Industries Inc
// SPDX-License-Identifier: BSD-3-Clause

// Package storage persists serialized encrypted strings and scalar
// ciphertexts for the string processing service. Blobs are content
// addressed: a handle is the hex SHA-256 digest of the blob bytes, so
// storing the same encrypted value twice deduplicates and a corrupted
// blob is caught when it is loaded.
package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Common errors.
var (
	ErrNotFound      = errors.New("blob not found")
	ErrStorageFull   = errors.New("storage capacity exceeded")
	ErrInvalidHandle = errors.New("invalid blob handle")
	ErrCorrupted     = errors.New("blob corrupted")
)

// Handle uniquely identifies a stored blob.
type Handle string

// handleLen is the length of a well-formed handle in hex characters.
const handleLen = sha256.Size * 2

// ComputeHandle derives the content handle for a blob.
func ComputeHandle(data []byte) Handle {
	sum := sha256.Sum256(data)
	return Handle(hex.EncodeToString(sum[:]))
}

// Valid reports whether h is a well-formed handle.
func (h Handle) Valid() bool {
	if len(h) != handleLen {
		return false
	}
	_, err := hex.DecodeString(string(h))
	return err == nil
}

// Storage is the blob persistence interface shared by the API server
// and the worker pool. Implementations must be safe for concurrent use.
type Storage interface {
	// Store saves a blob and returns its handle. Storing a blob that
	// already exists is a no-op returning the same handle.
	Store(ctx context.Context, data []byte) (Handle, error)
	// Load retrieves a blob by handle, verifying its digest.
	Load(ctx context.Context, handle Handle) ([]byte, error)
	// Delete removes a blob.
	Delete(ctx context.Context, handle Handle) error
	// Exists checks whether a blob is present.
	Exists(ctx context.Context, handle Handle) (bool, error)
	// Close releases any resources held by the storage.
	Close() error
}

// MemoryStorage keeps blobs in a map. It backs tests and single
// process deployments where the workers run inside the server.
type MemoryStorage struct {
	mu       sync.RWMutex
	blobs    map[Handle][]byte
	capacity int64
	used     int64
}

// NewMemoryStorage creates an in-memory storage bounded to capacityMB
// megabytes of blob data. Zero or negative means unbounded.
func NewMemoryStorage(capacityMB int64) *MemoryStorage {
	return &MemoryStorage{
		blobs:    make(map[Handle][]byte),
		capacity: capacityMB * 1024 * 1024,
	}
}

func (s *MemoryStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.blobs[handle]; ok {
		return handle, nil
	}
	if s.capacity > 0 && s.used+int64(len(data)) > s.capacity {
		return "", fmt.Errorf("%w: %d bytes used of %d", ErrStorageFull, s.used, s.capacity)
	}
	s.blobs[handle] = append([]byte(nil), data...)
	s.used += int64(len(data))
	return handle, nil
}

func (s *MemoryStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[handle]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), data...), nil
}

func (s *MemoryStorage) Delete(ctx context.Context, handle Handle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, ok := s.blobs[handle]
	if !ok {
		return ErrNotFound
	}
	s.used -= int64(len(data))
	delete(s.blobs, handle)
	return nil
}

func (s *MemoryStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.blobs[handle]
	return ok, nil
}

// Used returns the total bytes currently stored.
func (s *MemoryStorage) Used() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.used
}

func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.blobs = nil
	s.used = 0
	return nil
}

// FileStorage persists blobs under a directory, sharded by the first
// two hex characters of the handle so no single directory grows large.
type FileStorage struct {
	baseDir string
}

// NewFileStorage opens (creating if necessary) a file-backed storage
// rooted at baseDir.
func NewFileStorage(baseDir string) (*FileStorage, error) {
	if err := os.MkdirAll(baseDir, 0750); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStorage{baseDir: baseDir}, nil
}

func (s *FileStorage) path(handle Handle) string {
	h := string(handle)
	return filepath.Join(s.baseDir, h[:2], h)
}

func (s *FileStorage) Store(ctx context.Context, data []byte) (Handle, error) {
	handle := ComputeHandle(data)
	path := s.path(handle)

	if _, err := os.Stat(path); err == nil {
		return handle, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return "", fmt.Errorf("create shard dir: %w", err)
	}

	// Write to a temp file and rename so a crash never leaves a
	// partial blob under its final name.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("rename temp file: %w", err)
	}
	return handle, nil
}

func (s *FileStorage) Load(ctx context.Context, handle Handle) ([]byte, error) {
	if !handle.Valid() {
		return nil, ErrInvalidHandle
	}
	data, err := os.ReadFile(s.path(handle))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("read blob: %w", err)
	}
	if ComputeHandle(data) != handle {
		return nil, fmt.Errorf("%w: %s", ErrCorrupted, handle)
	}
	return data, nil
}

func (s *FileStorage) Delete(ctx context.Context, handle Handle) error {
	if !handle.Valid() {
		return ErrInvalidHandle
	}
	if err := os.Remove(s.path(handle)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("remove blob: %w", err)
	}
	return nil
}

func (s *FileStorage) Exists(ctx context.Context, handle Handle) (bool, error) {
	if !handle.Valid() {
		return false, nil
	}
	_, err := os.Stat(s.path(handle))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("stat blob: %w", err)
}

func (s *FileStorage) Close() error {
	return nil
}
