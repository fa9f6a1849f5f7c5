// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

package blob

import (
	"context"
	"sync"

	"github.com/oklog/ulid/v2"
)

// MemoryStore keeps uploads in process memory. Suitable for tests and
// single-node development, not for production.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Store saves the bytes under a fresh ULID-based reference.
func (s *MemoryStore) Store(_ context.Context, data []byte, mimeType string) (string, error) {
	if err := CheckConstraints(len(data), mimeType); err != nil {
		return "", err
	}

	ref := "mem://" + ulid.Make().String() + Extension(mimeType)

	s.mu.Lock()
	s.blobs[ref] = append([]byte(nil), data...)
	s.mu.Unlock()
	return ref, nil
}

// Get returns the stored bytes for a reference, for tests.
func (s *MemoryStore) Get(ref string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[ref]
	return data, ok
}

// Compile-time interface check.
var _ Store = (*MemoryStore)(nil)
