// Package blob provides the encrypted-document blob store. Blobs hold
// ciphertext bodies only; nonces, tags, and wrapped keys live in the relational
// key store.
package blob

import (
	"context"
	"sync"

	"github.com/allisson/keycore/internal/errors"
)

// Store defines the interface for storing encrypted document bodies keyed by
// blob ID.
type Store interface {
	// Put writes the blob, overwriting any existing blob with the same ID.
	Put(ctx context.Context, blobID string, data []byte) error

	// Get reads the blob. Returns ErrNotFound if the blob does not exist.
	Get(ctx context.Context, blobID string) ([]byte, error)

	// Delete removes the blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, blobID string) error
}

// MemoryStore implements Store with an in-process map. Intended for local
// development and tests.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

// Put writes the blob, overwriting any existing blob with the same ID.
func (s *MemoryStore) Put(_ context.Context, blobID string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blobs[blobID] = append([]byte(nil), data...)
	return nil
}

// Get reads the blob. Returns ErrNotFound if the blob does not exist.
func (s *MemoryStore) Get(_ context.Context, blobID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blobs[blobID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "blob %s", blobID)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the blob. Deleting a missing blob is not an error.
func (s *MemoryStore) Delete(_ context.Context, blobID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blobs, blobID)
	return nil
}
