package service

import (
	"context"
	"crypto/rand"
	"sync"

	"github.com/google/uuid"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	"github.com/allisson/keycore/internal/errors"
)

// MemoryOracle implements KeyOracle with in-process master keys. Wrapping uses
// AES-256-GCM with the master key as the wrapping key. Intended for local
// development and tests; master keys do not survive a restart.
type MemoryOracle struct {
	mu         sync.RWMutex
	masterKeys map[string][]byte
}

// NewMemoryOracle creates an empty MemoryOracle.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{masterKeys: make(map[string][]byte)}
}

func (o *MemoryOracle) masterKey(masterKeyID string) ([]byte, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	key, ok := o.masterKeys[masterKeyID]
	if !ok {
		return nil, errors.Wrapf(envelopeDomain.ErrMasterKeyUnavailable, "unknown master key %s", masterKeyID)
	}
	return key, nil
}

// CreateMasterKey generates a new random 32-byte master key and returns its identifier.
func (o *MemoryOracle) CreateMasterKey(_ context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate master key id")
	}

	key := make([]byte, envelopeDomain.KeySize)
	if _, err := rand.Read(key); err != nil {
		return "", errors.Wrap(err, "generate master key material")
	}

	o.mu.Lock()
	o.masterKeys[id.String()] = key
	o.mu.Unlock()

	return id.String(), nil
}

// GenerateDataKey creates a fresh 32-byte data key wrapped under the given master key.
func (o *MemoryOracle) GenerateDataKey(ctx context.Context, masterKeyID string) (*envelopeDomain.DataKey, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "generate data key id")
	}

	plaintext := make([]byte, envelopeDomain.KeySize)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, errors.Wrap(err, "generate data key material")
	}

	wrapped, err := o.Wrap(ctx, plaintext, masterKeyID)
	if err != nil {
		return nil, err
	}

	return &envelopeDomain.DataKey{
		ID:          id.String(),
		MasterKeyID: masterKeyID,
		Plaintext:   plaintext,
		Wrapped:     wrapped,
	}, nil
}

// Wrap encrypts a plaintext data key under the given master key. The nonce is
// prepended to the ciphertext so the wrapped key is self-contained.
func (o *MemoryOracle) Wrap(_ context.Context, plaintext []byte, masterKeyID string) ([]byte, error) {
	masterKey, err := o.masterKey(masterKeyID)
	if err != nil {
		return nil, err
	}

	aead, err := NewAESGCM(masterKey)
	if err != nil {
		return nil, err
	}

	ciphertext, nonce, err := aead.Encrypt(plaintext, []byte(masterKeyID))
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// Unwrap decrypts a wrapped data key under the given master key.
func (o *MemoryOracle) Unwrap(_ context.Context, wrapped []byte, masterKeyID string) ([]byte, error) {
	masterKey, err := o.masterKey(masterKeyID)
	if err != nil {
		return nil, err
	}

	aead, err := NewAESGCM(masterKey)
	if err != nil {
		return nil, err
	}

	const nonceSize = 12
	if len(wrapped) < nonceSize {
		return nil, envelopeDomain.ErrDecryptionFailed
	}

	plaintext, err := aead.Decrypt(wrapped[nonceSize:], wrapped[:nonceSize], []byte(masterKeyID))
	if err != nil {
		return nil, errors.Wrapf(envelopeDomain.ErrDecryptionFailed, "unwrap under master key %s: %v", masterKeyID, err)
	}
	return plaintext, nil
}

// DestroyKey zeroes and removes the master key material.
func (o *MemoryOracle) DestroyKey(_ context.Context, masterKeyID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if key, ok := o.masterKeys[masterKeyID]; ok {
		for i := range key {
			key[i] = 0
		}
		delete(o.masterKeys, masterKeyID)
	}
	return nil
}
