// Package service provides the envelope encryption gateway: AEAD ciphers
// (AES-256-GCM, ChaCha20-Poly1305), the key oracle that owns master key
// material, and document encrypt/decrypt built on both.
package service

import (
	"context"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
)

// AEAD defines the interface for Authenticated Encryption with Associated Data.
type AEAD interface {
	// Encrypt encrypts plaintext with optional AAD and returns ciphertext and nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt decrypts ciphertext using the provided nonce and AAD.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager defines the interface for creating AEAD cipher instances.
type AEADManager interface {
	// CreateCipher creates an AEAD cipher instance for the specified algorithm.
	CreateCipher(key []byte, alg envelopeDomain.Algorithm) (AEAD, error)
}

// KeyOracle defines the interface to the external key-management service that
// owns master key material. Master keys never leave the oracle; callers hold
// only opaque key identifiers and move data keys through Wrap and Unwrap.
type KeyOracle interface {
	// CreateMasterKey provisions a new master key and returns its identifier.
	CreateMasterKey(ctx context.Context) (string, error)

	// GenerateDataKey creates a fresh 32-byte data key and returns it in both
	// plaintext and wrapped form. The caller must Destroy the plaintext once
	// the crypto operation completes.
	GenerateDataKey(ctx context.Context, masterKeyID string) (*envelopeDomain.DataKey, error)

	// Wrap encrypts a plaintext data key under the given master key.
	Wrap(ctx context.Context, plaintext []byte, masterKeyID string) ([]byte, error)

	// Unwrap decrypts a wrapped data key under the given master key.
	Unwrap(ctx context.Context, wrapped []byte, masterKeyID string) ([]byte, error)

	// DestroyKey destroys a master key. Called by the reaper only after the
	// deletion schedule's grace period has elapsed and no record references
	// the key.
	DestroyKey(ctx context.Context, masterKeyID string) error
}
