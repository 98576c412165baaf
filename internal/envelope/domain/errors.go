package domain

import "github.com/allisson/keycore/internal/errors"

var (
	// ErrUnsupportedAlgorithm is returned when an algorithm identifier does not
	// match any registered AEAD implementation.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize is returned when a key does not have the required length.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed is returned when an authentication tag does not verify,
	// which indicates a wrong key, wrong salt, or tampered ciphertext.
	ErrDecryptionFailed = errors.Wrap(errors.ErrKeyService, "decryption failed")

	// ErrMasterKeyUnavailable is returned when the key oracle cannot serve a
	// wrap or unwrap request for the given master key.
	ErrMasterKeyUnavailable = errors.Wrap(errors.ErrKeyService, "master key unavailable")
)
