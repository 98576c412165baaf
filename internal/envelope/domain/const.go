// Package domain defines envelope encryption types shared by the crypto gateway
// and the key store: algorithms, data keys, and crypto errors.
package domain

// Algorithm represents the authenticated encryption scheme used for data keys
// and document payloads.
//
// Both supported algorithms provide Authenticated Encryption with Associated
// Data (AEAD) with a 256-bit key, a 12-byte nonce, and a 16-byte authentication
// tag. Use AESGCM on hardware with AES-NI acceleration and ChaCha20 elsewhere.
type Algorithm string

const (
	// AESGCM represents the AES-256-GCM authenticated encryption algorithm.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 represents the ChaCha20-Poly1305 authenticated encryption algorithm.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the required key length in bytes for all supported algorithms.
const KeySize = 32

// SaltSize is the length of the random salt bound to each encrypted document
// as additional authenticated data.
const SaltSize = 16

// TagSize is the length of the authentication tag both supported AEADs append
// to the ciphertext. The tag is stored separately from the ciphertext body.
const TagSize = 16

