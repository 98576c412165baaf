package domain

// DataKey is a per-document encryption key produced by the key oracle. The
// plaintext form lives only in memory for the duration of an encrypt or decrypt
// call; only the wrapped form is ever persisted.
type DataKey struct {
	// ID is a unique identifier assigned when the key is generated.
	ID string

	// MasterKeyID identifies the master key that wraps this data key.
	MasterKeyID string

	// Plaintext is the raw 32-byte key material. Callers must Destroy the key
	// as soon as the crypto operation completes.
	Plaintext []byte

	// Wrapped is the key material encrypted under the master key. This is the
	// only form that may be written to storage.
	Wrapped []byte
}

// Destroy zeroes the plaintext key material. Safe to call multiple times.
func (k *DataKey) Destroy() {
	for i := range k.Plaintext {
		k.Plaintext[i] = 0
	}
	k.Plaintext = nil
}
