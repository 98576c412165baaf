package domain

import (
	"time"

	"github.com/google/uuid"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
)

// DocumentEncryption records how a single document payload is encrypted.
//
// The document bytes are encrypted with a per-document data key; the data key is
// wrapped under the principal's master key and stored here in wrapped form only.
// KeyID identifies the wrapped data key (and its entry in the deletion schedule
// once retired), MasterKeyID names the master key the wrap was performed under,
// and BlobID points at the ciphertext in the blob store.
//
// Invariant: after a master key rotation every record belonging to the principal
// is re-wrapped so that MasterKeyID matches the active master key. The data key
// payload itself does not change during a master key rotation, only its wrapping.
type DocumentEncryption struct {
	DocumentID   uuid.UUID
	PrincipalID  uuid.UUID
	KeyID        string
	MasterKeyID  string
	WrappedKey   []byte
	Nonce        []byte
	AuthTag      []byte
	Salt         []byte
	Algorithm    envelopeDomain.Algorithm
	BlobID       string
	LastRotation time.Time
	CreatedAt    time.Time
}

// DataKeyDue reports whether the document's data key has exceeded the rotation
// policy threshold.
func (d *DocumentEncryption) DataKeyDue(threshold time.Duration, now time.Time) bool {
	return now.Sub(d.LastRotation) > threshold
}

// NeedsRewrap reports whether the wrapped data key is still wrapped under a
// master key other than the principal's active one (a rewrap that failed during
// rotation and must be retried).
func (d *DocumentEncryption) NeedsRewrap(activeMasterKeyID string) bool {
	return d.MasterKeyID != activeMasterKeyID
}
