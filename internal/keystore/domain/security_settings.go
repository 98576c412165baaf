// Package domain defines the key store data model: per-principal security settings,
// per-document encryption records, and the deferred key deletion schedule.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// SecuritySettings holds the envelope encryption state for a single principal.
//
// MasterKeyID is an opaque handle into the external key-management oracle; the raw
// master key material never crosses the trust boundary. Exactly one active master
// key exists per principal at any time, and the handle always resolves to a key
// that has not been destroyed (retired keys stay usable for decryption until the
// deletion grace period elapses).
type SecuritySettings struct {
	PrincipalID     uuid.UUID
	MasterKeyID     string
	LastKeyRotation time.Time
	CreatedAt       time.Time
}

// MasterKeyDue reports whether the master key has exceeded the rotation policy threshold.
func (s *SecuritySettings) MasterKeyDue(threshold time.Duration, now time.Time) bool {
	return now.Sub(s.LastKeyRotation) > threshold
}
