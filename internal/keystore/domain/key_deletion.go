package domain

import "time"

// KeyType distinguishes the kind of key a deletion schedule entry retires.
type KeyType string

const (
	// MasterKey is a per-principal master key handle held by the oracle.
	MasterKey KeyType = "master_key"

	// DocumentKey is a per-document data key (and its superseded blob).
	DocumentKey KeyType = "document_key"
)

// KeyDeletionSchedule defers the physical destruction of a retired key.
//
// An entry exists for every retired key and only for retired keys; inserts are
// idempotent on KeyID. The key is never destroyed before ScheduledDeletion, and
// during the grace period it remains usable as a decrypt-only fallback. For
// document keys, BlobID names the superseded ciphertext to remove alongside the key.
type KeyDeletionSchedule struct {
	KeyID             string
	KeyType           KeyType
	BlobID            string
	ScheduledDeletion time.Time
	CreatedAt         time.Time
}

// Due reports whether the grace period has elapsed and the key may be reaped.
func (k *KeyDeletionSchedule) Due(now time.Time) bool {
	return !now.Before(k.ScheduledDeletion)
}
