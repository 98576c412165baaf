// Package usecase implements the key rotation engine: master key rotation with
// compare-and-swap conflict resolution, document data key rotation, rotation
// need scanning, and the deferred-deletion reaper.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// SettingsRepository defines security settings persistence operations used by
// the rotation engine.
type SettingsRepository interface {
	Create(ctx context.Context, settings *keystoreDomain.SecuritySettings) error
	Get(ctx context.Context, principalID uuid.UUID) (*keystoreDomain.SecuritySettings, error)

	// CompareAndSwapMasterKey replaces the master key handle only if the stored
	// handle still matches expectedMasterKeyID. Returns false without error when
	// another rotation already won the race.
	CompareAndSwapMasterKey(
		ctx context.Context,
		principalID uuid.UUID,
		expectedMasterKeyID, newMasterKeyID string,
		rotatedAt time.Time,
	) (bool, error)

	// ListMasterKeyDue returns principals whose last rotation predates the
	// cutoff, oldest first.
	ListMasterKeyDue(ctx context.Context, before time.Time, limit int) ([]*keystoreDomain.SecuritySettings, error)

	// MasterKeyReferenced reports whether any principal still uses the handle.
	MasterKeyReferenced(ctx context.Context, masterKeyID string) (bool, error)
}

// DocumentRepository defines document encryption persistence operations used by
// the rotation engine.
type DocumentRepository interface {
	Create(ctx context.Context, doc *keystoreDomain.DocumentEncryption) error
	Get(ctx context.Context, documentID uuid.UUID) (*keystoreDomain.DocumentEncryption, error)

	// CompareAndSwapDataKey atomically replaces a document's data key, blob
	// pointer, and cipher parameters if the stored key_id still matches.
	CompareAndSwapDataKey(ctx context.Context, doc *keystoreDomain.DocumentEncryption, expectedKeyID string) (bool, error)

	// SwapWrapping replaces only the wrapped form of the data key if the record
	// is still wrapped under expectedMasterKeyID.
	SwapWrapping(
		ctx context.Context,
		documentID uuid.UUID,
		expectedMasterKeyID, newMasterKeyID string,
		wrappedKey []byte,
	) (bool, error)

	ListByPrincipal(ctx context.Context, principalID uuid.UUID) ([]*keystoreDomain.DocumentEncryption, error)
	ListDataKeyDue(ctx context.Context, before time.Time, limit int) ([]*keystoreDomain.DocumentEncryption, error)
	ListNeedingRewrap(ctx context.Context, limit int) ([]*keystoreDomain.DocumentEncryption, error)

	// KeyReferenced reports whether the handle is still a data key or wrapping
	// master key of any document.
	KeyReferenced(ctx context.Context, keyID string) (bool, error)
}

// DeletionScheduleRepository defines the deferred key deletion schedule.
type DeletionScheduleRepository interface {
	// Schedule inserts a deletion entry; scheduling the same key twice keeps
	// the original entry.
	Schedule(ctx context.Context, entry *keystoreDomain.KeyDeletionSchedule) error
	ListDue(ctx context.Context, now time.Time, limit int) ([]*keystoreDomain.KeyDeletionSchedule, error)
	Delete(ctx context.Context, keyID string) error
}

// CryptoGateway defines the envelope crypto operations the rotation engine
// needs: key oracle access, document AEAD, and the blob store.
type CryptoGateway interface {
	CreateMasterKey(ctx context.Context) (string, error)
	GenerateDataKey(ctx context.Context, masterKeyID string) (*envelopeDomain.DataKey, error)
	UnwrapDataKey(ctx context.Context, wrapped []byte, masterKeyID string) ([]byte, error)
	RewrapDataKey(ctx context.Context, wrapped []byte, oldMasterKeyID, newMasterKeyID string) ([]byte, error)
	DestroyMasterKey(ctx context.Context, masterKeyID string) error

	NewSalt() ([]byte, error)
	EncryptDocument(plaintext, key, salt []byte, alg envelopeDomain.Algorithm) (body, nonce, tag []byte, err error)
	DecryptDocument(body, nonce, tag, salt, key []byte, alg envelopeDomain.Algorithm) ([]byte, error)

	PutBlob(ctx context.Context, blobID string, body []byte) error
	GetBlob(ctx context.Context, blobID string) ([]byte, error)
	DeleteBlob(ctx context.Context, blobID string) error
}

// SecurityLogger records rotation outcomes in the security audit log. Implemented
// by the audit use case; implementations must never fail the caller.
type SecurityLogger interface {
	// LogMasterKeyRotation records one key_rotation entry for a completed
	// master key rotation.
	LogMasterKeyRotation(ctx context.Context, principalID uuid.UUID, oldMasterKeyID, newMasterKeyID string, rewrapped, failed int)

	// LogDataKeyRotation records one key_rotation entry for a completed
	// document data key rotation.
	LogDataKeyRotation(ctx context.Context, principalID, documentID uuid.UUID)

	// LogRewrapFailure records a medium-severity key_rotation entry for a
	// document whose rewrap failed and is left for the next pass.
	LogRewrapFailure(ctx context.Context, principalID, documentID uuid.UUID, reason string)
}

// RotationNeeds reports what the policy scan found due for rotation.
type RotationNeeds struct {
	MasterKeysDue []*keystoreDomain.SecuritySettings
	DataKeysDue   []*keystoreDomain.DocumentEncryption
	NeedingRewrap []*keystoreDomain.DocumentEncryption
}

// RotationReport summarizes a RotateDue pass.
type RotationReport struct {
	MasterKeysRotated  int
	DataKeysRotated    int
	DocumentsRewrapped int
	Failures           int
}

// RotationUseCase defines the rotation engine operations.
//
// All operations are safe to run concurrently from multiple processes: every
// state transition goes through a compare-and-swap, and a caller that loses a
// swap treats the rotation as already done.
type RotationUseCase interface {
	// RotateMasterKey rotates a principal's master key: provision a new key at
	// the oracle, swap the handle, rewrap every document data key, schedule the
	// old key for deferred deletion. A failure before the swap leaves no state
	// change; after the swap the rotation is forward-only and per-document
	// rewrap failures are left for the next pass.
	RotateMasterKey(ctx context.Context, principalID uuid.UUID) error

	// RotateDocumentKey rotates a document's data key: generate a new key,
	// re-encrypt the payload under a fresh blob id, repoint the record, and
	// schedule the old key and blob for deferred deletion.
	RotateDocumentKey(ctx context.Context, documentID uuid.UUID) error

	// RewrapDocument moves a document's wrapped data key under its principal's
	// active master key. No-op if the wrapping is already current.
	RewrapDocument(ctx context.Context, documentID uuid.UUID) error

	// CheckRotationNeeds scans for master keys and data keys past their policy
	// age and for documents left behind by a failed rewrap pass.
	CheckRotationNeeds(ctx context.Context) (*RotationNeeds, error)

	// RotateDue runs CheckRotationNeeds and executes every found rotation with
	// a bounded worker pool.
	RotateDue(ctx context.Context) (*RotationReport, error)
}

// ProvisioningUseCase defines principal and document onboarding into the
// envelope encryption scheme.
type ProvisioningUseCase interface {
	// CreateSettings provisions a master key and the security settings row for
	// a new principal. Returns ErrSettingsExist if the principal already has one.
	CreateSettings(ctx context.Context, principalID uuid.UUID) (*keystoreDomain.SecuritySettings, error)

	// StoreDocument encrypts a document payload under a fresh data key and
	// persists the blob and the encryption record.
	StoreDocument(
		ctx context.Context,
		principalID, documentID uuid.UUID,
		plaintext []byte,
		alg envelopeDomain.Algorithm,
	) (*keystoreDomain.DocumentEncryption, error)

	// LoadDocument decrypts and returns a stored document payload.
	LoadDocument(ctx context.Context, documentID uuid.UUID) ([]byte, error)
}

// ReaperUseCase deletes retired keys whose grace period has elapsed.
type ReaperUseCase interface {
	// ReapOnce deletes every due, unreferenced key and returns how many were
	// removed. A still-referenced key is skipped and retried on a later pass.
	ReapOnce(ctx context.Context) (int, error)

	// Start runs ReapOnce on a fixed interval until the context is canceled.
	Start(ctx context.Context) error
}
