// Package testutil provides in-memory fakes for the key store and audit
// repositories.
//
// The fakes mirror the SQL repositories' concurrency contract: conditional
// swaps are atomic under a mutex and report whether the caller won, and
// deletion scheduling is idempotent per key id. Use case tests combine them
// with the in-memory key oracle and blob store to exercise full rotation flows
// without a database.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// FakeSettingsRepository is an in-memory SettingsRepository.
type FakeSettingsRepository struct {
	mu       sync.Mutex
	settings map[uuid.UUID]*keystoreDomain.SecuritySettings

	// FailGet forces Get to return this error when set.
	FailGet error
	// FailSwap forces CompareAndSwapMasterKey to return this error when set.
	FailSwap error
}

// NewFakeSettingsRepository creates an empty FakeSettingsRepository.
func NewFakeSettingsRepository() *FakeSettingsRepository {
	return &FakeSettingsRepository{settings: make(map[uuid.UUID]*keystoreDomain.SecuritySettings)}
}

func (f *FakeSettingsRepository) Create(_ context.Context, settings *keystoreDomain.SecuritySettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.settings[settings.PrincipalID]; ok {
		return keystoreDomain.ErrSettingsExist
	}
	copied := *settings
	f.settings[settings.PrincipalID] = &copied
	return nil
}

func (f *FakeSettingsRepository) Get(_ context.Context, principalID uuid.UUID) (*keystoreDomain.SecuritySettings, error) {
	if f.FailGet != nil {
		return nil, f.FailGet
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	settings, ok := f.settings[principalID]
	if !ok {
		return nil, keystoreDomain.ErrSettingsNotFound
	}
	copied := *settings
	return &copied, nil
}

func (f *FakeSettingsRepository) CompareAndSwapMasterKey(
	_ context.Context,
	principalID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	rotatedAt time.Time,
) (bool, error) {
	if f.FailSwap != nil {
		return false, f.FailSwap
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	settings, ok := f.settings[principalID]
	if !ok || settings.MasterKeyID != expectedMasterKeyID {
		return false, nil
	}
	settings.MasterKeyID = newMasterKeyID
	settings.LastKeyRotation = rotatedAt
	return true, nil
}

func (f *FakeSettingsRepository) ListMasterKeyDue(
	_ context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.SecuritySettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*keystoreDomain.SecuritySettings
	for _, settings := range f.settings {
		if len(results) == limit {
			break
		}
		if settings.LastKeyRotation.Before(before) {
			copied := *settings
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (f *FakeSettingsRepository) MasterKeyReferenced(_ context.Context, masterKeyID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, settings := range f.settings {
		if settings.MasterKeyID == masterKeyID {
			return true, nil
		}
	}
	return false, nil
}

// FakeDocumentRepository is an in-memory DocumentRepository.
type FakeDocumentRepository struct {
	mu   sync.Mutex
	docs map[uuid.UUID]*keystoreDomain.DocumentEncryption

	// ActiveMasterKey resolves a principal's active master key for
	// ListNeedingRewrap, mirroring the SQL join against security settings.
	ActiveMasterKey func(principalID uuid.UUID) string
}

// NewFakeDocumentRepository creates an empty FakeDocumentRepository.
func NewFakeDocumentRepository() *FakeDocumentRepository {
	return &FakeDocumentRepository{docs: make(map[uuid.UUID]*keystoreDomain.DocumentEncryption)}
}

func (f *FakeDocumentRepository) Create(_ context.Context, doc *keystoreDomain.DocumentEncryption) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.docs[doc.DocumentID]; ok {
		return errors.Wrap(errors.ErrConflict, "document already exists")
	}
	copied := *doc
	f.docs[doc.DocumentID] = &copied
	return nil
}

func (f *FakeDocumentRepository) Get(_ context.Context, documentID uuid.UUID) (*keystoreDomain.DocumentEncryption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[documentID]
	if !ok {
		return nil, keystoreDomain.ErrDocumentNotFound
	}
	copied := *doc
	return &copied, nil
}

func (f *FakeDocumentRepository) CompareAndSwapDataKey(
	_ context.Context,
	doc *keystoreDomain.DocumentEncryption,
	expectedKeyID string,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.docs[doc.DocumentID]
	if !ok || stored.KeyID != expectedKeyID {
		return false, nil
	}
	copied := *doc
	f.docs[doc.DocumentID] = &copied
	return true, nil
}

func (f *FakeDocumentRepository) SwapWrapping(
	_ context.Context,
	documentID uuid.UUID,
	expectedMasterKeyID, newMasterKeyID string,
	wrappedKey []byte,
) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.docs[documentID]
	if !ok || stored.MasterKeyID != expectedMasterKeyID {
		return false, nil
	}
	stored.MasterKeyID = newMasterKeyID
	stored.WrappedKey = append([]byte(nil), wrappedKey...)
	return true, nil
}

func (f *FakeDocumentRepository) ListByPrincipal(
	_ context.Context,
	principalID uuid.UUID,
) ([]*keystoreDomain.DocumentEncryption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*keystoreDomain.DocumentEncryption
	for _, doc := range f.docs {
		if doc.PrincipalID == principalID {
			copied := *doc
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (f *FakeDocumentRepository) ListDataKeyDue(
	_ context.Context,
	before time.Time,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*keystoreDomain.DocumentEncryption
	for _, doc := range f.docs {
		if len(results) == limit {
			break
		}
		if doc.LastRotation.Before(before) {
			copied := *doc
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (f *FakeDocumentRepository) ListNeedingRewrap(
	_ context.Context,
	limit int,
) ([]*keystoreDomain.DocumentEncryption, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.ActiveMasterKey == nil {
		return nil, nil
	}
	var results []*keystoreDomain.DocumentEncryption
	for _, doc := range f.docs {
		if len(results) == limit {
			break
		}
		if active := f.ActiveMasterKey(doc.PrincipalID); active != "" && doc.MasterKeyID != active {
			copied := *doc
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (f *FakeDocumentRepository) KeyReferenced(_ context.Context, keyID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, doc := range f.docs {
		if doc.KeyID == keyID || doc.MasterKeyID == keyID {
			return true, nil
		}
	}
	return false, nil
}

// FakeDeletionScheduleRepository is an in-memory DeletionScheduleRepository.
type FakeDeletionScheduleRepository struct {
	mu      sync.Mutex
	entries map[string]*keystoreDomain.KeyDeletionSchedule
}

// NewFakeDeletionScheduleRepository creates an empty FakeDeletionScheduleRepository.
func NewFakeDeletionScheduleRepository() *FakeDeletionScheduleRepository {
	return &FakeDeletionScheduleRepository{entries: make(map[string]*keystoreDomain.KeyDeletionSchedule)}
}

func (f *FakeDeletionScheduleRepository) Schedule(_ context.Context, entry *keystoreDomain.KeyDeletionSchedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[entry.KeyID]; ok {
		return nil
	}
	copied := *entry
	f.entries[entry.KeyID] = &copied
	return nil
}

func (f *FakeDeletionScheduleRepository) ListDue(
	_ context.Context,
	now time.Time,
	limit int,
) ([]*keystoreDomain.KeyDeletionSchedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var results []*keystoreDomain.KeyDeletionSchedule
	for _, entry := range f.entries {
		if len(results) == limit {
			break
		}
		if !entry.ScheduledDeletion.After(now) {
			copied := *entry
			results = append(results, &copied)
		}
	}
	return results, nil
}

func (f *FakeDeletionScheduleRepository) Delete(_ context.Context, keyID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, keyID)
	return nil
}

// Entries returns a snapshot of all schedule entries.
func (f *FakeDeletionScheduleRepository) Entries() []*keystoreDomain.KeyDeletionSchedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	results := make([]*keystoreDomain.KeyDeletionSchedule, 0, len(f.entries))
	for _, entry := range f.entries {
		copied := *entry
		results = append(results, &copied)
	}
	return results
}

// Entry returns the schedule entry for a key, or nil.
func (f *FakeDeletionScheduleRepository) Entry(keyID string) *keystoreDomain.KeyDeletionSchedule {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.entries[keyID]
	if !ok {
		return nil
	}
	copied := *entry
	return &copied
}

// RecordingSecurityLogger counts rotation log calls for assertions.
type RecordingSecurityLogger struct {
	mu                 sync.Mutex
	MasterKeyRotations int
	DataKeyRotations   int
	RewrapFailures     int
}

func (r *RecordingSecurityLogger) LogMasterKeyRotation(
	_ context.Context,
	_ uuid.UUID,
	_, _ string,
	_, _ int,
) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.MasterKeyRotations++
}

func (r *RecordingSecurityLogger) LogDataKeyRotation(_ context.Context, _, _ uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.DataKeyRotations++
}

func (r *RecordingSecurityLogger) LogRewrapFailure(_ context.Context, _, _ uuid.UUID, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.RewrapFailures++
}

// Counts returns the recorded totals.
func (r *RecordingSecurityLogger) Counts() (masterRotations, dataRotations, rewrapFailures int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.MasterKeyRotations, r.DataKeyRotations, r.RewrapFailures
}
