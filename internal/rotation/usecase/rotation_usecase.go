package usecase

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// Config holds rotation engine policy.
type Config struct {
	MasterKeyMaxAge     time.Duration
	DataKeyMaxAge       time.Duration
	DeletionGracePeriod time.Duration
	ScanBatchSize       int
	Workers             int
	ReaperInterval      time.Duration
}

// rotationUseCase implements RotationUseCase.
type rotationUseCase struct {
	config       Config
	settingsRepo SettingsRepository
	documentRepo DocumentRepository
	scheduleRepo DeletionScheduleRepository
	gateway      CryptoGateway
	auditLog     SecurityLogger
	logger       *slog.Logger
}

// NewRotationUseCase creates a new rotation engine instance.
func NewRotationUseCase(
	config Config,
	settingsRepo SettingsRepository,
	documentRepo DocumentRepository,
	scheduleRepo DeletionScheduleRepository,
	gateway CryptoGateway,
	auditLog SecurityLogger,
	logger *slog.Logger,
) RotationUseCase {
	return &rotationUseCase{
		config:       config,
		settingsRepo: settingsRepo,
		documentRepo: documentRepo,
		scheduleRepo: scheduleRepo,
		gateway:      gateway,
		auditLog:     auditLog,
		logger:       logger,
	}
}

// scheduleDeletion records a retired key in the deferred deletion schedule.
// Scheduling happens after an irreversible swap, so a failure here is logged
// and left for operators rather than failing the completed rotation.
func (uc *rotationUseCase) scheduleDeletion(
	ctx context.Context,
	keyID string,
	keyType keystoreDomain.KeyType,
	blobID string,
) {
	now := time.Now().UTC()
	entry := &keystoreDomain.KeyDeletionSchedule{
		KeyID:             keyID,
		KeyType:           keyType,
		BlobID:            blobID,
		ScheduledDeletion: now.Add(uc.config.DeletionGracePeriod),
		CreatedAt:         now,
	}
	if err := uc.scheduleRepo.Schedule(ctx, entry); err != nil {
		uc.logger.Error("failed to schedule key deletion",
			slog.String("key_id", keyID),
			slog.String("key_type", string(keyType)),
			slog.Any("error", err),
		)
	}
}

// RotateMasterKey rotates a principal's master key.
//
// The swap is the commit point. Everything before it (reading settings,
// provisioning the new oracle key) leaves no persistent state on failure;
// everything after it is forward-only. A caller that loses the swap retires
// its unused key and reports success, so N concurrent rotations produce
// exactly one new master key and one log entry.
func (uc *rotationUseCase) RotateMasterKey(ctx context.Context, principalID uuid.UUID) error {
	settings, err := uc.settingsRepo.Get(ctx, principalID)
	if err != nil {
		return err
	}
	oldMasterKeyID := settings.MasterKeyID

	newMasterKeyID, err := uc.gateway.CreateMasterKey(ctx)
	if err != nil {
		return errors.Wrap(err, "provision new master key")
	}

	swapped, err := uc.settingsRepo.CompareAndSwapMasterKey(
		ctx, principalID, oldMasterKeyID, newMasterKeyID, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if !swapped {
		// Another rotation won; retire the key we provisioned and report success.
		uc.logger.Info("master key rotation superseded by concurrent rotation",
			slog.String("principal_id", principalID.String()),
		)
		uc.scheduleDeletion(ctx, newMasterKeyID, keystoreDomain.MasterKey, "")
		return nil
	}

	rewrapped, failed := uc.rewrapPrincipalDocuments(ctx, principalID, oldMasterKeyID, newMasterKeyID)

	uc.scheduleDeletion(ctx, oldMasterKeyID, keystoreDomain.MasterKey, "")
	uc.auditLog.LogMasterKeyRotation(ctx, principalID, oldMasterKeyID, newMasterKeyID, rewrapped, failed)

	uc.logger.Info("master key rotated",
		slog.String("principal_id", principalID.String()),
		slog.Int("documents_rewrapped", rewrapped),
		slog.Int("rewrap_failures", failed),
	)
	return nil
}

// rewrapPrincipalDocuments moves every document data key of the principal from
// the old master key to the new one. Each document is all-or-nothing; failures
// are logged and left for the next CheckRotationNeeds pass.
func (uc *rotationUseCase) rewrapPrincipalDocuments(
	ctx context.Context,
	principalID uuid.UUID,
	oldMasterKeyID, newMasterKeyID string,
) (rewrapped, failed int) {
	docs, err := uc.documentRepo.ListByPrincipal(ctx, principalID)
	if err != nil {
		uc.logger.Error("failed to list documents for rewrap",
			slog.String("principal_id", principalID.String()),
			slog.Any("error", err),
		)
		return 0, 0
	}

	var done, lost atomic.Int64
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.config.Workers)

	for _, doc := range docs {
		if doc.MasterKeyID != oldMasterKeyID {
			continue
		}
		group.Go(func() error {
			if err := uc.rewrapOne(groupCtx, doc.DocumentID, doc.WrappedKey, oldMasterKeyID, newMasterKeyID); err != nil {
				lost.Add(1)
				uc.auditLog.LogRewrapFailure(groupCtx, principalID, doc.DocumentID, err.Error())
				uc.logger.Error("failed to rewrap document data key",
					slog.String("document_id", doc.DocumentID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			done.Add(1)
			return nil
		})
	}
	_ = group.Wait()

	return int(done.Load()), int(lost.Load())
}

func (uc *rotationUseCase) rewrapOne(
	ctx context.Context,
	documentID uuid.UUID,
	wrappedKey []byte,
	oldMasterKeyID, newMasterKeyID string,
) error {
	rewrapped, err := uc.gateway.RewrapDataKey(ctx, wrappedKey, oldMasterKeyID, newMasterKeyID)
	if err != nil {
		return err
	}

	// A lost swap means a concurrent rewrap or data key rotation already moved
	// the record; nothing left to do.
	_, err = uc.documentRepo.SwapWrapping(ctx, documentID, oldMasterKeyID, newMasterKeyID, rewrapped)
	return err
}

// RotateDocumentKey rotates a document's data key.
//
// The new ciphertext is written under a fresh blob id before the record
// repoints, so readers racing the rotation always find a consistent
// record/blob pair. The conditional update on the stored key id is the commit
// point; a loser deletes its orphaned blob and reports success.
func (uc *rotationUseCase) RotateDocumentKey(ctx context.Context, documentID uuid.UUID) error {
	doc, err := uc.documentRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}

	settings, err := uc.settingsRepo.Get(ctx, doc.PrincipalID)
	if err != nil {
		return err
	}

	body, err := uc.gateway.GetBlob(ctx, doc.BlobID)
	if err != nil {
		return err
	}

	oldKey, err := uc.gateway.UnwrapDataKey(ctx, doc.WrappedKey, doc.MasterKeyID)
	if err != nil {
		return err
	}
	defer zero(oldKey)

	plaintext, err := uc.gateway.DecryptDocument(body, doc.Nonce, doc.AuthTag, doc.Salt, oldKey, doc.Algorithm)
	if err != nil {
		return err
	}
	defer zero(plaintext)

	dataKey, err := uc.gateway.GenerateDataKey(ctx, settings.MasterKeyID)
	if err != nil {
		return err
	}
	defer dataKey.Destroy()

	salt, err := uc.gateway.NewSalt()
	if err != nil {
		return err
	}

	newBody, nonce, tag, err := uc.gateway.EncryptDocument(plaintext, dataKey.Plaintext, salt, doc.Algorithm)
	if err != nil {
		return err
	}

	newBlobID, err := uuid.NewV7()
	if err != nil {
		return errors.Wrap(err, "generate blob id")
	}
	if err := uc.gateway.PutBlob(ctx, newBlobID.String(), newBody); err != nil {
		return err
	}

	now := time.Now().UTC()
	updated := &keystoreDomain.DocumentEncryption{
		DocumentID:   doc.DocumentID,
		PrincipalID:  doc.PrincipalID,
		KeyID:        dataKey.ID,
		MasterKeyID:  settings.MasterKeyID,
		WrappedKey:   dataKey.Wrapped,
		Nonce:        nonce,
		AuthTag:      tag,
		Salt:         salt,
		Algorithm:    doc.Algorithm,
		BlobID:       newBlobID.String(),
		LastRotation: now,
		CreatedAt:    doc.CreatedAt,
	}

	swapped, err := uc.documentRepo.CompareAndSwapDataKey(ctx, updated, doc.KeyID)
	if err != nil {
		return err
	}
	if !swapped {
		// Another rotation won; drop the orphaned blob and report success.
		uc.logger.Info("data key rotation superseded by concurrent rotation",
			slog.String("document_id", documentID.String()),
		)
		if err := uc.gateway.DeleteBlob(ctx, newBlobID.String()); err != nil {
			uc.logger.Error("failed to delete orphaned blob",
				slog.String("blob_id", newBlobID.String()),
				slog.Any("error", err),
			)
		}
		return nil
	}

	uc.scheduleDeletion(ctx, doc.KeyID, keystoreDomain.DocumentKey, doc.BlobID)
	uc.auditLog.LogDataKeyRotation(ctx, doc.PrincipalID, doc.DocumentID)

	return nil
}

// RewrapDocument moves a document's wrapped data key under its principal's
// active master key. Used to catch up documents a failed rotation pass left
// behind.
func (uc *rotationUseCase) RewrapDocument(ctx context.Context, documentID uuid.UUID) error {
	doc, err := uc.documentRepo.Get(ctx, documentID)
	if err != nil {
		return err
	}

	settings, err := uc.settingsRepo.Get(ctx, doc.PrincipalID)
	if err != nil {
		return err
	}

	if !doc.NeedsRewrap(settings.MasterKeyID) {
		return nil
	}

	return uc.rewrapOne(ctx, doc.DocumentID, doc.WrappedKey, doc.MasterKeyID, settings.MasterKeyID)
}

// CheckRotationNeeds scans for rotation work. The three scans run concurrently
// and the result is a snapshot: acting on it is safe even when other processes
// rotate in parallel, because every rotation is compare-and-swap guarded.
func (uc *rotationUseCase) CheckRotationNeeds(ctx context.Context) (*RotationNeeds, error) {
	now := time.Now().UTC()
	needs := &RotationNeeds{}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		due, err := uc.settingsRepo.ListMasterKeyDue(groupCtx, now.Add(-uc.config.MasterKeyMaxAge), uc.config.ScanBatchSize)
		if err != nil {
			return err
		}
		needs.MasterKeysDue = due
		return nil
	})
	group.Go(func() error {
		due, err := uc.documentRepo.ListDataKeyDue(groupCtx, now.Add(-uc.config.DataKeyMaxAge), uc.config.ScanBatchSize)
		if err != nil {
			return err
		}
		needs.DataKeysDue = due
		return nil
	})
	group.Go(func() error {
		stale, err := uc.documentRepo.ListNeedingRewrap(groupCtx, uc.config.ScanBatchSize)
		if err != nil {
			return err
		}
		needs.NeedingRewrap = stale
		return nil
	})

	if err := group.Wait(); err != nil {
		return nil, err
	}
	return needs, nil
}

// RotateDue runs every rotation found by CheckRotationNeeds with a bounded
// worker pool. Individual failures are counted, not fatal.
func (uc *rotationUseCase) RotateDue(ctx context.Context) (*RotationReport, error) {
	needs, err := uc.CheckRotationNeeds(ctx)
	if err != nil {
		return nil, err
	}

	var masters, dataKeys, rewraps, failures atomic.Int64

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.config.Workers)

	for _, settings := range needs.MasterKeysDue {
		group.Go(func() error {
			if err := uc.RotateMasterKey(groupCtx, settings.PrincipalID); err != nil {
				failures.Add(1)
				uc.logger.Error("scheduled master key rotation failed",
					slog.String("principal_id", settings.PrincipalID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			masters.Add(1)
			return nil
		})
	}
	for _, doc := range needs.DataKeysDue {
		group.Go(func() error {
			if err := uc.RotateDocumentKey(groupCtx, doc.DocumentID); err != nil {
				failures.Add(1)
				uc.logger.Error("scheduled data key rotation failed",
					slog.String("document_id", doc.DocumentID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			dataKeys.Add(1)
			return nil
		})
	}
	for _, doc := range needs.NeedingRewrap {
		group.Go(func() error {
			if err := uc.RewrapDocument(groupCtx, doc.DocumentID); err != nil {
				failures.Add(1)
				uc.logger.Error("rewrap catch-up failed",
					slog.String("document_id", doc.DocumentID.String()),
					slog.Any("error", err),
				)
				return nil
			}
			rewraps.Add(1)
			return nil
		})
	}
	_ = group.Wait()

	return &RotationReport{
		MasterKeysRotated:  int(masters.Load()),
		DataKeysRotated:    int(dataKeys.Load()),
		DocumentsRewrapped: int(rewraps.Load()),
		Failures:           int(failures.Load()),
	}, nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
