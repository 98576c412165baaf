package usecase

import (
	"context"
	"log/slog"
	"time"

	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// reaperUseCase implements ReaperUseCase.
type reaperUseCase struct {
	config       Config
	settingsRepo SettingsRepository
	documentRepo DocumentRepository
	scheduleRepo DeletionScheduleRepository
	gateway      CryptoGateway
	logger       *slog.Logger
}

// NewReaperUseCase creates a new reaper instance.
func NewReaperUseCase(
	config Config,
	settingsRepo SettingsRepository,
	documentRepo DocumentRepository,
	scheduleRepo DeletionScheduleRepository,
	gateway CryptoGateway,
	logger *slog.Logger,
) ReaperUseCase {
	return &reaperUseCase{
		config:       config,
		settingsRepo: settingsRepo,
		documentRepo: documentRepo,
		scheduleRepo: scheduleRepo,
		gateway:      gateway,
		logger:       logger,
	}
}

// ReapOnce deletes every schedule entry whose grace period has elapsed and
// whose key is no longer referenced by any settings or document row. Entries
// that are still referenced, or whose destruction fails, stay in the schedule
// for a later pass.
func (uc *reaperUseCase) ReapOnce(ctx context.Context) (int, error) {
	entries, err := uc.scheduleRepo.ListDue(ctx, time.Now().UTC(), uc.config.ScanBatchSize)
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, entry := range entries {
		referenced, err := uc.keyReferenced(ctx, entry)
		if err != nil {
			uc.logger.Error("failed to check key references",
				slog.String("key_id", entry.KeyID),
				slog.Any("error", err),
			)
			continue
		}
		if referenced {
			uc.logger.Warn("due key still referenced, skipping",
				slog.String("key_id", entry.KeyID),
				slog.String("key_type", string(entry.KeyType)),
			)
			continue
		}

		if err := uc.destroy(ctx, entry); err != nil {
			uc.logger.Error("failed to destroy retired key",
				slog.String("key_id", entry.KeyID),
				slog.String("key_type", string(entry.KeyType)),
				slog.Any("error", err),
			)
			continue
		}

		if err := uc.scheduleRepo.Delete(ctx, entry.KeyID); err != nil {
			uc.logger.Error("failed to remove deletion schedule entry",
				slog.String("key_id", entry.KeyID),
				slog.Any("error", err),
			)
			continue
		}

		deleted++
		uc.logger.Info("retired key deleted",
			slog.String("key_id", entry.KeyID),
			slog.String("key_type", string(entry.KeyType)),
		)
	}

	return deleted, nil
}

// keyReferenced reports whether any live row still points at the key. Master
// key handles may appear both in security settings and as document wrapping
// references, so both tables are checked.
func (uc *reaperUseCase) keyReferenced(
	ctx context.Context,
	entry *keystoreDomain.KeyDeletionSchedule,
) (bool, error) {
	if entry.KeyType == keystoreDomain.MasterKey {
		referenced, err := uc.settingsRepo.MasterKeyReferenced(ctx, entry.KeyID)
		if err != nil || referenced {
			return referenced, err
		}
	}
	return uc.documentRepo.KeyReferenced(ctx, entry.KeyID)
}

// destroy tells the oracle to destroy a retired master key, or removes the
// orphaned blob of a retired document key. Document data keys exist only in
// wrapped form inside the superseded row, so dropping the blob is all that is
// left to do for them.
func (uc *reaperUseCase) destroy(ctx context.Context, entry *keystoreDomain.KeyDeletionSchedule) error {
	if entry.KeyType == keystoreDomain.MasterKey {
		return uc.gateway.DestroyMasterKey(ctx, entry.KeyID)
	}
	if entry.BlobID != "" {
		return uc.gateway.DeleteBlob(ctx, entry.BlobID)
	}
	return nil
}

// Start runs ReapOnce on a fixed interval until the context is canceled.
func (uc *reaperUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting key deletion reaper",
		slog.Duration("interval", uc.config.ReaperInterval),
	)

	ticker := time.NewTicker(uc.config.ReaperInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping key deletion reaper")
			return ctx.Err()
		case <-ticker.C:
			if _, err := uc.ReapOnce(ctx); err != nil {
				uc.logger.Error("reaper pass failed", slog.Any("error", err))
			}
		}
	}
}
