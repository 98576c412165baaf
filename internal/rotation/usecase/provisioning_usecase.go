package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	"github.com/allisson/keycore/internal/errors"
	keystoreDomain "github.com/allisson/keycore/internal/keystore/domain"
)

// provisioningUseCase implements ProvisioningUseCase.
type provisioningUseCase struct {
	settingsRepo SettingsRepository
	documentRepo DocumentRepository
	gateway      CryptoGateway
	logger       *slog.Logger
}

// NewProvisioningUseCase creates a new provisioning use case instance.
func NewProvisioningUseCase(
	settingsRepo SettingsRepository,
	documentRepo DocumentRepository,
	gateway CryptoGateway,
	logger *slog.Logger,
) ProvisioningUseCase {
	return &provisioningUseCase{
		settingsRepo: settingsRepo,
		documentRepo: documentRepo,
		gateway:      gateway,
		logger:       logger,
	}
}

// CreateSettings provisions a master key and the security settings row for a
// new principal.
func (uc *provisioningUseCase) CreateSettings(
	ctx context.Context,
	principalID uuid.UUID,
) (*keystoreDomain.SecuritySettings, error) {
	if _, err := uc.settingsRepo.Get(ctx, principalID); err == nil {
		return nil, keystoreDomain.ErrSettingsExist
	} else if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	masterKeyID, err := uc.gateway.CreateMasterKey(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "provision master key")
	}

	now := time.Now().UTC()
	settings := &keystoreDomain.SecuritySettings{
		PrincipalID:     principalID,
		MasterKeyID:     masterKeyID,
		LastKeyRotation: now,
		CreatedAt:       now,
	}
	if err := uc.settingsRepo.Create(ctx, settings); err != nil {
		return nil, err
	}

	uc.logger.Info("security settings created",
		slog.String("principal_id", principalID.String()),
	)
	return settings, nil
}

// StoreDocument encrypts a document payload under a fresh data key wrapped by
// the principal's active master key, writes the ciphertext body to the blob
// store, and persists the encryption record.
func (uc *provisioningUseCase) StoreDocument(
	ctx context.Context,
	principalID, documentID uuid.UUID,
	plaintext []byte,
	alg envelopeDomain.Algorithm,
) (*keystoreDomain.DocumentEncryption, error) {
	settings, err := uc.settingsRepo.Get(ctx, principalID)
	if err != nil {
		return nil, err
	}

	dataKey, err := uc.gateway.GenerateDataKey(ctx, settings.MasterKeyID)
	if err != nil {
		return nil, err
	}
	defer dataKey.Destroy()

	salt, err := uc.gateway.NewSalt()
	if err != nil {
		return nil, err
	}

	body, nonce, tag, err := uc.gateway.EncryptDocument(plaintext, dataKey.Plaintext, salt, alg)
	if err != nil {
		return nil, err
	}

	blobID, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "generate blob id")
	}
	if err := uc.gateway.PutBlob(ctx, blobID.String(), body); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	doc := &keystoreDomain.DocumentEncryption{
		DocumentID:   documentID,
		PrincipalID:  principalID,
		KeyID:        dataKey.ID,
		MasterKeyID:  settings.MasterKeyID,
		WrappedKey:   dataKey.Wrapped,
		Nonce:        nonce,
		AuthTag:      tag,
		Salt:         salt,
		Algorithm:    alg,
		BlobID:       blobID.String(),
		LastRotation: now,
		CreatedAt:    now,
	}
	if err := uc.documentRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// LoadDocument decrypts and returns a stored document payload.
func (uc *provisioningUseCase) LoadDocument(ctx context.Context, documentID uuid.UUID) ([]byte, error) {
	doc, err := uc.documentRepo.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}

	body, err := uc.gateway.GetBlob(ctx, doc.BlobID)
	if err != nil {
		return nil, err
	}

	key, err := uc.gateway.UnwrapDataKey(ctx, doc.WrappedKey, doc.MasterKeyID)
	if err != nil {
		return nil, err
	}
	defer zero(key)

	return uc.gateway.DecryptDocument(body, doc.Nonce, doc.AuthTag, doc.Salt, key, doc.Algorithm)
}
