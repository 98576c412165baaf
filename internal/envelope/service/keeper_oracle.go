package service

import (
	"context"
	"crypto/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"gocloud.dev/secrets"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	"github.com/allisson/keycore/internal/errors"

	// Register all KMS provider drivers
	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

// KeeperOracle implements KeyOracle on top of gocloud.dev/secrets keepers.
//
// Master key identifiers map to provider key URIs through a URI template: every
// occurrence of "{key}" in the template is replaced with the master key ID.
// Supported schemes: gcpkms://, awskms://, azurekeyvault://, hashivault://,
// base64key:// (local development only).
//
// Master key material never crosses this boundary. Wrap and Unwrap delegate to
// the provider's Encrypt and Decrypt, so the plaintext data key is the only key
// material this process ever holds.
type KeeperOracle struct {
	uriTemplate string

	mu      sync.Mutex
	keepers map[string]*secrets.Keeper
}

// NewKeeperOracle creates a KeeperOracle for the given key URI template.
func NewKeeperOracle(uriTemplate string) *KeeperOracle {
	return &KeeperOracle{
		uriTemplate: uriTemplate,
		keepers:     make(map[string]*secrets.Keeper),
	}
}

// keeper returns a cached keeper for the master key, opening one on first use.
func (o *KeeperOracle) keeper(ctx context.Context, masterKeyID string) (*secrets.Keeper, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if keeper, ok := o.keepers[masterKeyID]; ok {
		return keeper, nil
	}

	keyURI := strings.ReplaceAll(o.uriTemplate, "{key}", masterKeyID)
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, errors.Wrapf(envelopeDomain.ErrMasterKeyUnavailable, "open keeper for master key %s: %v", masterKeyID, err)
	}

	o.keepers[masterKeyID] = keeper
	return keeper, nil
}

// CreateMasterKey provisions a new master key identifier and verifies the
// provider can serve it.
//
// Providers that auto-create keys on first use (hashivault, base64key) need
// nothing beyond the identifier; for providers with out-of-band provisioning
// the URI template must resolve new identifiers to pre-created keys or key
// aliases.
func (o *KeeperOracle) CreateMasterKey(ctx context.Context) (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", errors.Wrap(err, "generate master key id")
	}

	masterKeyID := id.String()
	if _, err := o.keeper(ctx, masterKeyID); err != nil {
		return "", err
	}
	return masterKeyID, nil
}

// GenerateDataKey creates a fresh 32-byte data key and wraps it under the
// given master key.
func (o *KeeperOracle) GenerateDataKey(ctx context.Context, masterKeyID string) (*envelopeDomain.DataKey, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "generate data key id")
	}

	plaintext := make([]byte, envelopeDomain.KeySize)
	if _, err := rand.Read(plaintext); err != nil {
		return nil, errors.Wrap(err, "generate data key material")
	}

	wrapped, err := o.Wrap(ctx, plaintext, masterKeyID)
	if err != nil {
		return nil, err
	}

	return &envelopeDomain.DataKey{
		ID:          id.String(),
		MasterKeyID: masterKeyID,
		Plaintext:   plaintext,
		Wrapped:     wrapped,
	}, nil
}

// Wrap encrypts a plaintext data key under the given master key.
func (o *KeeperOracle) Wrap(ctx context.Context, plaintext []byte, masterKeyID string) ([]byte, error) {
	keeper, err := o.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	wrapped, err := keeper.Encrypt(ctx, plaintext)
	if err != nil {
		return nil, errors.Wrapf(envelopeDomain.ErrMasterKeyUnavailable, "wrap under master key %s: %v", masterKeyID, err)
	}
	return wrapped, nil
}

// Unwrap decrypts a wrapped data key under the given master key.
func (o *KeeperOracle) Unwrap(ctx context.Context, wrapped []byte, masterKeyID string) ([]byte, error) {
	keeper, err := o.keeper(ctx, masterKeyID)
	if err != nil {
		return nil, err
	}

	plaintext, err := keeper.Decrypt(ctx, wrapped)
	if err != nil {
		return nil, errors.Wrapf(envelopeDomain.ErrMasterKeyUnavailable, "unwrap under master key %s: %v", masterKeyID, err)
	}
	return plaintext, nil
}

// DestroyKey closes and forgets the keeper for the master key. Destruction of
// the underlying key material is delegated to the provider's key policy; the
// reaper calls this only after the grace period elapsed and no record
// references the key.
func (o *KeeperOracle) DestroyKey(_ context.Context, masterKeyID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	keeper, ok := o.keepers[masterKeyID]
	if !ok {
		return nil
	}
	delete(o.keepers, masterKeyID)

	if err := keeper.Close(); err != nil {
		return errors.Wrapf(err, "close keeper for master key %s", masterKeyID)
	}
	return nil
}
