package service

import (
	"context"
	"crypto/rand"

	"github.com/allisson/keycore/internal/envelope/blob"
	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
	"github.com/allisson/keycore/internal/errors"
)

// GatewayService is the single entry point for envelope encryption. It hides
// the key oracle and the blob store behind one surface: callers hand it
// plaintext documents and key identifiers and get back the pieces the key
// store persists (wrapped key, nonce, tag, salt, blob ID).
//
// The gateway never persists anything itself and holds no state besides its
// dependencies, so it is safe for concurrent use.
type GatewayService struct {
	oracle      KeyOracle
	blobs       blob.Store
	aeadManager AEADManager
}

// NewGateway creates a new GatewayService.
func NewGateway(oracle KeyOracle, blobs blob.Store, aeadManager AEADManager) *GatewayService {
	return &GatewayService{
		oracle:      oracle,
		blobs:       blobs,
		aeadManager: aeadManager,
	}
}

// CreateMasterKey provisions a new master key at the oracle and returns its identifier.
func (g *GatewayService) CreateMasterKey(ctx context.Context) (string, error) {
	return g.oracle.CreateMasterKey(ctx)
}

// GenerateDataKey creates a fresh data key wrapped under the given master key.
// The caller must Destroy the returned key once the crypto operation completes.
func (g *GatewayService) GenerateDataKey(ctx context.Context, masterKeyID string) (*envelopeDomain.DataKey, error) {
	return g.oracle.GenerateDataKey(ctx, masterKeyID)
}

// UnwrapDataKey recovers the plaintext data key from its wrapped form.
func (g *GatewayService) UnwrapDataKey(ctx context.Context, wrapped []byte, masterKeyID string) ([]byte, error) {
	return g.oracle.Unwrap(ctx, wrapped, masterKeyID)
}

// RewrapDataKey moves a wrapped data key from one master key to another without
// changing the key material. The plaintext form exists only for the duration of
// the call and is zeroed before returning.
func (g *GatewayService) RewrapDataKey(ctx context.Context, wrapped []byte, oldMasterKeyID, newMasterKeyID string) ([]byte, error) {
	plaintext, err := g.oracle.Unwrap(ctx, wrapped, oldMasterKeyID)
	if err != nil {
		return nil, err
	}
	defer func() {
		for i := range plaintext {
			plaintext[i] = 0
		}
	}()

	return g.oracle.Wrap(ctx, plaintext, newMasterKeyID)
}

// DestroyMasterKey destroys a master key at the oracle.
func (g *GatewayService) DestroyMasterKey(ctx context.Context, masterKeyID string) error {
	return g.oracle.DestroyKey(ctx, masterKeyID)
}

// NewSalt generates a random per-document salt. The salt is bound to the
// ciphertext as additional authenticated data, so a blob decrypts only
// alongside its own key store record.
func (g *GatewayService) NewSalt() ([]byte, error) {
	salt := make([]byte, envelopeDomain.SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, errors.Wrap(err, "generate salt")
	}
	return salt, nil
}

// EncryptDocument encrypts a document payload with the given plaintext data
// key, binding the salt as additional authenticated data.
//
// The AEAD's sealed output is split: the ciphertext body goes to the blob
// store, the trailing authentication tag is returned separately for the key
// store record.
func (g *GatewayService) EncryptDocument(
	plaintext, key, salt []byte,
	alg envelopeDomain.Algorithm,
) (body, nonce, tag []byte, err error) {
	cipher, err := g.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, nil, nil, err
	}

	sealed, nonce, err := cipher.Encrypt(plaintext, salt)
	if err != nil {
		return nil, nil, nil, err
	}

	split := len(sealed) - envelopeDomain.TagSize
	return sealed[:split], nonce, sealed[split:], nil
}

// DecryptDocument decrypts a document payload from its stored pieces. Returns
// ErrDecryptionFailed if the tag does not verify against the body, nonce, salt,
// and key.
func (g *GatewayService) DecryptDocument(
	body, nonce, tag, salt, key []byte,
	alg envelopeDomain.Algorithm,
) ([]byte, error) {
	cipher, err := g.aeadManager.CreateCipher(key, alg)
	if err != nil {
		return nil, err
	}

	sealed := make([]byte, 0, len(body)+len(tag))
	sealed = append(sealed, body...)
	sealed = append(sealed, tag...)

	plaintext, err := cipher.Decrypt(sealed, nonce, salt)
	if err != nil {
		return nil, errors.Wrapf(envelopeDomain.ErrDecryptionFailed, "%v", err)
	}
	return plaintext, nil
}

// PutBlob writes an encrypted document body to the blob store.
func (g *GatewayService) PutBlob(ctx context.Context, blobID string, body []byte) error {
	return g.blobs.Put(ctx, blobID, body)
}

// GetBlob reads an encrypted document body from the blob store.
func (g *GatewayService) GetBlob(ctx context.Context, blobID string) ([]byte, error) {
	return g.blobs.Get(ctx, blobID)
}

// DeleteBlob removes an encrypted document body from the blob store.
func (g *GatewayService) DeleteBlob(ctx context.Context, blobID string) error {
	return g.blobs.Delete(ctx, blobID)
}
