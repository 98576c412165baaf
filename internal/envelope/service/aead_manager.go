package service

import (
	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
)

// AEADManagerService implements the AEADManager interface for creating AEAD cipher instances.
type AEADManagerService struct{}

// NewAEADManager creates a new AEADManagerService.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher creates an AEAD cipher instance for the specified algorithm.
// Returns ErrInvalidKeySize if key is not 32 bytes or ErrUnsupportedAlgorithm if algorithm is unknown.
func (am *AEADManagerService) CreateCipher(key []byte, alg envelopeDomain.Algorithm) (AEAD, error) {
	if len(key) != envelopeDomain.KeySize {
		return nil, envelopeDomain.ErrInvalidKeySize
	}

	switch alg {
	case envelopeDomain.AESGCM:
		return NewAESGCM(key)
	case envelopeDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, envelopeDomain.ErrUnsupportedAlgorithm
	}
}
