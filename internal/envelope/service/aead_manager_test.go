package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	envelopeDomain "github.com/allisson/keycore/internal/envelope/domain"
)

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	validKey := make([]byte, 32)
	_, err := rand.Read(validKey)
	require.NoError(t, err)

	t.Run("create AES-GCM cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, envelopeDomain.AESGCM)
		require.NoError(t, err)

		_, ok := cipher.(*AESGCMCipher)
		assert.True(t, ok, "cipher should be of type *AESGCMCipher")
	})

	t.Run("create ChaCha20-Poly1305 cipher", func(t *testing.T) {
		cipher, err := manager.CreateCipher(validKey, envelopeDomain.ChaCha20)
		require.NoError(t, err)

		_, ok := cipher.(*ChaCha20Poly1305Cipher)
		assert.True(t, ok, "cipher should be of type *ChaCha20Poly1305Cipher")
	})

	t.Run("create cipher with unsupported algorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(validKey, envelopeDomain.Algorithm("unsupported"))
		assert.ErrorIs(t, err, envelopeDomain.ErrUnsupportedAlgorithm)
	})

	t.Run("create cipher with invalid key size", func(t *testing.T) {
		shortKey := make([]byte, 16)
		_, err := manager.CreateCipher(shortKey, envelopeDomain.AESGCM)
		assert.ErrorIs(t, err, envelopeDomain.ErrInvalidKeySize)
	})
}

func TestAEADCiphers_EncryptDecrypt(t *testing.T) {
	manager := NewAEADManager()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	for _, alg := range []envelopeDomain.Algorithm{envelopeDomain.AESGCM, envelopeDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			plaintext := []byte("document payload")
			aad := []byte("salt-16-bytes-xx")

			ciphertext, nonce, err := cipher.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, 12)
			assert.Len(t, ciphertext, len(plaintext)+envelopeDomain.TagSize)

			decrypted, err := cipher.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, decrypted)
		})

		t.Run(string(alg)+" fails with wrong AAD", func(t *testing.T) {
			cipher, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			ciphertext, nonce, err := cipher.Encrypt([]byte("document payload"), []byte("salt-a"))
			require.NoError(t, err)

			_, err = cipher.Decrypt(ciphertext, nonce, []byte("salt-b"))
			assert.Error(t, err)
		})
	}
}
