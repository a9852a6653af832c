package service

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
)

func randomKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestAEADManagerService_CreateCipher(t *testing.T) {
	manager := NewAEADManager()
	key := randomKey(t)

	t.Run("Success_AESGCM", func(t *testing.T) {
		c, err := manager.CreateCipher(key, cryptoDomain.AESGCM)
		require.NoError(t, err)
		assert.IsType(t, &AESGCMCipher{}, c)
	})

	t.Run("Success_ChaCha20", func(t *testing.T) {
		c, err := manager.CreateCipher(key, cryptoDomain.ChaCha20)
		require.NoError(t, err)
		assert.IsType(t, &ChaCha20Poly1305Cipher{}, c)
	})

	t.Run("Error_UnsupportedAlgorithm", func(t *testing.T) {
		_, err := manager.CreateCipher(key, cryptoDomain.Algorithm("des"))
		assert.ErrorIs(t, err, cryptoDomain.ErrUnsupportedAlgorithm)
	})

	t.Run("Error_ShortKey", func(t *testing.T) {
		_, err := manager.CreateCipher(key[:16], cryptoDomain.AESGCM)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
	})
}

func TestAEAD_Ciphers(t *testing.T) {
	manager := NewAEADManager()

	for _, alg := range []cryptoDomain.Algorithm{cryptoDomain.AESGCM, cryptoDomain.ChaCha20} {
		t.Run(string(alg), func(t *testing.T) {
			key := randomKey(t)
			c, err := manager.CreateCipher(key, alg)
			require.NoError(t, err)

			plaintext := []byte("012-3456789")
			aad := []byte("task|span-1")

			ciphertext, nonce, err := c.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.Len(t, nonce, 12)
			assert.NotContains(t, string(ciphertext), string(plaintext))

			got, err := c.Decrypt(ciphertext, nonce, aad)
			require.NoError(t, err)
			assert.Equal(t, plaintext, got)

			_, err = c.Decrypt(ciphertext, nonce, []byte("task|span-2"))
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)

			tampered := append([]byte(nil), ciphertext...)
			tampered[0] ^= 0xff
			_, err = c.Decrypt(tampered, nonce, aad)
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)

			_, err = c.Decrypt(ciphertext, nonce[:4], aad)
			assert.ErrorIs(t, err, cryptoDomain.ErrDecryptionFailed)

			_, nonce2, err := c.Encrypt(plaintext, aad)
			require.NoError(t, err)
			assert.NotEqual(t, nonce, nonce2)
		})
	}
}
