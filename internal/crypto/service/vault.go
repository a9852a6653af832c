package service

import (
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
)

const sealingKeyInfo = "piimask/v1/record-sealing/"

// VaultService implements Vault on top of an AEADManager.
//
// The task key never encrypts data directly: one sealing key per Purpose is
// derived with HKDF-SHA256 using the key id as salt and the purpose in the info
// string, so a key file only opens records that name the same key id and a
// value ciphertext never opens as a region.
type VaultService struct {
	aeadManager AEADManager
	rand        io.Reader
}

// NewVault creates a VaultService.
func NewVault(aeadManager AEADManager) *VaultService {
	return &VaultService{aeadManager: aeadManager, rand: rand.Reader}
}

// GenerateKey returns a fresh random key.
func (v *VaultService) GenerateKey(alg cryptoDomain.Algorithm) (*cryptoDomain.TaskKey, error) {
	switch alg {
	case cryptoDomain.AESGCM, cryptoDomain.ChaCha20:
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key id: %w", err)
	}

	key := make([]byte, cryptoDomain.KeySize)
	if _, err := io.ReadFull(v.rand, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	return &cryptoDomain.TaskKey{ID: id, Algorithm: alg, Key: key}, nil
}

// NewSealer derives the sealing keys and builds the ciphers for key.Algorithm.
func (v *VaultService) NewSealer(key *cryptoDomain.TaskKey) (Sealer, error) {
	if key == nil || len(key.Key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	s := &aeadSealer{aeads: make(map[Purpose]AEAD, 2)}
	for _, purpose := range []Purpose{PurposeValue, PurposeRegion} {
		aead, err := v.deriveCipher(key, purpose)
		if err != nil {
			return nil, err
		}
		s.aeads[purpose] = aead
	}
	return s, nil
}

func (v *VaultService) deriveCipher(key *cryptoDomain.TaskKey, purpose Purpose) (AEAD, error) {
	derived := make([]byte, cryptoDomain.KeySize)
	defer cryptoDomain.Zero(derived)

	kdf := hkdf.New(sha256.New, key.Key, key.ID[:], []byte(sealingKeyInfo+string(purpose)))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, fmt.Errorf("failed to derive %s sealing key: %w", purpose, err)
	}
	return v.aeadManager.CreateCipher(derived, key.Algorithm)
}

type aeadSealer struct {
	aeads map[Purpose]AEAD
}

// nonceSize is shared by both supported algorithms.
const nonceSize = 12

func (s *aeadSealer) Seal(purpose Purpose, plaintext, aad []byte) ([]byte, error) {
	aead, ok := s.aeads[purpose]
	if !ok {
		return nil, fmt.Errorf("unknown sealing purpose %q", purpose)
	}
	ciphertext, nonce, err := aead.Encrypt(plaintext, aad)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

func (s *aeadSealer) Open(purpose Purpose, sealed, aad []byte) ([]byte, error) {
	aead, ok := s.aeads[purpose]
	if !ok || len(sealed) < nonceSize {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	plaintext, err := aead.Decrypt(sealed[nonceSize:], sealed[:nonceSize], aad)
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}
	return plaintext, nil
}
