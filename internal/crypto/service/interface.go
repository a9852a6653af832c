// Package service implements the crypto vault: task key generation, AEAD sealing of
// span values and image regions, and optional KMS wrapping of exported key files.
package service

import (
	"context"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
)

// AEAD is an authenticated cipher with caller-managed nonces.
type AEAD interface {
	// Encrypt encrypts plaintext bound to aad and returns the ciphertext and the fresh nonce.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt opens ciphertext produced by Encrypt with the same nonce and aad.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager creates AEAD ciphers by algorithm.
type AEADManager interface {
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// Purpose selects which subkey of a task key seals a value.
type Purpose string

const (
	// PurposeValue seals the original text of a span.
	PurposeValue Purpose = "value"
	// PurposeRegion seals the original pixels under an image span.
	PurposeRegion Purpose = "region"
)

// Sealer seals and opens values under one task key. Each purpose has its own
// derived subkey. Output of Seal is self-contained (nonce followed by ciphertext)
// so it can be stored as a single field.
type Sealer interface {
	Seal(purpose Purpose, plaintext, aad []byte) ([]byte, error)
	Open(purpose Purpose, sealed, aad []byte) ([]byte, error)
}

// Vault issues task keys and sealers.
type Vault interface {
	// GenerateKey returns a fresh random key with a new id.
	GenerateKey(alg cryptoDomain.Algorithm) (*cryptoDomain.TaskKey, error)

	// NewSealer derives the per-purpose sealing keys for key and returns a Sealer bound to them.
	NewSealer(key *cryptoDomain.TaskKey) (Sealer, error)
}

// KeyWrapper protects exported key files with a KMS keeper.
type KeyWrapper interface {
	Wrap(ctx context.Context, file cryptoDomain.KeyFile) (cryptoDomain.KeyFile, error)
	Unwrap(ctx context.Context, file cryptoDomain.KeyFile) (cryptoDomain.KeyFile, error)
}

// KMSService opens KMS keepers from gocloud.dev URIs.
type KMSService interface {
	OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error)
}
