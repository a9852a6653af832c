// Package domain defines the task key model, the key file format and the
// cryptographic error kinds shared by the vault and the engines.
package domain

import (
	"github.com/allisson/piimask/internal/errors"
)

// Cryptographic error definitions.
var (
	// ErrUnsupportedAlgorithm indicates the requested AEAD algorithm is not supported.
	ErrUnsupportedAlgorithm = errors.Wrap(errors.ErrInvalidInput, "unsupported algorithm")

	// ErrInvalidKeySize indicates key material that is not exactly KeySize bytes.
	ErrInvalidKeySize = errors.Wrap(errors.ErrInvalidInput, "invalid key size")

	// ErrDecryptionFailed covers every way opening a sealed value can fail: wrong key,
	// wrong key file for the record, tampered ciphertext or truncated data. The cause is
	// deliberately not distinguished.
	ErrDecryptionFailed = errors.Wrap(errors.ErrInvalidInput, "decryption failed")

	// ErrInvalidKeyFile indicates a key file that cannot be parsed.
	ErrInvalidKeyFile = errors.Wrap(errors.ErrInvalidInput, "invalid key file")

	// ErrKeyWrapped indicates a KMS-wrapped key file was used without a KMS keeper.
	ErrKeyWrapped = errors.Wrap(errors.ErrInvalidInput, "key file is KMS-wrapped")
)
