package domain

import (
	"strings"

	"github.com/allisson/piimask/internal/errors"
)

// Algorithm names the AEAD construction used to seal span values for a task.
type Algorithm string

const (
	// AESGCM is AES-256-GCM. Default; fast wherever AES-NI is available.
	AESGCM Algorithm = "aes-gcm"

	// ChaCha20 is ChaCha20-Poly1305, the constant-time software alternative.
	ChaCha20 Algorithm = "chacha20-poly1305"
)

// KeySize is the length in bytes of every task key and derived sealing key.
const KeySize = 32

// ParseAlgorithm accepts an algorithm name in any case. An empty name selects AESGCM.
func ParseAlgorithm(raw string) (Algorithm, error) {
	switch Algorithm(strings.ToLower(strings.TrimSpace(raw))) {
	case "", AESGCM:
		return AESGCM, nil
	case ChaCha20:
		return ChaCha20, nil
	default:
		return "", errors.Wrapf(ErrUnsupportedAlgorithm, "%q", raw)
	}
}
