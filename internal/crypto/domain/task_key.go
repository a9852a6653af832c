package domain

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/allisson/piimask/internal/errors"
)

// TaskKey is the per-task symmetric key. It is handed to the caller once, as a key
// file, and never stored next to the artifact or the restoration record; the record
// only carries ID.
type TaskKey struct {
	ID        uuid.UUID
	Algorithm Algorithm
	Key       []byte
}

// Close zeroes the key material.
func (k *TaskKey) Close() {
	if k != nil {
		Zero(k.Key)
	}
}

// KMSKeeper is the subset of *secrets.Keeper used to wrap key files.
type KMSKeeper interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	Close() error
}

const (
	keyFilePrefix  = "piimask-key"
	keyFileVersion = "v1"

	keyEncodingRaw = "raw"
	keyEncodingKMS = "kms"
)

// KeyFile is the serialized form of a TaskKey:
//
//	piimask-key:v1:<key-id>:<algorithm>:<raw|kms>:<base64 material>
//
// Material is the raw key, or the key encrypted by a KMS keeper when Wrapped is set.
type KeyFile struct {
	KeyID     uuid.UUID
	Algorithm Algorithm
	Wrapped   bool
	Material  []byte
}

// String renders the single-line key file content.
func (f KeyFile) String() string {
	encoding := keyEncodingRaw
	if f.Wrapped {
		encoding = keyEncodingKMS
	}
	return fmt.Sprintf(
		"%s:%s:%s:%s:%s:%s",
		keyFilePrefix,
		keyFileVersion,
		f.KeyID,
		f.Algorithm,
		encoding,
		base64.StdEncoding.EncodeToString(f.Material),
	)
}

// ParseKeyFile parses key file content. Surrounding whitespace is ignored.
func ParseKeyFile(content string) (KeyFile, error) {
	parts := strings.Split(strings.TrimSpace(content), ":")
	if len(parts) != 6 || parts[0] != keyFilePrefix {
		return KeyFile{}, errors.Wrapf(ErrInvalidKeyFile, "expected %d colon-separated fields", 6)
	}
	if parts[1] != keyFileVersion {
		return KeyFile{}, errors.Wrapf(ErrInvalidKeyFile, "unsupported version %q", parts[1])
	}

	id, err := uuid.Parse(parts[2])
	if err != nil {
		return KeyFile{}, errors.Wrapf(ErrInvalidKeyFile, "key id: %v", err)
	}

	alg, err := ParseAlgorithm(parts[3])
	if err != nil {
		return KeyFile{}, errors.Wrap(ErrInvalidKeyFile, err.Error())
	}

	var wrapped bool
	switch parts[4] {
	case keyEncodingRaw:
	case keyEncodingKMS:
		wrapped = true
	default:
		return KeyFile{}, errors.Wrapf(ErrInvalidKeyFile, "unknown key encoding %q", parts[4])
	}

	material, err := base64.StdEncoding.DecodeString(parts[5])
	if err != nil {
		return KeyFile{}, errors.Wrapf(ErrInvalidKeyFile, "key material: %v", err)
	}
	if !wrapped && len(material) != KeySize {
		Zero(material)
		return KeyFile{}, errors.Wrapf(ErrInvalidKeySize, "key must be %d bytes, got %d", KeySize, len(material))
	}

	return KeyFile{KeyID: id, Algorithm: alg, Wrapped: wrapped, Material: material}, nil
}

// NewKeyFile exports an unwrapped key file for the task key.
func NewKeyFile(key *TaskKey) KeyFile {
	return KeyFile{
		KeyID:     key.ID,
		Algorithm: key.Algorithm,
		Material:  append([]byte(nil), key.Key...),
	}
}

// TaskKey returns the key held by an unwrapped key file.
func (f KeyFile) TaskKey() (*TaskKey, error) {
	if f.Wrapped {
		return nil, ErrKeyWrapped
	}
	return &TaskKey{ID: f.KeyID, Algorithm: f.Algorithm, Key: append([]byte(nil), f.Material...)}, nil
}
