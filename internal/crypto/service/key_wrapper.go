package service

import (
	"context"
	"fmt"

	"gocloud.dev/secrets"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"

	_ "gocloud.dev/secrets/awskms"
	_ "gocloud.dev/secrets/azurekeyvault"
	_ "gocloud.dev/secrets/gcpkms"
	_ "gocloud.dev/secrets/hashivault"
	_ "gocloud.dev/secrets/localsecrets"
)

type kmsService struct{}

// NewKMSService creates a KMSService backed by gocloud.dev/secrets. Supported schemes:
// awskms://, azurekeyvault://, gcpkms://, hashivault:// and base64key:// (local, for tests
// and development).
func NewKMSService() KMSService {
	return &kmsService{}
}

func (k *kmsService) OpenKeeper(ctx context.Context, keyURI string) (cryptoDomain.KMSKeeper, error) {
	keeper, err := secrets.OpenKeeper(ctx, keyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	return keeper, nil
}

// KeeperKeyWrapper wraps key files with a KMS keeper. The key id and algorithm stay in
// clear text so a wrapped file can still be matched to its record.
type KeeperKeyWrapper struct {
	keeper cryptoDomain.KMSKeeper
}

// NewKeyWrapper creates a KeeperKeyWrapper.
func NewKeyWrapper(keeper cryptoDomain.KMSKeeper) *KeeperKeyWrapper {
	return &KeeperKeyWrapper{keeper: keeper}
}

// Wrap encrypts the key material. Already wrapped files are returned unchanged.
func (w *KeeperKeyWrapper) Wrap(ctx context.Context, file cryptoDomain.KeyFile) (cryptoDomain.KeyFile, error) {
	if file.Wrapped {
		return file, nil
	}
	wrapped, err := w.keeper.Encrypt(ctx, file.Material)
	if err != nil {
		return cryptoDomain.KeyFile{}, fmt.Errorf("failed to wrap key: %w", err)
	}
	file.Material = wrapped
	file.Wrapped = true
	return file, nil
}

// Unwrap decrypts the key material. Unwrapped files are returned unchanged. A keeper
// failure is reported as ErrDecryptionFailed.
func (w *KeeperKeyWrapper) Unwrap(ctx context.Context, file cryptoDomain.KeyFile) (cryptoDomain.KeyFile, error) {
	if !file.Wrapped {
		return file, nil
	}
	material, err := w.keeper.Decrypt(ctx, file.Material)
	if err != nil {
		return cryptoDomain.KeyFile{}, fmt.Errorf("%w: unwrap key: %v", cryptoDomain.ErrDecryptionFailed, err)
	}
	if len(material) != cryptoDomain.KeySize {
		cryptoDomain.Zero(material)
		return cryptoDomain.KeyFile{}, cryptoDomain.ErrInvalidKeySize
	}
	file.Material = material
	file.Wrapped = false
	return file, nil
}
