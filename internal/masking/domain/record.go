package domain

import (
	"unicode/utf8"

	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	"github.com/allisson/piimask/internal/errors"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Validate checks the record is internally consistent before any restoration work.
func (r *RestorationRecord) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidRecord, "record is missing")
	}
	if r.Version != RecordVersion {
		return errors.Wrapf(ErrInvalidRecord, "unsupported version %d", r.Version)
	}
	if r.TaskID == uuid.Nil {
		return errors.Wrap(ErrInvalidRecord, "task id is missing")
	}
	if r.KeyID == uuid.Nil {
		return errors.Wrap(ErrInvalidRecord, "key id is missing")
	}
	if r.Algorithm != cryptoDomain.AESGCM && r.Algorithm != cryptoDomain.ChaCha20 {
		return errors.Wrapf(ErrInvalidRecord, "algorithm %q", r.Algorithm)
	}

	kind := r.Format.LocationKind()
	seen := make(map[string]struct{}, len(r.Entries))
	for i, e := range r.Entries {
		if e.SpanID == "" {
			return errors.Wrapf(ErrInvalidRecord, "entry %d has no span id", i)
		}
		if _, dup := seen[e.SpanID]; dup {
			return errors.Wrapf(ErrInvalidRecord, "duplicate span id %q", e.SpanID)
		}
		seen[e.SpanID] = struct{}{}

		if err := e.Location.Validate(); err != nil {
			return errors.Wrapf(ErrInvalidRecord, "entry %s: %v", e.SpanID, err)
		}
		if e.Location.Kind != kind {
			return errors.Wrapf(ErrInvalidRecord, "entry %s: %s location in %s record", e.SpanID, e.Location.Kind, r.Format)
		}
		if len(e.EncryptedValue) == 0 {
			return errors.Wrapf(ErrInvalidRecord, "entry %s has no encrypted value", e.SpanID)
		}
		if kind == spanDomain.LocationText && utf8.RuneCountInString(e.Placeholder) != e.Location.Text.Len() {
			return errors.Wrapf(ErrInvalidRecord, "entry %s: placeholder does not fit its location", e.SpanID)
		}
	}
	return nil
}

// KeyRef returns the key id as recorded.
func (r *RestorationRecord) KeyRef() string {
	return r.KeyID.String()
}
