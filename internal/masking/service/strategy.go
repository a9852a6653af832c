// Package service implements the mask and restoration engines and the per-format
// strategies they dispatch to.
package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	cryptoService "github.com/allisson/piimask/internal/crypto/service"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// MaskInput is what a strategy needs to mask one document. Spans are validated,
// merged, selected and sorted by start.
type MaskInput struct {
	TaskID          uuid.UUID
	Content         []byte
	Spans           []spanDomain.Span
	Sealer          cryptoService.Sealer
	Style           maskingDomain.PlaceholderStyle
	PreserveRegions bool
}

// MaskOutput is a strategy's result. Entries and Placeholders follow document order.
type MaskOutput struct {
	Content      []byte
	Placeholders []maskingDomain.Placeholder
	Entries      []maskingDomain.RecordEntry
}

// RestoreInput is what a strategy needs to reverse a mask.
type RestoreInput struct {
	TaskID  uuid.UUID
	Content []byte
	Entries []maskingDomain.RecordEntry
	Sealer  cryptoService.Sealer
}

// RevealedValue is a decrypted value that could not be written back into the document,
// such as text read from an image region whose pixels were not preserved.
type RevealedValue struct {
	SpanID string
	Label  spanDomain.Label
	Value  string
}

// RestoreOutput is a strategy's restoration result.
type RestoreOutput struct {
	Content  []byte
	Revealed []RevealedValue
}

// Strategy masks and restores one family of formats. Implementations must be
// stateless and must not write anywhere but their return values.
type Strategy interface {
	Formats() []maskingDomain.Format
	Mask(ctx context.Context, in MaskInput) (*MaskOutput, error)
	Restore(ctx context.Context, in RestoreInput) (*RestoreOutput, error)
}

// Registry maps formats to strategies.
type Registry struct {
	strategies map[maskingDomain.Format]Strategy
}

// NewRegistry registers each strategy under every format it declares. Later
// strategies replace earlier ones for the same format.
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[maskingDomain.Format]Strategy)}
	for _, s := range strategies {
		for _, f := range s.Formats() {
			r.strategies[f] = s
		}
	}
	return r
}

// NewDefaultRegistry registers the text strategy and an image strategy with the
// default pixel limit.
func NewDefaultRegistry() *Registry {
	return NewRegistry(NewTextStrategy(), NewImageStrategy(DefaultMaxImagePixels))
}

// For returns the strategy for format or ErrUnsupportedFormat.
func (r *Registry) For(format maskingDomain.Format) (Strategy, error) {
	s, ok := r.strategies[format]
	if !ok {
		return nil, fmt.Errorf("%w: %q", maskingDomain.ErrUnsupportedFormat, format)
	}
	return s, nil
}

const (
	purposeValue  = cryptoService.PurposeValue
	purposeRegion = cryptoService.PurposeRegion
)

// sealAAD binds a sealed value to its task, span and purpose so entries cannot be
// moved between records, between spans, or between value and region fields.
func sealAAD(taskID uuid.UUID, spanID string, purpose cryptoService.Purpose) []byte {
	return []byte(taskID.String() + "|" + spanID + "|" + string(purpose))
}

// placeholderText renders the text inserted in place of a span.
func placeholderText(style maskingDomain.PlaceholderStyle, taskID uuid.UUID, s spanDomain.Span) string {
	if style == maskingDomain.PlaceholderTagged {
		sum := sha256.Sum256([]byte(taskID.String() + "|" + s.ID))
		return fmt.Sprintf("[ENC:%s_%s]", s.Label, hex.EncodeToString(sum[:4]))
	}
	return fmt.Sprintf("[%s]", s.Label)
}
