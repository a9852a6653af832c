// Package domain defines documents, masked artifacts, restoration records and the
// errors raised while masking or restoring them.
package domain

import (
	"fmt"

	"github.com/allisson/piimask/internal/errors"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Masking and restoration error definitions.
var (
	// ErrUnsupportedFormat indicates a document format no strategy handles.
	ErrUnsupportedFormat = errors.Wrap(errors.ErrUnsupported, "unsupported document format")

	// ErrSpanOutOfBounds indicates a selected span reaching outside the document.
	ErrSpanOutOfBounds = errors.Wrap(errors.ErrInvalidInput, "span out of bounds")

	// ErrPlaceholderMismatch indicates the artifact no longer has the recorded placeholder
	// at the recorded location, so restoring it would corrupt the document.
	ErrPlaceholderMismatch = errors.Wrap(errors.ErrConflict, "placeholder mismatch")

	// ErrInvalidRecord indicates a restoration record that is structurally unusable.
	ErrInvalidRecord = errors.Wrap(errors.ErrInvalidInput, "invalid restoration record")

	// ErrDocumentTooLarge indicates a document above the configured size limit.
	ErrDocumentTooLarge = errors.Wrap(errors.ErrTooLarge, "document too large")

	// ErrInvalidPlaceholderStyle indicates an unknown placeholder style name.
	ErrInvalidPlaceholderStyle = errors.Wrap(errors.ErrInvalidInput, "invalid placeholder style")
)

// SpanError attaches the offending span to a masking or restoration failure.
type SpanError struct {
	SpanID   string
	Location spanDomain.Location
	Err      error
}

func (e *SpanError) Error() string {
	return fmt.Sprintf("span %s at %s: %v", e.SpanID, e.Location, e.Err)
}

func (e *SpanError) Unwrap() error {
	return e.Err
}

// NewSpanError builds a SpanError.
func NewSpanError(spanID string, loc spanDomain.Location, err error) *SpanError {
	return &SpanError{SpanID: spanID, Location: loc, Err: err}
}
