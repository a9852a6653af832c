// Package domain defines the PII span model: labels, source layers, text and image
// locations, and the overlap merge that turns raw detector output into a
// non-overlapping span set.
package domain

import (
	"github.com/allisson/piimask/internal/errors"
)

// Span error definitions.
var (
	// ErrInvalidSpan indicates a span has an impossible location, confidence or identity.
	ErrInvalidSpan = errors.Wrap(errors.ErrInvalidInput, "invalid span")

	// ErrUnknownLocationKind indicates a location whose kind is neither text nor image.
	ErrUnknownLocationKind = errors.Wrap(ErrInvalidSpan, "unknown location kind")
)
