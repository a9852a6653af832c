// Package service provides the span detectors that feed the masking engine.
//
// Detectors only find candidate spans. Validation, merging and selection happen in
// the masking engine, so a detector may return overlapping or duplicate spans.
package service

import (
	"context"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Detector finds PII spans in a document. Text detectors return rune offsets.
type Detector interface {
	Name() string
	Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error)
}
