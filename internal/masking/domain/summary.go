package domain

import (
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// RejectedSpan reports a span dropped before masking.
type RejectedSpan struct {
	SpanID string
	Reason string
}

// Summary describes what a mask run did with its input spans.
type Summary struct {
	Detected          int
	Merged            int
	Masked            int
	Skipped           int
	Rejected          []RejectedSpan
	AverageConfidence float64
	LowConfidence     int
	MaskedByLabel     map[spanDomain.Label]int
}

// NewSummary computes confidence statistics over the merged spans.
func NewSummary(detected int, merged, toMask, toSkip []spanDomain.Span, rejected []spanDomain.Rejection) Summary {
	s := Summary{
		Detected:      detected,
		Masked:        len(toMask),
		Skipped:       len(toSkip),
		MaskedByLabel: make(map[spanDomain.Label]int),
	}

	valid := detected - len(rejected)
	s.Merged = valid - len(merged)

	for _, r := range rejected {
		s.Rejected = append(s.Rejected, RejectedSpan{SpanID: r.Span.ID, Reason: r.Err.Error()})
	}

	var total float64
	for _, sp := range merged {
		total += sp.Confidence
		if sp.Confidence < spanDomain.LowConfidenceThreshold {
			s.LowConfidence++
		}
	}
	if len(merged) > 0 {
		s.AverageConfidence = total / float64(len(merged))
	}

	for _, sp := range toMask {
		s.MaskedByLabel[sp.Label]++
	}
	return s
}
