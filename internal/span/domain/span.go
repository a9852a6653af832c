package domain

import (
	"fmt"
	"math"
	"slices"

	"github.com/allisson/piimask/internal/errors"
)

// Span is one detected piece of PII. Detectors produce spans, MergeOverlapping reduces
// them, and the mask engine consumes them. Text is the detector-reported surface value;
// for image spans it is the value that gets encrypted into the restoration record.
type Span struct {
	ID         string
	Label      Label
	Location   Location
	Confidence float64
	Layers     []SourceLayer
	Text       string
	MergedFrom []string
}

// Validate checks identity, label, confidence and location.
func (s Span) Validate() error {
	if s.ID == "" {
		return errors.Wrap(ErrInvalidSpan, "id cannot be empty")
	}
	if s.Label == "" {
		return errors.Wrap(ErrInvalidSpan, "label cannot be empty")
	}
	if math.IsNaN(s.Confidence) || s.Confidence < 0 || s.Confidence > 1 {
		return errors.Wrapf(ErrInvalidSpan, "confidence %v outside [0,1]", s.Confidence)
	}
	return s.Location.Validate()
}

// HasLayer reports whether the span was produced or confirmed by the given layer.
func (s Span) HasLayer(layer SourceLayer) bool {
	return slices.Contains(s.Layers, layer)
}

// Clone returns a deep copy.
func (s Span) Clone() Span {
	out := s
	out.Location = s.Location.Clone()
	out.Layers = slices.Clone(s.Layers)
	out.MergedFrom = slices.Clone(s.MergedFrom)
	return out
}

// Rejection is a span that failed validation, kept so callers can report it.
type Rejection struct {
	Span Span
	Err  error
}

func (r Rejection) Error() string {
	return fmt.Sprintf("span %s: %v", r.Span.ID, r.Err)
}

// Partition validates each span on its own. Valid spans are returned in input order;
// invalid ones and repeated ids are returned as rejections instead of failing the batch.
func Partition(spans []Span) ([]Span, []Rejection) {
	valid := make([]Span, 0, len(spans))
	var rejected []Rejection
	seen := make(map[string]struct{}, len(spans))

	for _, s := range spans {
		if err := s.Validate(); err != nil {
			rejected = append(rejected, Rejection{Span: s, Err: err})
			continue
		}
		if _, dup := seen[s.ID]; dup {
			rejected = append(rejected, Rejection{
				Span: s,
				Err:  errors.Wrapf(ErrInvalidSpan, "duplicate id %q", s.ID),
			})
			continue
		}
		seen[s.ID] = struct{}{}
		valid = append(valid, s.Clone())
	}

	return valid, rejected
}

// SortByStart orders spans by location start, breaking ties by id.
func SortByStart(spans []Span) {
	slices.SortStableFunc(spans, func(a, b Span) int {
		switch {
		case a.Location.before(b.Location):
			return -1
		case b.Location.before(a.Location):
			return 1
		}
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
}
