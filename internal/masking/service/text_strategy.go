package service

import (
	"context"
	"fmt"
	"slices"
	"unicode/utf8"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// TextStrategy masks UTF-8 text and CSV. Offsets are code points into the raw content,
// so CSV spans address the file as a whole rather than individual cells.
type TextStrategy struct{}

// NewTextStrategy creates a TextStrategy.
func NewTextStrategy() *TextStrategy {
	return &TextStrategy{}
}

// Formats implements Strategy.
func (s *TextStrategy) Formats() []maskingDomain.Format {
	return []maskingDomain.Format{maskingDomain.FormatText, maskingDomain.FormatCSV}
}

// Mask replaces spans in descending start order so earlier offsets stay valid while
// later text changes, then computes each placeholder's position in the result.
func (s *TextStrategy) Mask(ctx context.Context, in MaskInput) (*MaskOutput, error) {
	if !utf8.Valid(in.Content) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", maskingDomain.ErrUnsupportedFormat)
	}
	runes := []rune(string(in.Content))

	prevEnd := 0
	for _, sp := range in.Spans {
		r := sp.Location.Text
		if sp.Location.Kind != spanDomain.LocationText || r == nil {
			return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, maskingDomain.ErrUnsupportedFormat)
		}
		if r.Start < prevEnd {
			return nil, maskingDomain.NewSpanError(sp.ID, sp.Location,
				fmt.Errorf("%w: overlaps or precedes previous span", spanDomain.ErrInvalidSpan))
		}
		prevEnd = r.End
		if r.End > len(runes) {
			return nil, maskingDomain.NewSpanError(
				sp.ID,
				sp.Location,
				fmt.Errorf("%w: document has %d characters", maskingDomain.ErrSpanOutOfBounds, len(runes)),
			)
		}
	}

	placeholders := make([]string, len(in.Spans))
	values := make([][]byte, len(in.Spans))
	for i, sp := range in.Spans {
		placeholders[i] = placeholderText(in.Style, in.TaskID, sp)
		sealed, err := in.Sealer.Seal(
			purposeValue,
			[]byte(string(runes[sp.Location.Text.Start:sp.Location.Text.End])),
			sealAAD(in.TaskID, sp.ID, purposeValue),
		)
		if err != nil {
			return nil, maskingDomain.NewSpanError(sp.ID, sp.Location, err)
		}
		values[i] = sealed
	}

	masked := slices.Clone(runes)
	for i := len(in.Spans) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r := in.Spans[i].Location.Text
		masked = slices.Replace(masked, r.Start, r.End, []rune(placeholders[i])...)
	}

	out := &MaskOutput{Content: []byte(string(masked))}
	shift := 0
	for i, sp := range in.Spans {
		r := sp.Location.Text
		phLen := utf8.RuneCountInString(placeholders[i])
		start := r.Start + shift
		loc := spanDomain.TextLocation(start, start+phLen)
		shift += phLen - r.Len()

		out.Placeholders = append(out.Placeholders, maskingDomain.Placeholder{
			SpanID:   sp.ID,
			Label:    sp.Label,
			Location: loc,
			Text:     placeholders[i],
		})
		out.Entries = append(out.Entries, maskingDomain.RecordEntry{
			SpanID:         sp.ID,
			Label:          sp.Label,
			Confidence:     sp.Confidence,
			Layers:         slices.Clone(sp.Layers),
			Location:       loc.Clone(),
			SourceLocation: sp.Location.Clone(),
			Placeholder:    placeholders[i],
			EncryptedValue: values[i],
		})
	}
	return out, nil
}

// Restore checks every placeholder against the masked text, opens every value, and only
// then rebuilds the document by walking the masked text forward.
func (s *TextStrategy) Restore(ctx context.Context, in RestoreInput) (*RestoreOutput, error) {
	if !utf8.Valid(in.Content) {
		return nil, fmt.Errorf("%w: text is not valid UTF-8", maskingDomain.ErrPlaceholderMismatch)
	}
	runes := []rune(string(in.Content))

	for _, e := range in.Entries {
		if e.Location.Kind != spanDomain.LocationText || e.Location.Text == nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, maskingDomain.ErrPlaceholderMismatch)
		}
	}

	entries := slices.Clone(in.Entries)
	slices.SortStableFunc(entries, func(a, b maskingDomain.RecordEntry) int {
		return a.Location.Text.Start - b.Location.Text.Start
	})

	prevEnd := 0
	for _, e := range entries {
		r := e.Location.Text
		if r.Start < prevEnd {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location,
				fmt.Errorf("%w: overlaps previous placeholder", maskingDomain.ErrPlaceholderMismatch))
		}
		if r.End > len(runes) {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location,
				fmt.Errorf("%w: beyond end of artifact", maskingDomain.ErrPlaceholderMismatch))
		}
		if string(runes[r.Start:r.End]) != e.Placeholder {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, maskingDomain.ErrPlaceholderMismatch)
		}
		prevEnd = r.End
	}

	values := make([][]rune, len(entries))
	for i, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		plain, err := in.Sealer.Open(purposeValue, e.EncryptedValue, sealAAD(in.TaskID, e.SpanID, purposeValue))
		if err != nil {
			return nil, maskingDomain.NewSpanError(e.SpanID, e.Location, cryptoDomain.ErrDecryptionFailed)
		}
		values[i] = []rune(string(plain))
	}

	restored := make([]rune, 0, len(runes))
	cursor := 0
	for i, e := range entries {
		restored = append(restored, runes[cursor:e.Location.Text.Start]...)
		restored = append(restored, values[i]...)
		cursor = e.Location.Text.End
	}
	restored = append(restored, runes[cursor:]...)

	return &RestoreOutput{Content: []byte(string(restored))}, nil
}
