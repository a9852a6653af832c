package service

import (
	"encoding/json"
	"io"

	"github.com/allisson/piimask/internal/errors"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// ErrInvalidSpanList is returned when an external span list cannot be decoded.
var ErrInvalidSpanList = errors.Wrap(errors.ErrInvalidInput, "invalid span list")

// SpanJSON is the wire shape of one externally detected span.
type SpanJSON struct {
	ID         string       `json:"id,omitempty"`
	Label      string       `json:"label"`
	Location   LocationJSON `json:"location"`
	Confidence float64      `json:"confidence"`
	Layers     []string     `json:"layers,omitempty"`
	Text       string       `json:"text,omitempty"`
}

// LocationJSON is either {"kind":"text","start":0,"end":4} or
// {"kind":"image","page":0,"box":{"x":0,"y":0,"width":10,"height":10}}.
type LocationJSON struct {
	Kind  string   `json:"kind"`
	Start int      `json:"start,omitempty"`
	End   int      `json:"end,omitempty"`
	Page  int      `json:"page,omitempty"`
	Box   *BoxJSON `json:"box,omitempty"`
}

// BoxJSON is an image bounding box in pixels.
type BoxJSON struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// ToDomain converts the wire span. Validation is left to the masking engine, which
// rejects bad spans individually.
func (s SpanJSON) ToDomain() spanDomain.Span {
	span := spanDomain.Span{
		ID:         s.ID,
		Label:      spanDomain.NormalizeLabel(s.Label),
		Confidence: s.Confidence,
		Text:       s.Text,
	}
	for _, l := range s.Layers {
		span.Layers = append(span.Layers, spanDomain.SourceLayer(l))
	}

	switch spanDomain.LocationKind(s.Location.Kind) {
	case spanDomain.LocationText:
		span.Location = spanDomain.TextLocation(s.Location.Start, s.Location.End)
	case spanDomain.LocationImage:
		var box spanDomain.BoundingBox
		if b := s.Location.Box; b != nil {
			box = spanDomain.BoundingBox{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
		}
		span.Location = spanDomain.ImageLocation(s.Location.Page, box)
	default:
		span.Location = spanDomain.Location{Kind: spanDomain.LocationKind(s.Location.Kind)}
	}
	return span
}

// FromDomain converts a span to its wire shape.
func FromDomain(span spanDomain.Span) SpanJSON {
	out := SpanJSON{
		ID:         span.ID,
		Label:      string(span.Label),
		Confidence: span.Confidence,
		Text:       span.Text,
		Location:   LocationJSON{Kind: string(span.Location.Kind)},
	}
	for _, l := range span.Layers {
		out.Layers = append(out.Layers, string(l))
	}
	switch {
	case span.Location.Text != nil:
		out.Location.Start = span.Location.Text.Start
		out.Location.End = span.Location.Text.End
	case span.Location.Image != nil:
		b := span.Location.Image.Box
		out.Location.Page = span.Location.Image.Page
		out.Location.Box = &BoxJSON{X: b.X, Y: b.Y, Width: b.Width, Height: b.Height}
	}
	return out
}

// DecodeSpans reads a JSON array of spans.
func DecodeSpans(r io.Reader) ([]spanDomain.Span, error) {
	var in []SpanJSON
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, errors.Wrapf(ErrInvalidSpanList, "%v", err)
	}
	spans := make([]spanDomain.Span, 0, len(in))
	for _, s := range in {
		spans = append(spans, s.ToDomain())
	}
	return spans, nil
}
