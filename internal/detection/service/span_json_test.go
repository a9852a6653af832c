package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

func TestDecodeSpans(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		spans, err := DecodeSpans(strings.NewReader(`[
			{"id": "a", "label": " name ", "location": {"kind": "text", "start": 0, "end": 3},
			 "confidence": 0.9, "layers": ["ner", "dictionary"], "text": "Ali"},
			{"label": "MANUAL", "location": {"kind": "image", "page": 0, "box": {"x": 1, "y": 2, "width": 3, "height": 4}},
			 "confidence": 1, "layers": ["manual"]},
			{"label": "NAME", "location": {"kind": "audio"}, "confidence": 1}
		]`))

		require.NoError(t, err)
		require.Len(t, spans, 3)
		assert.Equal(t, spanDomain.Span{
			ID:         "a",
			Label:      spanDomain.LabelName,
			Location:   spanDomain.TextLocation(0, 3),
			Confidence: 0.9,
			Layers:     []spanDomain.SourceLayer{spanDomain.LayerNER, spanDomain.LayerDictionary},
			Text:       "Ali",
		}, spans[0])
		assert.Equal(t, spanDomain.ImageLocation(0, spanDomain.BoundingBox{X: 1, Y: 2, Width: 3, Height: 4}), spans[1].Location)
		assert.ErrorIs(t, spans[2].Validate(), spanDomain.ErrInvalidSpan)
	})

	t.Run("Error_NotAnArray", func(t *testing.T) {
		_, err := DecodeSpans(strings.NewReader(`{"label": "NAME"}`))

		assert.ErrorIs(t, err, ErrInvalidSpanList)
	})
}

func TestFromDomain(t *testing.T) {
	span := spanDomain.Span{
		ID:         "x",
		Label:      spanDomain.LabelIC,
		Location:   spanDomain.ImageLocation(0, spanDomain.BoundingBox{X: 5, Y: 6, Width: 7, Height: 8}),
		Confidence: 1,
		Layers:     []spanDomain.SourceLayer{spanDomain.LayerRule},
	}

	assert.Equal(t, span, FromDomain(span).ToDomain())
}
