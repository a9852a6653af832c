package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textSpan(id string, label Label, start, end int, conf float64, layers ...SourceLayer) Span {
	return Span{ID: id, Label: label, Location: TextLocation(start, end), Confidence: conf, Layers: layers}
}

func imageSpan(id string, label Label, page int, box BoundingBox, conf float64, layers ...SourceLayer) Span {
	return Span{ID: id, Label: label, Location: ImageLocation(page, box), Confidence: conf, Layers: layers}
}

func TestMergeOverlapping_Text(t *testing.T) {
	t.Run("Success_HigherConfidenceLabelWins", func(t *testing.T) {
		spans := []Span{
			textSpan("a", LabelName, 0, 8, 0.7, LayerNER),
			textSpan("b", LabelPerson, 4, 12, 0.9, LayerLLM),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		require.Len(t, merged, 1)
		assert.Equal(t, "b", merged[0].ID)
		assert.Equal(t, LabelPerson, merged[0].Label)
		assert.Equal(t, 0.9, merged[0].Confidence)
		assert.Equal(t, TextRange{Start: 0, End: 12}, *merged[0].Location.Text)
		assert.ElementsMatch(t, []SourceLayer{LayerNER, LayerLLM}, merged[0].Layers)
		assert.Equal(t, []string{"a"}, merged[0].MergedFrom)
	})

	t.Run("Success_TieGoesToDictionary", func(t *testing.T) {
		spans := []Span{
			textSpan("ner", LabelPerson, 0, 5, 0.8, LayerNER),
			textSpan("dict", LabelName, 2, 5, 0.8, LayerDictionary),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		require.Len(t, merged, 1)
		assert.Equal(t, LabelName, merged[0].Label)
		assert.Equal(t, "dict", merged[0].ID)
	})

	t.Run("Success_TieWithoutDictionaryKeepsEarlier", func(t *testing.T) {
		spans := []Span{
			textSpan("second", LabelOrg, 3, 6, 0.5, LayerNER),
			textSpan("first", LabelLocation, 0, 4, 0.5, LayerLLM),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		require.Len(t, merged, 1)
		assert.Equal(t, LabelLocation, merged[0].Label)
		assert.Equal(t, TextRange{Start: 0, End: 6}, *merged[0].Location.Text)
	})

	t.Run("Success_AdjacentSpansStaySeparate", func(t *testing.T) {
		spans := []Span{
			textSpan("a", LabelName, 0, 4, 0.9),
			textSpan("b", LabelName, 4, 8, 0.9),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		assert.Len(t, merged, 2)
	})

	t.Run("Success_ChainedOverlapsCollapse", func(t *testing.T) {
		spans := []Span{
			textSpan("c", LabelName, 8, 12, 0.6),
			textSpan("a", LabelName, 0, 5, 0.6),
			textSpan("b", LabelName, 4, 9, 0.95),
			textSpan("d", LabelPhone, 20, 25, 0.9),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		require.Len(t, merged, 2)
		assert.Equal(t, "b", merged[0].ID)
		assert.Equal(t, TextRange{Start: 0, End: 12}, *merged[0].Location.Text)
		assert.ElementsMatch(t, []string{"a", "c"}, merged[0].MergedFrom)
		assert.Equal(t, "d", merged[1].ID)
	})

	t.Run("Success_DoesNotMutateInput", func(t *testing.T) {
		spans := []Span{
			textSpan("a", LabelName, 0, 5, 0.6),
			textSpan("b", LabelName, 3, 9, 0.7),
		}

		_, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		assert.Equal(t, 5, spans[0].Location.Text.End)
		assert.Nil(t, spans[0].MergedFrom)
	})

	t.Run("Error_StartAfterEnd", func(t *testing.T) {
		_, err := MergeOverlapping([]Span{textSpan("bad", LabelName, 9, 3, 0.5)}, DefaultIoUThreshold)

		assert.ErrorIs(t, err, ErrInvalidSpan)
		assert.Contains(t, err.Error(), "bad")
	})
}

func TestMergeOverlapping_Image(t *testing.T) {
	t.Run("Success_MergesAboveThreshold", func(t *testing.T) {
		spans := []Span{
			imageSpan("a", LabelName, 0, BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}, 0.6, LayerNER),
			imageSpan("b", LabelName, 0, BoundingBox{X: 2, Y: 0, Width: 10, Height: 10}, 0.8, LayerRule),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		require.Len(t, merged, 1)
		assert.Equal(t, BoundingBox{X: 0, Y: 0, Width: 12, Height: 10}, merged[0].Location.Image.Box)
		assert.Equal(t, 0.8, merged[0].Confidence)
	})

	t.Run("Success_KeepsLowOverlapSeparate", func(t *testing.T) {
		spans := []Span{
			imageSpan("a", LabelName, 0, BoundingBox{X: 0, Y: 0, Width: 10, Height: 10}, 0.6),
			imageSpan("b", LabelName, 0, BoundingBox{X: 8, Y: 0, Width: 10, Height: 10}, 0.8),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		assert.Len(t, merged, 2)
	})

	t.Run("Success_DifferentPagesNeverMerge", func(t *testing.T) {
		box := BoundingBox{X: 5, Y: 5, Width: 10, Height: 10}
		spans := []Span{
			imageSpan("a", LabelName, 0, box, 0.6),
			imageSpan("b", LabelName, 1, box, 0.8),
		}

		merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

		require.NoError(t, err)
		assert.Len(t, merged, 2)
	})

	t.Run("Error_NonPositiveDimensions", func(t *testing.T) {
		spans := []Span{imageSpan("a", LabelName, 0, BoundingBox{Width: 0, Height: 4}, 0.6)}

		_, err := MergeOverlapping(spans, DefaultIoUThreshold)

		assert.ErrorIs(t, err, ErrInvalidSpan)
	})
}

func TestMergeOverlapping_NoOverlapInResult(t *testing.T) {
	spans := []Span{
		textSpan("1", LabelName, 0, 3, 0.5),
		textSpan("2", LabelName, 2, 6, 0.5),
		textSpan("3", LabelName, 10, 14, 0.5),
		textSpan("4", LabelName, 13, 20, 0.5),
		textSpan("5", LabelName, 30, 31, 0.5),
		textSpan("6", LabelName, 1, 2, 0.5),
	}

	merged, err := MergeOverlapping(spans, DefaultIoUThreshold)

	require.NoError(t, err)
	for i := 1; i < len(merged); i++ {
		prev, cur := merged[i-1].Location.Text, merged[i].Location.Text
		assert.LessOrEqual(t, prev.End, cur.Start)
	}
	assert.Len(t, merged, 3)
}
