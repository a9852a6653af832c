package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

const testDictionary = `
ignore: [Sample]
labels:
  org: [Bank Islam, Petronas]
  religion: [Islam]
  name: [Sample, "  "]
`

func TestParseDictionary(t *testing.T) {
	t.Run("Success_DefaultConfidence", func(t *testing.T) {
		d, err := ParseDictionary(strings.NewReader(testDictionary))

		require.NoError(t, err)
		assert.Equal(t, DefaultDictionaryConfidence, d.Confidence)
		assert.Equal(t, []string{"Bank Islam", "Petronas"}, d.Labels["org"])
	})

	t.Run("Error_UnknownField", func(t *testing.T) {
		_, err := ParseDictionary(strings.NewReader("terms: [a]\n"))

		assert.ErrorIs(t, err, ErrInvalidDictionary)
	})

	t.Run("Error_ConfidenceOutOfRange", func(t *testing.T) {
		_, err := ParseDictionary(strings.NewReader("confidence: 1.5\n"))

		assert.ErrorIs(t, err, ErrInvalidDictionary)
	})

	t.Run("Error_Empty", func(t *testing.T) {
		_, err := ParseDictionary(strings.NewReader(""))

		assert.ErrorIs(t, err, ErrInvalidDictionary)
	})
}

func TestLoadDictionary(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dictionary.yaml")
		require.NoError(t, os.WriteFile(path, []byte("confidence: 0.8\nlabels:\n  ORG: [Maybank]\n"), 0o600))

		d, err := LoadDictionary(path)

		require.NoError(t, err)
		assert.Equal(t, 0.8, d.Confidence)
	})

	t.Run("Error_MissingFile", func(t *testing.T) {
		_, err := LoadDictionary(filepath.Join(t.TempDir(), "missing.yaml"))

		assert.ErrorIs(t, err, ErrInvalidDictionary)
	})
}

func TestDictionaryDetector_Detect(t *testing.T) {
	d, err := ParseDictionary(strings.NewReader(testDictionary))
	require.NoError(t, err)
	detector, err := NewDictionaryDetector(d)
	require.NoError(t, err)

	t.Run("Success_WholeWordCaseInsensitive", func(t *testing.T) {
		spans, err := detector.Detect(context.Background(), textDoc("Petronas and Bank Islam sample; islam."))

		require.NoError(t, err)
		assert.Equal(t, map[spanDomain.Label][]spanDomain.TextRange{
			spanDomain.LabelOrg:      {{Start: 0, End: 8}, {Start: 13, End: 23}},
			spanDomain.LabelReligion: {{Start: 18, End: 23}, {Start: 32, End: 37}},
		}, rangesByLabel(spans))

		for _, s := range spans {
			assert.Equal(t, []spanDomain.SourceLayer{spanDomain.LayerDictionary}, s.Layers)
			assert.Equal(t, DefaultDictionaryConfidence, s.Confidence)
		}
		assert.Equal(t, "islam", spans[3].Text)
	})

	t.Run("Success_NoPartialWords", func(t *testing.T) {
		spans, err := detector.Detect(context.Background(), textDoc("Petronasian Islamic"))

		require.NoError(t, err)
		assert.Empty(t, spans)
	})

	t.Run("Success_DefaultIgnoreWords", func(t *testing.T) {
		custom, err := NewDictionaryDetector(&Dictionary{Labels: map[string][]string{
			"LOCATION": {"Malaysia", "Johor"},
		}})
		require.NoError(t, err)

		spans, err := custom.Detect(context.Background(), textDoc("Johor, Malaysia"))

		require.NoError(t, err)
		require.Len(t, spans, 1)
		assert.Equal(t, "Johor", spans[0].Text)
		assert.Equal(t, spanDomain.LabelLocation, spans[0].Label)
	})

	t.Run("Error_EmptyLabel", func(t *testing.T) {
		_, err := NewDictionaryDetector(&Dictionary{Labels: map[string][]string{" ": {"x"}}})

		assert.ErrorIs(t, err, ErrInvalidDictionary)
	})
}
