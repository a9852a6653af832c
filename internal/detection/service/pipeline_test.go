package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

type stubDetector struct {
	name  string
	spans []spanDomain.Span
	err   error
	block bool
}

func (s *stubDetector) Name() string { return s.name }

func (s *stubDetector) Detect(ctx context.Context, _ maskingDomain.Document) ([]spanDomain.Span, error) {
	if s.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return s.spans, s.err
}

func TestPipeline_Detect(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	a := spanDomain.Span{Label: spanDomain.LabelName, Location: spanDomain.TextLocation(0, 3)}
	b := spanDomain.Span{Label: spanDomain.LabelPhone, Location: spanDomain.TextLocation(4, 9)}

	t.Run("Success_ConcatenatesInDetectorOrder", func(t *testing.T) {
		p := NewPipeline([]Detector{
			&stubDetector{name: "first", spans: []spanDomain.Span{a}},
			&stubDetector{name: "empty"},
			&stubDetector{name: "second", spans: []spanDomain.Span{b}},
		}, time.Second, logger)

		spans, err := p.Detect(ctx, textDoc("Ali 12345"))

		require.NoError(t, err)
		assert.Equal(t, []spanDomain.Span{a, b}, spans)
	})

	t.Run("Success_RealDetectors", func(t *testing.T) {
		d, err := ParseDictionary(strings.NewReader("labels:\n  NAME: [Ali]\n"))
		require.NoError(t, err)
		dict, err := NewDictionaryDetector(d)
		require.NoError(t, err)
		p := NewPipeline([]Detector{NewRuleDetector(nil), dict}, 0, logger)

		spans, err := p.Detect(ctx, textDoc("Ali 900101-14-5678"))

		require.NoError(t, err)
		require.Len(t, spans, 2)
		assert.Equal(t, spanDomain.LabelIC, spans[0].Label)
		assert.Equal(t, spanDomain.LabelName, spans[1].Label)
	})

	t.Run("Error_DetectorFails", func(t *testing.T) {
		boom := errors.New("boom")
		p := NewPipeline([]Detector{
			&stubDetector{name: "ok", spans: []spanDomain.Span{a}},
			&stubDetector{name: "broken", err: boom},
		}, time.Second, logger)

		spans, err := p.Detect(ctx, textDoc("Ali"))

		assert.ErrorIs(t, err, boom)
		assert.Contains(t, err.Error(), "detector broken")
		assert.Nil(t, spans)
	})

	t.Run("Error_Timeout", func(t *testing.T) {
		p := NewPipeline([]Detector{&stubDetector{name: "slow", block: true}}, 10*time.Millisecond, logger)

		_, err := p.Detect(ctx, textDoc("Ali"))

		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})
}
