package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
)

// Pipeline runs detectors concurrently and concatenates their spans in detector order.
type Pipeline struct {
	detectors []Detector
	timeout   time.Duration
	logger    *slog.Logger
}

// NewPipeline creates a Pipeline. A zero timeout means detectors only stop on ctx.
func NewPipeline(detectors []Detector, timeout time.Duration, logger *slog.Logger) *Pipeline {
	return &Pipeline{detectors: detectors, timeout: timeout, logger: logger}
}

// Name implements Detector.
func (p *Pipeline) Name() string {
	return "pipeline"
}

// Detect implements Detector. The first failing detector cancels the others and fails
// the call.
func (p *Pipeline) Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error) {
	results := make([][]spanDomain.Span, len(p.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range p.detectors {
		g.Go(func() error {
			dctx := gctx
			if p.timeout > 0 {
				var cancel context.CancelFunc
				dctx, cancel = context.WithTimeout(gctx, p.timeout)
				defer cancel()
			}

			start := time.Now()
			spans, err := d.Detect(dctx, doc)
			if err != nil {
				return fmt.Errorf("detector %s: %w", d.Name(), err)
			}
			results[i] = spans

			p.logger.Debug("detector finished",
				slog.String("detector", d.Name()),
				slog.Int("spans", len(spans)),
				slog.Duration("duration", time.Since(start)),
			)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var spans []spanDomain.Span
	for _, r := range results {
		spans = append(spans, r...)
	}
	return spans, nil
}
