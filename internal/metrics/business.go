package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records use case level measurements: how often each task operation
// runs, how long it takes, and how many spans of each label end up masked.
//
// domain groups operations ("tasks"), operation names the call ("task_mask",
// "task_restore") and status is "success" or "error".
type BusinessMetrics interface {
	RecordOperation(ctx context.Context, domain, operation, status string)
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)
	RecordMaskedSpans(ctx context.Context, label string, count int)
}

type businessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	masked     metric.Int64Counter
}

// NewBusinessMetrics registers the business instruments on meterProvider. Instrument
// names are prefixed with namespace, e.g. piimask_operations_total.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)
	bm := &businessMetrics{}

	var err error
	bm.operations, err = meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Task operations by outcome"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	bm.durations, err = meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Task operation latency in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	bm.masked, err = meter.Int64Counter(
		namespace+"_masked_spans_total",
		metric.WithDescription("Spans replaced by a placeholder, by label"),
		metric.WithUnit("{span}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create masked span counter: %w", err)
	}

	return bm, nil
}

func operationAttrs(domain, operation, status string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String("domain", domain),
		attribute.String("operation", operation),
		attribute.String("status", status),
	)
}

func (b *businessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	b.operations.Add(ctx, 1, operationAttrs(domain, operation, status))
}

func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	b.durations.Record(ctx, duration.Seconds(), operationAttrs(domain, operation, status))
}

// RecordMaskedSpans ignores non-positive counts so labels that were detected but
// never masked do not show up as zero-valued series.
func (b *businessMetrics) RecordMaskedSpans(ctx context.Context, label string, count int) {
	if count <= 0 {
		return
	}
	b.masked.Add(ctx, int64(count), metric.WithAttributes(attribute.String("label", label)))
}

// NoOpBusinessMetrics is used when METRICS_ENABLED is false.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics returns a BusinessMetrics that discards everything.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

func (n *NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (n *NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {
}

func (n *NoOpBusinessMetrics) RecordMaskedSpans(context.Context, string, int) {}
