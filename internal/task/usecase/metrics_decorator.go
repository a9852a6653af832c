package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/piimask/internal/metrics"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

const metricsDomain = "tasks"

// taskUseCaseWithMetrics decorates TaskUseCase with metrics instrumentation.
type taskUseCaseWithMetrics struct {
	next    TaskUseCase
	metrics metrics.BusinessMetrics
}

// NewTaskUseCaseWithMetrics wraps a TaskUseCase with metrics recording.
func NewTaskUseCaseWithMetrics(useCase TaskUseCase, m metrics.BusinessMetrics) TaskUseCase {
	return &taskUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

func (t *taskUseCaseWithMetrics) record(ctx context.Context, operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	t.metrics.RecordOperation(ctx, metricsDomain, operation, status)
	t.metrics.RecordDuration(ctx, metricsDomain, operation, time.Since(start), status)
}

// Mask records metrics for mask operations, including masked spans per label.
func (t *taskUseCaseWithMetrics) Mask(
	ctx context.Context,
	input *taskDomain.MaskInput,
) (*taskDomain.MaskOutput, error) {
	start := time.Now()
	output, err := t.next.Mask(ctx, input)
	t.record(ctx, "task_mask", start, err)

	if err == nil {
		for label, count := range output.Summary.MaskedByLabel {
			t.metrics.RecordMaskedSpans(ctx, string(label), count)
		}
	}
	return output, err
}

// Get records metrics for task retrieval.
func (t *taskUseCaseWithMetrics) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	start := time.Now()
	task, err := t.next.Get(ctx, taskID)
	t.record(ctx, "task_get", start, err)
	return task, err
}

// GetArtifact records metrics for artifact downloads.
func (t *taskUseCaseWithMetrics) GetArtifact(
	ctx context.Context,
	taskID uuid.UUID,
) (*taskDomain.Task, []byte, error) {
	start := time.Now()
	task, data, err := t.next.GetArtifact(ctx, taskID)
	t.record(ctx, "task_get_artifact", start, err)
	return task, data, err
}

// GetMetadata records metrics for metadata downloads.
func (t *taskUseCaseWithMetrics) GetMetadata(ctx context.Context, taskID uuid.UUID) ([]byte, error) {
	start := time.Now()
	data, err := t.next.GetMetadata(ctx, taskID)
	t.record(ctx, "task_get_metadata", start, err)
	return data, err
}

// Restore records metrics for stateless restores.
func (t *taskUseCaseWithMetrics) Restore(
	ctx context.Context,
	input *taskDomain.RestoreInput,
) (*taskDomain.RestoreOutput, error) {
	start := time.Now()
	output, err := t.next.Restore(ctx, input)
	t.record(ctx, "restore", start, err)
	return output, err
}

// RestoreTask records metrics for stored task restores.
func (t *taskUseCaseWithMetrics) RestoreTask(
	ctx context.Context,
	taskID uuid.UUID,
	keyFile string,
) (*taskDomain.RestoreOutput, error) {
	start := time.Now()
	output, err := t.next.RestoreTask(ctx, taskID, keyFile)
	t.record(ctx, "task_restore", start, err)
	return output, err
}

// Delete records metrics for task deletion.
func (t *taskUseCaseWithMetrics) Delete(ctx context.Context, taskID uuid.UUID) error {
	start := time.Now()
	err := t.next.Delete(ctx, taskID)
	t.record(ctx, "task_delete", start, err)
	return err
}

// CleanupExpired records metrics for retention cleanup.
func (t *taskUseCaseWithMetrics) CleanupExpired(
	ctx context.Context,
	olderThanDays int,
	dryRun bool,
) (int64, error) {
	start := time.Now()
	count, err := t.next.CleanupExpired(ctx, olderThanDays, dryRun)
	t.record(ctx, "task_cleanup", start, err)
	return count, err
}
