// Package usecase orchestrates mask and restore tasks: it runs detection, drives the
// masking engine, persists artifacts and metadata, and records lifecycle events in
// the outbox. Task keys pass through it once and are never stored.
package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	outboxDomain "github.com/allisson/piimask/internal/outbox/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

// TaskRepository defines the interface for Task persistence operations.
type TaskRepository interface {
	Create(ctx context.Context, task *taskDomain.Task) error
	Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error)
	MarkRestored(ctx context.Context, taskID uuid.UUID, at time.Time) error
	Delete(ctx context.Context, taskID uuid.UUID) error
	ListCreatedBefore(ctx context.Context, before time.Time, limit int) ([]*taskDomain.Task, error)
	CountCreatedBefore(ctx context.Context, before time.Time) (int64, error)
}

// OutboxEventRepository is the write side of the outbox.
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// ArtifactStore keeps masked artifacts and metadata files.
type ArtifactStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// MaskEngine masks and restores documents.
type MaskEngine interface {
	Mask(ctx context.Context, req maskingService.MaskRequest) (*maskingService.MaskResult, error)
	Restore(ctx context.Context, req maskingService.RestoreRequest) (*maskingService.RestoreResult, error)
}

// RecordCodec serializes restoration records.
type RecordCodec interface {
	Marshal(record *maskingDomain.RestorationRecord) ([]byte, error)
	Unmarshal(data []byte) (*maskingDomain.RestorationRecord, error)
}

// SpanDetector finds candidate spans in a document.
type SpanDetector interface {
	Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error)
}

// TaskUseCase defines the interface for task business logic.
type TaskUseCase interface {
	// Mask masks a document and stores the artifact and metadata. The returned
	// MaskOutput.KeyFile is the only copy of the task key.
	Mask(ctx context.Context, input *taskDomain.MaskInput) (*taskDomain.MaskOutput, error)
	Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error)
	GetArtifact(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, []byte, error)
	GetMetadata(ctx context.Context, taskID uuid.UUID) ([]byte, error)
	// Restore reverses a mask from the artifact, metadata and key file alone.
	Restore(ctx context.Context, input *taskDomain.RestoreInput) (*taskDomain.RestoreOutput, error)
	// RestoreTask restores a stored task with the caller's key file.
	RestoreTask(ctx context.Context, taskID uuid.UUID, keyFile string) (*taskDomain.RestoreOutput, error)
	Delete(ctx context.Context, taskID uuid.UUID) error
	// CleanupExpired deletes tasks older than olderThanDays. With dryRun it only counts them.
	CleanupExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error)
}
