// Package usecase drains the outbox: pending events are claimed in batches inside a
// transaction and handed to an EventProcessor.
package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/allisson/piimask/internal/database"
	"github.com/allisson/piimask/internal/outbox/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

// Config holds outbox use case configuration
type Config struct {
	Interval   time.Duration
	BatchSize  int
	MaxRetries int
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	Update(ctx context.Context, event *domain.OutboxEvent) error
	DeleteProcessedBefore(ctx context.Context, before time.Time) (int64, error)
}

// EventProcessor delivers one event. Returning an error schedules a retry.
type EventProcessor interface {
	Process(ctx context.Context, event *domain.OutboxEvent) error
}

// UseCase defines the interface for outbox use cases
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
	Purge(ctx context.Context, before time.Time) (int64, error)
}

// OutboxUseCase implements business logic for processing outbox events
type OutboxUseCase struct {
	config         Config
	txManager      database.TxManager
	outboxRepo     OutboxEventRepository
	eventProcessor EventProcessor
	logger         *slog.Logger
}

// NewOutboxUseCase creates a new OutboxUseCase
func NewOutboxUseCase(
	config Config,
	txManager database.TxManager,
	outboxRepo OutboxEventRepository,
	eventProcessor EventProcessor,
	logger *slog.Logger,
) *OutboxUseCase {
	return &OutboxUseCase{
		config:         config,
		txManager:      txManager,
		outboxRepo:     outboxRepo,
		eventProcessor: eventProcessor,
		logger:         logger,
	}
}

// Start polls for events until ctx is done.
func (uc *OutboxUseCase) Start(ctx context.Context) error {
	uc.logger.Info("starting outbox event processor",
		slog.Duration("interval", uc.config.Interval),
		slog.Int("batch_size", uc.config.BatchSize),
	)

	ticker := time.NewTicker(uc.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			uc.logger.Info("stopping outbox event processor")
			return ctx.Err()
		case <-ticker.C:
			if err := uc.ProcessEvents(ctx); err != nil {
				uc.logger.Error("failed to process events", slog.Any("error", err))
			}
		}
	}
}

// ProcessEvents claims one batch of pending events and records each delivery outcome.
// A failing event is retried on later polls until MaxRetries, then marked failed.
func (uc *OutboxUseCase) ProcessEvents(ctx context.Context) error {
	return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := uc.outboxRepo.GetPendingEvents(ctx, uc.config.BatchSize)
		if err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}

		uc.logger.Debug("processing events", slog.Int("count", len(events)))

		for _, event := range events {
			if err := uc.eventProcessor.Process(ctx, event); err != nil {
				uc.logger.Error("failed to process event",
					slog.String("event_id", event.ID.String()),
					slog.String("event_type", event.EventType),
					slog.Any("error", err),
				)

				event.Retries++
				errorMsg := err.Error()
				event.LastError = &errorMsg
				if event.Retries >= uc.config.MaxRetries {
					event.Status = domain.OutboxEventStatusFailed
				}

				if err := uc.outboxRepo.Update(ctx, event); err != nil {
					return err
				}
				continue
			}

			now := time.Now().UTC()
			event.Status = domain.OutboxEventStatusProcessed
			event.ProcessedAt = &now
			event.LastError = nil

			if err := uc.outboxRepo.Update(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
}

// Purge deletes processed events older than before.
func (uc *OutboxUseCase) Purge(ctx context.Context, before time.Time) (int64, error) {
	return uc.outboxRepo.DeleteProcessedBefore(ctx, before)
}

// AuditEventProcessor writes task lifecycle events to the structured audit log.
type AuditEventProcessor struct {
	logger *slog.Logger
}

// NewAuditEventProcessor creates an AuditEventProcessor.
func NewAuditEventProcessor(logger *slog.Logger) *AuditEventProcessor {
	return &AuditEventProcessor{logger: logger}
}

// Process implements EventProcessor.
func (p *AuditEventProcessor) Process(ctx context.Context, event *domain.OutboxEvent) error {
	switch event.EventType {
	case taskDomain.EventTaskMasked, taskDomain.EventTaskRestored,
		taskDomain.EventTaskRestoreFailed, taskDomain.EventTaskDeleted:
	default:
		return fmt.Errorf("unknown event type %q", event.EventType)
	}

	var payload taskDomain.Event
	if err := event.Decode(&payload); err != nil {
		return err
	}

	attrs := []slog.Attr{
		slog.String("event_id", event.ID.String()),
		slog.String("event_type", event.EventType),
		slog.String("task_id", payload.TaskID.String()),
		slog.Time("occurred_at", payload.OccurredAt),
	}
	if payload.Format != "" {
		attrs = append(attrs, slog.String("format", payload.Format))
	}
	if s := payload.Stats; s != nil {
		attrs = append(attrs, slog.Group("stats",
			slog.Int("detected", s.Detected),
			slog.Int("merged", s.Merged),
			slog.Int("masked", s.Masked),
			slog.Int("skipped", s.Skipped),
			slog.Int("rejected", s.Rejected),
			slog.Int("low_confidence", s.LowConfidence),
			slog.Float64("average_confidence", s.AverageConfidence),
		))
	}
	if len(payload.MaskedByLabel) > 0 {
		attrs = append(attrs, slog.Any("masked_by_label", payload.MaskedByLabel))
	}
	if payload.Error != "" {
		attrs = append(attrs, slog.String("error", payload.Error))
	}

	p.logger.LogAttrs(ctx, slog.LevelInfo, "audit event", attrs...)
	return nil
}
