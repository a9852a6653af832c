package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	outboxUsecase "github.com/allisson/piimask/internal/outbox/usecase"
	taskUsecase "github.com/allisson/piimask/internal/task/usecase"
)

// RunCleanTasks deletes tasks (rows, artifacts and metadata) older than days. With
// dryRun it only reports how many would go.
//
// Requirements: Database must be migrated and accessible.
func RunCleanTasks(
	ctx context.Context,
	taskUseCase taskUsecase.TaskUseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	dryRun bool,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	logger.Info("cleaning tasks", slog.Int("days", days), slog.Bool("dry_run", dryRun))

	count, err := taskUseCase.CleanupExpired(ctx, days, dryRun)
	if err != nil {
		return fmt.Errorf("failed to clean tasks: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count, "days": days, "dry_run": dryRun}); err != nil {
			return err
		}
	} else if dryRun {
		_, _ = fmt.Fprintf(writer, "Dry-run mode: Would delete %d task(s) older than %d day(s)\n", count, days)
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d task(s) older than %d day(s)\n", count, days)
	}

	logger.Info("cleanup completed",
		slog.Int64("count", count),
		slog.Int("days", days),
		slog.Bool("dry_run", dryRun),
	)
	return nil
}

// RunCleanEvents deletes delivered outbox events older than days.
func RunCleanEvents(
	ctx context.Context,
	outboxUseCase outboxUsecase.UseCase,
	logger *slog.Logger,
	writer io.Writer,
	days int,
	format string,
) error {
	if days < 0 {
		return fmt.Errorf("days must be a positive number, got: %d", days)
	}
	if err := validateFormat(format); err != nil {
		return err
	}

	before := time.Now().UTC().Add(-time.Duration(days) * 24 * time.Hour)
	count, err := outboxUseCase.Purge(ctx, before)
	if err != nil {
		return fmt.Errorf("failed to clean events: %w", err)
	}

	if format == "json" {
		if err := writeJSON(writer, map[string]any{"count": count, "days": days}); err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprintf(writer, "Successfully deleted %d processed event(s) older than %d day(s)\n", count, days)
	}

	logger.Info("event cleanup completed", slog.Int64("count", count), slog.Int("days", days))
	return nil
}
