// Package repository implements task persistence for PostgreSQL and MySQL.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/allisson/piimask/internal/database"
	apperrors "github.com/allisson/piimask/internal/errors"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

const pgUniqueViolation = "23505"

// PostgreSQLTaskRepository implements Task persistence for PostgreSQL databases.
type PostgreSQLTaskRepository struct {
	db *sql.DB
}

// NewPostgreSQLTaskRepository creates a new PostgreSQL Task repository instance.
func NewPostgreSQLTaskRepository(db *sql.DB) *PostgreSQLTaskRepository {
	return &PostgreSQLTaskRepository{db: db}
}

// Create inserts a new task. A second insert for the same id fails with ErrTaskAlreadyExists.
func (p *PostgreSQLTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO tasks (id, document_name, source_format, artifact_format, algorithm, key_id,
			  placeholder_style, artifact_key, metadata_key, detected_count, merged_count, masked_count,
			  skipped_count, rejected_count, low_confidence_count, average_confidence, restore_count,
			  last_restored_at, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	_, err := querier.ExecContext(
		ctx,
		query,
		task.ID,
		task.DocumentName,
		string(task.SourceFormat),
		string(task.ArtifactFormat),
		string(task.Algorithm),
		task.KeyID,
		string(task.PlaceholderStyle),
		task.ArtifactKey,
		task.MetadataKey,
		task.Stats.Detected,
		task.Stats.Merged,
		task.Stats.Masked,
		task.Stats.Skipped,
		task.Stats.Rejected,
		task.Stats.LowConfidence,
		task.Stats.AverageConfidence,
		task.RestoreCount,
		task.LastRestoredAt,
		task.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pgUniqueViolation {
			return taskDomain.ErrTaskAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create task")
	}
	return nil
}

// Get retrieves a task by id.
func (p *PostgreSQLTaskRepository) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var id, keyID uuid.UUID
	task, err := scanTask(querier.QueryRowContext(ctx, query, taskID), &id, &keyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get task")
	}
	task.ID, task.KeyID = id, keyID
	return task, nil
}

// MarkRestored bumps the restore counter and records when it happened.
func (p *PostgreSQLTaskRepository) MarkRestored(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, p.db)

	query := `UPDATE tasks SET restore_count = restore_count + 1, last_restored_at = $1 WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, at, taskID)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark task restored")
	}
	return requireAffected(result)
}

// Delete removes a task row.
func (p *PostgreSQLTaskRepository) Delete(ctx context.Context, taskID uuid.UUID) error {
	querier := database.GetTx(ctx, p.db)

	result, err := querier.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete task")
	}
	return requireAffected(result)
}

// ListCreatedBefore returns up to limit tasks created before the cutoff, oldest first.
func (p *PostgreSQLTaskRepository) ListCreatedBefore(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE created_at < $1 ORDER BY created_at ASC LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []*taskDomain.Task
	for rows.Next() {
		var id, keyID uuid.UUID
		task, err := scanTask(rows, &id, &keyID)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan task")
		}
		task.ID, task.KeyID = id, keyID
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

// CountCreatedBefore counts tasks created before the cutoff.
func (p *PostgreSQLTaskRepository) CountCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, p.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE created_at < $1`, before).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count tasks")
	}
	return count, nil
}
