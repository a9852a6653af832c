package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/allisson/piimask/internal/database"
	apperrors "github.com/allisson/piimask/internal/errors"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

const mysqlDuplicateEntry = 1062

// MySQLTaskRepository implements Task persistence for MySQL databases.
// UUIDs are stored as BINARY(16).
type MySQLTaskRepository struct {
	db *sql.DB
}

// NewMySQLTaskRepository creates a new MySQL Task repository instance.
func NewMySQLTaskRepository(db *sql.DB) *MySQLTaskRepository {
	return &MySQLTaskRepository{db: db}
}

// Create inserts a new task. A second insert for the same id fails with ErrTaskAlreadyExists.
func (m *MySQLTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	querier := database.GetTx(ctx, m.db)

	id, err := task.ID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}
	keyID, err := task.KeyID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal key id")
	}

	query := `INSERT INTO tasks (id, document_name, source_format, artifact_format, algorithm, key_id,
			  placeholder_style, artifact_key, metadata_key, detected_count, merged_count, masked_count,
			  skipped_count, rejected_count, low_confidence_count, average_confidence, restore_count,
			  last_restored_at, created_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err = querier.ExecContext(
		ctx,
		query,
		id,
		task.DocumentName,
		string(task.SourceFormat),
		string(task.ArtifactFormat),
		string(task.Algorithm),
		keyID,
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
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return taskDomain.ErrTaskAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create task")
	}
	return nil
}

// Get retrieves a task by id.
func (m *MySQLTaskRepository) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	id, err := taskID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal task id")
	}

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = ?`

	task, err := m.scan(querier.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, taskDomain.ErrTaskNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get task")
	}
	return task, nil
}

// MarkRestored bumps the restore counter and records when it happened.
func (m *MySQLTaskRepository) MarkRestored(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	querier := database.GetTx(ctx, m.db)

	id, err := taskID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}

	query := `UPDATE tasks SET restore_count = restore_count + 1, last_restored_at = ? WHERE id = ?`

	result, err := querier.ExecContext(ctx, query, at, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to mark task restored")
	}
	return requireAffected(result)
}

// Delete removes a task row.
func (m *MySQLTaskRepository) Delete(ctx context.Context, taskID uuid.UUID) error {
	querier := database.GetTx(ctx, m.db)

	id, err := taskID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal task id")
	}

	result, err := querier.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to delete task")
	}
	return requireAffected(result)
}

// ListCreatedBefore returns up to limit tasks created before the cutoff, oldest first.
func (m *MySQLTaskRepository) ListCreatedBefore(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*taskDomain.Task, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT ` + taskColumns + ` FROM tasks WHERE created_at < ? ORDER BY created_at ASC LIMIT ?`

	rows, err := querier.QueryContext(ctx, query, before, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	defer rows.Close() //nolint:errcheck

	var tasks []*taskDomain.Task
	for rows.Next() {
		task, err := m.scan(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan task")
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to list tasks")
	}
	return tasks, nil
}

// CountCreatedBefore counts tasks created before the cutoff.
func (m *MySQLTaskRepository) CountCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	querier := database.GetTx(ctx, m.db)

	var count int64
	err := querier.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE created_at < ?`, before).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to count tasks")
	}
	return count, nil
}

func (m *MySQLTaskRepository) scan(row rowScanner) (*taskDomain.Task, error) {
	var id, keyID []byte
	task, err := scanTask(row, &id, &keyID)
	if err != nil {
		return nil, err
	}
	if err := task.ID.UnmarshalBinary(id); err != nil {
		return nil, err
	}
	if err := task.KeyID.UnmarshalBinary(keyID); err != nil {
		return nil, err
	}
	return task, nil
}
