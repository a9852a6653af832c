package repository

import (
	"database/sql"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

const taskColumns = `id, document_name, source_format, artifact_format, algorithm, key_id,
	placeholder_style, artifact_key, metadata_key, detected_count, merged_count, masked_count,
	skipped_count, rejected_count, low_confidence_count, average_confidence, restore_count,
	last_restored_at, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask reads one row in taskColumns order. The id columns are scanned into the
// caller's destinations since their encoding differs per dialect.
func scanTask(row rowScanner, id, keyID any) (*taskDomain.Task, error) {
	var (
		task                                    taskDomain.Task
		sourceFormat, artifactFormat, algorithm string
		style                                   string
	)
	err := row.Scan(
		id,
		&task.DocumentName,
		&sourceFormat,
		&artifactFormat,
		&algorithm,
		keyID,
		&style,
		&task.ArtifactKey,
		&task.MetadataKey,
		&task.Stats.Detected,
		&task.Stats.Merged,
		&task.Stats.Masked,
		&task.Stats.Skipped,
		&task.Stats.Rejected,
		&task.Stats.LowConfidence,
		&task.Stats.AverageConfidence,
		&task.RestoreCount,
		&task.LastRestoredAt,
		&task.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	task.SourceFormat = maskingDomain.Format(sourceFormat)
	task.ArtifactFormat = maskingDomain.Format(artifactFormat)
	task.Algorithm = cryptoDomain.Algorithm(algorithm)
	task.PlaceholderStyle = maskingDomain.PlaceholderStyle(style)
	return &task, nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return taskDomain.ErrTaskNotFound
	}
	return nil
}
