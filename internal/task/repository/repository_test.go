package repository

import (
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

var taskColumnNames = []string{
	"id", "document_name", "source_format", "artifact_format", "algorithm", "key_id",
	"placeholder_style", "artifact_key", "metadata_key", "detected_count", "merged_count", "masked_count",
	"skipped_count", "rejected_count", "low_confidence_count", "average_confidence", "restore_count",
	"last_restored_at", "created_at",
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db, mock
}

func testTask() *taskDomain.Task {
	return &taskDomain.Task{
		ID:               uuid.Must(uuid.NewV7()),
		DocumentName:     "contact.txt",
		SourceFormat:     "text",
		ArtifactFormat:   "text",
		Algorithm:        "aes-gcm",
		KeyID:            uuid.Must(uuid.NewV7()),
		PlaceholderStyle: "label",
		ArtifactKey:      "tasks/x/artifact.txt",
		MetadataKey:      "tasks/x/metadata.json",
		Stats: taskDomain.Stats{
			Detected:          2,
			Masked:            1,
			Skipped:           1,
			LowConfidence:     1,
			AverageConfidence: 0.8,
		},
		CreatedAt: time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func quote(s string) string {
	return regexp.QuoteMeta(s)
}
