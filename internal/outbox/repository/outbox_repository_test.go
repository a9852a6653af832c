package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/allisson/piimask/internal/outbox/domain"
)

var outboxColumnNames = []string{
	"id", "event_type", "payload", "status", "retries", "last_error", "processed_at", "created_at", "updated_at",
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

func pendingEvent() *domain.OutboxEvent {
	created := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	return &domain.OutboxEvent{
		ID:        uuid.Must(uuid.NewV7()),
		EventType: "task.masked",
		Payload:   `{"task_id":"x"}`,
		Status:    domain.OutboxEventStatusPending,
		CreatedAt: created,
		UpdatedAt: created,
	}
}

func TestPostgreSQLOutboxEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		event := pendingEvent()

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(event.ID, event.EventType, event.Payload, "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Create(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Error_Create", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		boom := errors.New("boom")

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).WillReturnError(boom)

		assert.ErrorIs(t, repo.Create(ctx, pendingEvent()), boom)
	})

	t.Run("Success_GetPendingEvents", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		event := pendingEvent()

		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs("pending", 10).
			WillReturnRows(sqlmock.NewRows(outboxColumnNames).AddRow(
				event.ID.String(), event.EventType, event.Payload, "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt,
			))

		events, err := repo.GetPendingEvents(ctx, 10)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event, events[0])
	})

	t.Run("Success_Update", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		event := pendingEvent()
		event.Status = domain.OutboxEventStatusFailed
		event.Retries = 3
		msg := "sink unavailable"
		event.LastError = &msg

		mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
			WithArgs("failed", 3, msg, nil, sqlmock.AnyArg(), event.ID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, event))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_DeleteProcessedBefore", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewPostgreSQLOutboxEventRepository(db)
		cutoff := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_events WHERE status = $1 AND processed_at < $2")).
			WithArgs("processed", cutoff).
			WillReturnResult(sqlmock.NewResult(0, 7))

		n, err := repo.DeleteProcessedBefore(ctx, cutoff)

		require.NoError(t, err)
		assert.Equal(t, int64(7), n)
	})
}

func TestMySQLOutboxEventRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_CreateAndGetPendingEvents", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := pendingEvent()
		idBytes, err := event.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO outbox_events")).
			WithArgs(idBytes, event.EventType, event.Payload, "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE SKIP LOCKED")).
			WithArgs("pending", 5).
			WillReturnRows(sqlmock.NewRows(outboxColumnNames).AddRow(
				idBytes, event.EventType, event.Payload, "pending", 0, nil, nil, event.CreatedAt, event.UpdatedAt,
			))

		require.NoError(t, repo.Create(ctx, event))
		events, err := repo.GetPendingEvents(ctx, 5)

		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, event, events[0])
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Success_UpdateAndDelete", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLOutboxEventRepository(db)
		event := pendingEvent()
		processed := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
		event.Status = domain.OutboxEventStatusProcessed
		event.ProcessedAt = &processed
		idBytes, err := event.ID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectExec(regexp.QuoteMeta("UPDATE outbox_events")).
			WithArgs("processed", 0, nil, processed, sqlmock.AnyArg(), idBytes).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM outbox_events")).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Update(ctx, event))
		n, err := repo.DeleteProcessedBefore(ctx, processed.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
