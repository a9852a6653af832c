package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event types written to the outbox for task lifecycle changes.
const (
	EventTaskMasked        = "task.masked"
	EventTaskRestored      = "task.restored"
	EventTaskRestoreFailed = "task.restore_failed"
	EventTaskDeleted       = "task.deleted"
)

// Event is the outbox payload for task lifecycle changes. It carries counts and ids
// only, never span values or key material.
type Event struct {
	TaskID        uuid.UUID      `json:"task_id"`
	KeyID         uuid.UUID      `json:"key_id,omitzero"`
	Format        string         `json:"format,omitempty"`
	Stats         *Stats         `json:"stats,omitempty"`
	MaskedByLabel map[string]int `json:"masked_by_label,omitempty"`
	Error         string         `json:"error,omitempty"`
	OccurredAt    time.Time      `json:"occurred_at"`
}
