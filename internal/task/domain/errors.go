// Package domain defines masking tasks: the persisted trace of one mask run that lets
// the artifact and metadata be downloaded and restored later.
package domain

import (
	"github.com/allisson/piimask/internal/errors"
)

// Task-specific error definitions.
var (
	// ErrTaskNotFound indicates the task does not exist or was deleted.
	ErrTaskNotFound = errors.Wrap(errors.ErrNotFound, "task not found")

	// ErrTaskAlreadyExists indicates a second write for the same task id.
	ErrTaskAlreadyExists = errors.Wrap(errors.ErrConflict, "task already exists")
)

// Task input errors.
var (
	// ErrEmptyDocument indicates a mask request without content.
	ErrEmptyDocument = errors.Wrap(errors.ErrInvalidInput, "empty document")

	// ErrRecordTaskMismatch indicates stored metadata that names another task.
	ErrRecordTaskMismatch = errors.Wrap(errors.ErrConflict, "metadata belongs to another task")

	// ErrInvalidRetention indicates a negative retention window.
	ErrInvalidRetention = errors.Wrap(errors.ErrInvalidInput, "retention days must not be negative")
)
