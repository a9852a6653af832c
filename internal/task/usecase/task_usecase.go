package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	cryptoDomain "github.com/allisson/piimask/internal/crypto/domain"
	cryptoService "github.com/allisson/piimask/internal/crypto/service"
	"github.com/allisson/piimask/internal/database"
	apperrors "github.com/allisson/piimask/internal/errors"
	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	metadataService "github.com/allisson/piimask/internal/metadata/service"
	outboxDomain "github.com/allisson/piimask/internal/outbox/domain"
	selectionDomain "github.com/allisson/piimask/internal/selection/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	"github.com/allisson/piimask/internal/storage"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

const cleanupBatchSize = 100

// Config holds the defaults applied to mask requests.
type Config struct {
	DefaultAlgorithm cryptoDomain.Algorithm
	PlaceholderStyle maskingDomain.PlaceholderStyle
	Selectable       []spanDomain.Label
	Mandatory        []spanDomain.Label
	PreserveRegions  bool
	MaxDocumentSize  int64
}

// taskUseCase implements the TaskUseCase interface.
type taskUseCase struct {
	cfg        Config
	txManager  database.TxManager
	taskRepo   TaskRepository
	outboxRepo OutboxEventRepository
	store      ArtifactStore
	engine     MaskEngine
	codec      RecordCodec
	detector   SpanDetector
	keyWrapper cryptoService.KeyWrapper
	logger     *slog.Logger
	now        func() time.Time
}

// Mask masks a document, stores artifact and metadata, and records the task together
// with a task.masked event in one transaction.
func (t *taskUseCase) Mask(ctx context.Context, input *taskDomain.MaskInput) (*taskDomain.MaskOutput, error) {
	if len(input.Content) == 0 {
		return nil, taskDomain.ErrEmptyDocument
	}
	if t.cfg.MaxDocumentSize > 0 && int64(len(input.Content)) > t.cfg.MaxDocumentSize {
		return nil, apperrors.Wrapf(
			maskingDomain.ErrDocumentTooLarge,
			"%d bytes exceeds %d",
			len(input.Content),
			t.cfg.MaxDocumentSize,
		)
	}

	format := input.Format
	if format == "" {
		detected, err := maskingService.DetectFormat(input.DocumentName, input.Content)
		if err != nil {
			return nil, err
		}
		format = detected
	}
	doc := maskingDomain.Document{Name: input.DocumentName, Format: format, Content: input.Content}

	spans := input.Spans
	if spans == nil && t.detector != nil {
		detected, err := t.detector.Detect(ctx, doc)
		if err != nil {
			return nil, err
		}
		spans = detected
	}

	req := maskingService.MaskRequest{
		Document:        doc,
		Spans:           spans,
		Selection:       t.selection(input),
		Algorithm:       input.Algorithm,
		Style:           input.PlaceholderStyle,
		PreserveRegions: t.cfg.PreserveRegions,
	}
	if req.Algorithm == "" {
		req.Algorithm = t.cfg.DefaultAlgorithm
	}
	if req.Style == "" {
		req.Style = t.cfg.PlaceholderStyle
	}
	if input.PreserveRegions != nil {
		req.PreserveRegions = *input.PreserveRegions
	}

	result, err := t.engine.Mask(ctx, req)
	if err != nil {
		return nil, err
	}
	defer result.Key.Close()

	metadata, err := t.codec.Marshal(result.Record)
	if err != nil {
		return nil, err
	}

	keyFile, err := t.exportKey(ctx, result.Key)
	if err != nil {
		return nil, err
	}

	// Nothing has been written yet; a cancelled request leaves no trace.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact := result.Artifact
	task := &taskDomain.Task{
		ID:               artifact.TaskID,
		DocumentName:     input.DocumentName,
		SourceFormat:     format,
		ArtifactFormat:   artifact.Format,
		Algorithm:        result.Key.Algorithm,
		KeyID:            result.Key.ID,
		PlaceholderStyle: result.Record.PlaceholderStyle,
		ArtifactKey:      storage.ArtifactKey(artifact.TaskID, artifact.Format.Extension()),
		MetadataKey:      storage.MetadataKey(artifact.TaskID),
		Stats:            taskDomain.StatsFromSummary(result.Summary),
		CreatedAt:        result.Record.CreatedAt,
	}

	if err := t.store.Put(ctx, task.ArtifactKey, artifact.Content, mimetype.Detect(artifact.Content).String()); err != nil {
		return nil, err
	}
	if err := t.store.Put(ctx, task.MetadataKey, metadata, metadataService.ContentType); err != nil {
		t.discardBlobs(ctx, task)
		return nil, err
	}

	stats := task.Stats
	event, err := outboxDomain.NewOutboxEvent(taskDomain.EventTaskMasked, taskDomain.Event{
		TaskID:        task.ID,
		KeyID:         task.KeyID,
		Format:        string(format),
		Stats:         &stats,
		MaskedByLabel: labelCounts(result.Summary.MaskedByLabel),
		OccurredAt:    t.now(),
	})
	if err != nil {
		t.discardBlobs(ctx, task)
		return nil, err
	}

	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.taskRepo.Create(txCtx, task); err != nil {
			return err
		}
		return t.outboxRepo.Create(txCtx, event)
	})
	if err != nil {
		t.discardBlobs(ctx, task)
		return nil, err
	}

	return &taskDomain.MaskOutput{
		Task:     task,
		KeyFile:  keyFile,
		Artifact: artifact.Content,
		Metadata: metadata,
		Summary:  result.Summary,
	}, nil
}

// Get retrieves a task by id.
func (t *taskUseCase) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	return t.taskRepo.Get(ctx, taskID)
}

// GetArtifact returns the task and its masked artifact.
func (t *taskUseCase) GetArtifact(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, []byte, error) {
	task, err := t.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	data, err := t.store.Get(ctx, task.ArtifactKey)
	if err != nil {
		return nil, nil, err
	}
	return task, data, nil
}

// GetMetadata returns the stored metadata file of a task.
func (t *taskUseCase) GetMetadata(ctx context.Context, taskID uuid.UUID) ([]byte, error) {
	task, err := t.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return t.store.Get(ctx, task.MetadataKey)
}

// Restore reverses a mask from the restoration triple without touching storage.
func (t *taskUseCase) Restore(
	ctx context.Context,
	input *taskDomain.RestoreInput,
) (*taskDomain.RestoreOutput, error) {
	record, err := t.codec.Unmarshal(input.Metadata)
	if err != nil {
		return nil, err
	}
	return t.restore(ctx, input.Artifact, record, input.KeyFile)
}

// RestoreTask restores a stored task. Failures other than cancellation are recorded
// as task.restore_failed events.
func (t *taskUseCase) RestoreTask(
	ctx context.Context,
	taskID uuid.UUID,
	keyFile string,
) (*taskDomain.RestoreOutput, error) {
	task, err := t.taskRepo.Get(ctx, taskID)
	if err != nil {
		return nil, err
	}

	output, err := t.restoreStored(ctx, task, keyFile)
	if err != nil {
		t.recordRestoreFailure(ctx, task, err)
		return nil, err
	}

	event, err := outboxDomain.NewOutboxEvent(taskDomain.EventTaskRestored, taskDomain.Event{
		TaskID:     task.ID,
		KeyID:      task.KeyID,
		Format:     string(task.SourceFormat),
		OccurredAt: t.now(),
	})
	if err != nil {
		return nil, err
	}

	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.taskRepo.MarkRestored(txCtx, task.ID, event.CreatedAt); err != nil {
			return err
		}
		return t.outboxRepo.Create(txCtx, event)
	})
	if err != nil {
		return nil, err
	}
	return output, nil
}

// Delete removes the task row, records a task.deleted event and then drops the blobs.
func (t *taskUseCase) Delete(ctx context.Context, taskID uuid.UUID) error {
	task, err := t.taskRepo.Get(ctx, taskID)
	if err != nil {
		return err
	}
	return t.deleteTask(ctx, task)
}

// CleanupExpired deletes tasks created more than olderThanDays ago in batches.
func (t *taskUseCase) CleanupExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	if olderThanDays < 0 {
		return 0, taskDomain.ErrInvalidRetention
	}
	before := t.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	if dryRun {
		return t.taskRepo.CountCreatedBefore(ctx, before)
	}

	var deleted int64
	for {
		tasks, err := t.taskRepo.ListCreatedBefore(ctx, before, cleanupBatchSize)
		if err != nil {
			return deleted, err
		}
		for _, task := range tasks {
			err := t.deleteTask(ctx, task)
			if errors.Is(err, taskDomain.ErrTaskNotFound) {
				continue
			}
			if err != nil {
				return deleted, err
			}
			deleted++
		}
		if len(tasks) < cleanupBatchSize {
			return deleted, nil
		}
	}
}

func (t *taskUseCase) restoreStored(
	ctx context.Context,
	task *taskDomain.Task,
	keyFile string,
) (*taskDomain.RestoreOutput, error) {
	artifact, err := t.store.Get(ctx, task.ArtifactKey)
	if err != nil {
		return nil, err
	}
	metadata, err := t.store.Get(ctx, task.MetadataKey)
	if err != nil {
		return nil, err
	}
	record, err := t.codec.Unmarshal(metadata)
	if err != nil {
		return nil, err
	}
	if record.TaskID != task.ID {
		return nil, taskDomain.ErrRecordTaskMismatch
	}
	return t.restore(ctx, artifact, record, keyFile)
}

func (t *taskUseCase) restore(
	ctx context.Context,
	artifact []byte,
	record *maskingDomain.RestorationRecord,
	keyFile string,
) (*taskDomain.RestoreOutput, error) {
	key, err := t.openKey(ctx, keyFile)
	if err != nil {
		return nil, err
	}
	defer key.Close()

	result, err := t.engine.Restore(ctx, maskingService.RestoreRequest{
		Artifact: artifact,
		Record:   record,
		Key:      key,
	})
	if err != nil {
		return nil, err
	}

	return &taskDomain.RestoreOutput{
		TaskID:       record.TaskID,
		DocumentName: record.DocumentName,
		Format:       result.Format,
		Content:      result.Content,
		Restored:     result.Restored,
		Revealed:     len(result.Revealed),
	}, nil
}

func (t *taskUseCase) exportKey(ctx context.Context, key *cryptoDomain.TaskKey) (string, error) {
	return ExportKey(ctx, t.keyWrapper, key)
}

func (t *taskUseCase) openKey(ctx context.Context, content string) (*cryptoDomain.TaskKey, error) {
	return OpenKey(ctx, t.keyWrapper, content)
}

func (t *taskUseCase) selection(input *taskDomain.MaskInput) selectionDomain.Selection {
	return t.cfg.Selection(input.Categories, input.AllCategories)
}

// Selection masks every category when all is set, otherwise the given categories or
// the configured selectable ones when none are given. Mandatory categories always apply.
func (c Config) Selection(categories []spanDomain.Label, all bool) selectionDomain.Selection {
	if all {
		return selectionDomain.SelectAll(c.Mandatory)
	}
	if len(categories) == 0 {
		categories = c.Selectable
	}
	return selectionDomain.NewSelection(categories, c.Mandatory)
}

// ExportKey serializes key as a key file, wrapped with keyWrapper when it is not nil.
func ExportKey(ctx context.Context, keyWrapper cryptoService.KeyWrapper, key *cryptoDomain.TaskKey) (string, error) {
	file := cryptoDomain.NewKeyFile(key)
	defer cryptoDomain.Zero(file.Material)

	if keyWrapper == nil {
		return file.String(), nil
	}
	wrapped, err := keyWrapper.Wrap(ctx, file)
	if err != nil {
		return "", err
	}
	return wrapped.String(), nil
}

// OpenKey parses a key file. Wrapped files need keyWrapper and fail with ErrKeyWrapped
// without one.
func OpenKey(ctx context.Context, keyWrapper cryptoService.KeyWrapper, content string) (*cryptoDomain.TaskKey, error) {
	file, err := cryptoDomain.ParseKeyFile(content)
	if err != nil {
		return nil, err
	}
	if file.Wrapped {
		if keyWrapper == nil {
			return nil, cryptoDomain.ErrKeyWrapped
		}
		if file, err = keyWrapper.Unwrap(ctx, file); err != nil {
			return nil, err
		}
	}
	defer cryptoDomain.Zero(file.Material)
	return file.TaskKey()
}

func (t *taskUseCase) deleteTask(ctx context.Context, task *taskDomain.Task) error {
	event, err := outboxDomain.NewOutboxEvent(taskDomain.EventTaskDeleted, taskDomain.Event{
		TaskID:     task.ID,
		KeyID:      task.KeyID,
		OccurredAt: t.now(),
	})
	if err != nil {
		return err
	}

	err = t.txManager.WithTx(ctx, func(txCtx context.Context) error {
		if err := t.taskRepo.Delete(txCtx, task.ID); err != nil {
			return err
		}
		return t.outboxRepo.Create(txCtx, event)
	})
	if err != nil {
		return err
	}

	t.discardBlobs(ctx, task)
	return nil
}

// discardBlobs removes stored files of a task. Failures leave orphans behind and are
// only logged.
func (t *taskUseCase) discardBlobs(ctx context.Context, task *taskDomain.Task) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range []string{task.ArtifactKey, task.MetadataKey} {
		if err := t.store.Delete(ctx, key); err != nil {
			t.logger.Warn("failed to delete task blob",
				slog.String("task_id", task.ID.String()),
				slog.String("key", key),
				slog.Any("error", err),
			)
		}
	}
}

func (t *taskUseCase) recordRestoreFailure(ctx context.Context, task *taskDomain.Task, cause error) {
	if ctx.Err() != nil {
		return
	}
	event, err := outboxDomain.NewOutboxEvent(taskDomain.EventTaskRestoreFailed, taskDomain.Event{
		TaskID:     task.ID,
		KeyID:      task.KeyID,
		Error:      cause.Error(),
		OccurredAt: t.now(),
	})
	if err == nil {
		err = t.outboxRepo.Create(ctx, event)
	}
	if err != nil {
		t.logger.Error("failed to record restore failure",
			slog.String("task_id", task.ID.String()),
			slog.Any("error", err),
		)
	}
}

func labelCounts(in map[spanDomain.Label]int) map[string]int {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]int, len(in))
	for label, n := range in {
		out[string(label)] = n
	}
	return out
}

// NewTaskUseCase creates a new task use case. detector and keyWrapper may be nil: without
// a detector callers must supply spans, and without a key wrapper key files are raw.
func NewTaskUseCase(
	cfg Config,
	txManager database.TxManager,
	taskRepo TaskRepository,
	outboxRepo OutboxEventRepository,
	store ArtifactStore,
	engine MaskEngine,
	codec RecordCodec,
	detector SpanDetector,
	keyWrapper cryptoService.KeyWrapper,
	logger *slog.Logger,
) TaskUseCase {
	return &taskUseCase{
		cfg:        cfg,
		txManager:  txManager,
		taskRepo:   taskRepo,
		outboxRepo: outboxRepo,
		store:      store,
		engine:     engine,
		codec:      codec,
		detector:   detector,
		keyWrapper: keyWrapper,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}
