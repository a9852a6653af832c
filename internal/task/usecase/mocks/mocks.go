// Package mocks provides testify mocks for the task use case and its dependencies.
package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	maskingDomain "github.com/allisson/piimask/internal/masking/domain"
	maskingService "github.com/allisson/piimask/internal/masking/service"
	outboxDomain "github.com/allisson/piimask/internal/outbox/domain"
	spanDomain "github.com/allisson/piimask/internal/span/domain"
	taskDomain "github.com/allisson/piimask/internal/task/domain"
)

// MockTxManager runs the callback inline unless an error is configured.
type MockTxManager struct {
	mock.Mock
}

// WithTx mocks the WithTx method of TxManager.
func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}

// MockTaskRepository is a mock implementation of TaskRepository.
type MockTaskRepository struct {
	mock.Mock
}

// Create mocks the Create method of TaskRepository.
func (m *MockTaskRepository) Create(ctx context.Context, task *taskDomain.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// Get mocks the Get method of TaskRepository.
func (m *MockTaskRepository) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

// MarkRestored mocks the MarkRestored method of TaskRepository.
func (m *MockTaskRepository) MarkRestored(ctx context.Context, taskID uuid.UUID, at time.Time) error {
	args := m.Called(ctx, taskID, at)
	return args.Error(0)
}

// Delete mocks the Delete method of TaskRepository.
func (m *MockTaskRepository) Delete(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

// ListCreatedBefore mocks the ListCreatedBefore method of TaskRepository.
func (m *MockTaskRepository) ListCreatedBefore(
	ctx context.Context,
	before time.Time,
	limit int,
) ([]*taskDomain.Task, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*taskDomain.Task), args.Error(1)
}

// CountCreatedBefore mocks the CountCreatedBefore method of TaskRepository.
func (m *MockTaskRepository) CountCreatedBefore(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	return args.Get(0).(int64), args.Error(1)
}

// MockOutboxEventRepository is a mock implementation of OutboxEventRepository.
type MockOutboxEventRepository struct {
	mock.Mock
}

// Create mocks the Create method of OutboxEventRepository.
func (m *MockOutboxEventRepository) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockArtifactStore is a mock implementation of ArtifactStore.
type MockArtifactStore struct {
	mock.Mock
}

// Put mocks the Put method of ArtifactStore.
func (m *MockArtifactStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	args := m.Called(ctx, key, data, contentType)
	return args.Error(0)
}

// Get mocks the Get method of ArtifactStore.
func (m *MockArtifactStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Delete mocks the Delete method of ArtifactStore.
func (m *MockArtifactStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// MockSpanDetector is a mock implementation of SpanDetector.
type MockSpanDetector struct {
	mock.Mock
}

// Detect mocks the Detect method of SpanDetector.
func (m *MockSpanDetector) Detect(ctx context.Context, doc maskingDomain.Document) ([]spanDomain.Span, error) {
	args := m.Called(ctx, doc)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]spanDomain.Span), args.Error(1)
}

// MockMaskEngine is a mock implementation of MaskEngine.
type MockMaskEngine struct {
	mock.Mock
}

// Mask mocks the Mask method of MaskEngine.
func (m *MockMaskEngine) Mask(
	ctx context.Context,
	req maskingService.MaskRequest,
) (*maskingService.MaskResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maskingService.MaskResult), args.Error(1)
}

// Restore mocks the Restore method of MaskEngine.
func (m *MockMaskEngine) Restore(
	ctx context.Context,
	req maskingService.RestoreRequest,
) (*maskingService.RestoreResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*maskingService.RestoreResult), args.Error(1)
}

// MockTaskUseCase is a mock implementation of TaskUseCase.
type MockTaskUseCase struct {
	mock.Mock
}

// Mask mocks the Mask method of TaskUseCase.
func (m *MockTaskUseCase) Mask(ctx context.Context, input *taskDomain.MaskInput) (*taskDomain.MaskOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.MaskOutput), args.Error(1)
}

// Get mocks the Get method of TaskUseCase.
func (m *MockTaskUseCase) Get(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.Task), args.Error(1)
}

// GetArtifact mocks the GetArtifact method of TaskUseCase.
func (m *MockTaskUseCase) GetArtifact(ctx context.Context, taskID uuid.UUID) (*taskDomain.Task, []byte, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(*taskDomain.Task), args.Get(1).([]byte), args.Error(2)
}

// GetMetadata mocks the GetMetadata method of TaskUseCase.
func (m *MockTaskUseCase) GetMetadata(ctx context.Context, taskID uuid.UUID) ([]byte, error) {
	args := m.Called(ctx, taskID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// Restore mocks the Restore method of TaskUseCase.
func (m *MockTaskUseCase) Restore(
	ctx context.Context,
	input *taskDomain.RestoreInput,
) (*taskDomain.RestoreOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.RestoreOutput), args.Error(1)
}

// RestoreTask mocks the RestoreTask method of TaskUseCase.
func (m *MockTaskUseCase) RestoreTask(
	ctx context.Context,
	taskID uuid.UUID,
	keyFile string,
) (*taskDomain.RestoreOutput, error) {
	args := m.Called(ctx, taskID, keyFile)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*taskDomain.RestoreOutput), args.Error(1)
}

// Delete mocks the Delete method of TaskUseCase.
func (m *MockTaskUseCase) Delete(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

// CleanupExpired mocks the CleanupExpired method of TaskUseCase.
func (m *MockTaskUseCase) CleanupExpired(ctx context.Context, olderThanDays int, dryRun bool) (int64, error) {
	args := m.Called(ctx, olderThanDays, dryRun)
	return args.Get(0).(int64), args.Error(1)
}
