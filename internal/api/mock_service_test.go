package api

import (
	"context"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/service/queue"
	"github.com/google/uuid"
)

// fakeQueueService is a scriptable queue.Service for handler tests.
type fakeQueueService struct {
	enqueueFn   func(ctx context.Context, ownerID uuid.UUID, taskType string, payload domain.TaskPayload) (*domain.Task, error)
	listFn      func(ctx context.Context, ownerID uuid.UUID) ([]*domain.Task, error)
	getFn       func(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)
	cancelFn    func(ctx context.Context, ownerID, taskID uuid.UUID) error
	claimFn     func(ctx context.Context, workerID string) (*domain.Task, error)
	heartbeatFn func(ctx context.Context, taskID uuid.UUID, entry *domain.RunLogEntry) error
	completeFn  func(ctx context.Context, taskID uuid.UUID, outcomes []domain.JobOutcome) error
	failFn      func(ctx context.Context, taskID uuid.UUID, outcomes []domain.JobOutcome, errorMessage string) error
}

var _ queue.Service = (*fakeQueueService)(nil)

func (f *fakeQueueService) Enqueue(
	ctx context.Context,
	ownerID uuid.UUID,
	taskType string,
	payload domain.TaskPayload,
) (*domain.Task, error) {
	return f.enqueueFn(ctx, ownerID, taskType, payload)
}

func (f *fakeQueueService) ListTasks(
	ctx context.Context,
	ownerID uuid.UUID,
) ([]*domain.Task, error) {
	return f.listFn(ctx, ownerID)
}

func (f *fakeQueueService) GetTask(
	ctx context.Context,
	ownerID, taskID uuid.UUID,
) (*domain.Task, error) {
	return f.getFn(ctx, ownerID, taskID)
}

func (f *fakeQueueService) Cancel(ctx context.Context, ownerID, taskID uuid.UUID) error {
	return f.cancelFn(ctx, ownerID, taskID)
}

func (f *fakeQueueService) ClaimNext(
	ctx context.Context,
	workerID string,
) (*domain.Task, error) {
	return f.claimFn(ctx, workerID)
}

func (f *fakeQueueService) Heartbeat(
	ctx context.Context,
	taskID uuid.UUID,
	entry *domain.RunLogEntry,
) error {
	return f.heartbeatFn(ctx, taskID, entry)
}

func (f *fakeQueueService) Complete(
	ctx context.Context,
	taskID uuid.UUID,
	outcomes []domain.JobOutcome,
) error {
	return f.completeFn(ctx, taskID, outcomes)
}

func (f *fakeQueueService) Fail(
	ctx context.Context,
	taskID uuid.UUID,
	outcomes []domain.JobOutcome,
	errorMessage string,
) error {
	return f.failFn(ctx, taskID, outcomes, errorMessage)
}
