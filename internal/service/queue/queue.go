// Package queue implements the application-level operations of the task
// queue: enqueue, list, cancel on the user side; claim, heartbeat, and
// finalize on the worker side. It owns payload validation and result
// aggregation, and delegates all state transitions to the status-guarded
// task store so every path shares the same conditional-update discipline.
package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/platform/logger"
	"github.com/applypass/applypass-api/internal/store"
	"github.com/google/uuid"
)

// MaxListTasks caps how many tasks the list operation returns.
const MaxListTasks = 50

// Service exposes the seven queue operations.
type Service interface {
	// Enqueue validates and persists a new pending task for ownerID.
	// Returns ErrInvalidPayload if the payload violates the enqueue
	// invariants; nothing is persisted in that case.
	Enqueue(
		ctx context.Context,
		ownerID uuid.UUID,
		taskType string,
		payload domain.TaskPayload,
	) (*domain.Task, error)

	// ListTasks returns up to MaxListTasks of the owner's most recent tasks.
	ListTasks(ctx context.Context, ownerID uuid.UUID) ([]*domain.Task, error)

	// GetTask returns one task, enforcing ownership.
	GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error)

	// Cancel moves a pending or running task to canceled on behalf of its
	// owner. Cancellation of a task a worker currently holds is best-effort:
	// the worker discovers it on its next heartbeat or finalize.
	Cancel(ctx context.Context, ownerID, taskID uuid.UUID) error

	// ClaimNext atomically claims the oldest pending task for workerID.
	// Returns (nil, nil) when the queue is empty; that is a normal outcome.
	ClaimNext(ctx context.Context, workerID string) (*domain.Task, error)

	// Heartbeat extends the lease on a running task and optionally appends
	// a run-log entry. Returns store.ErrNotRunning if the task left the
	// running state, which tells the worker to stop the batch.
	Heartbeat(ctx context.Context, taskID uuid.UUID, entry *domain.RunLogEntry) error

	// Complete reduces the per-job outcomes to a terminal status and result:
	// completed when at least one job was processed, failed when none were.
	Complete(ctx context.Context, taskID uuid.UUID, outcomes []domain.JobOutcome) error

	// Fail finalizes the task as failed regardless of outcome counts, with
	// an explicit error message. Partial outcomes are still recorded so the
	// owner sees which jobs were attempted.
	Fail(
		ctx context.Context,
		taskID uuid.UUID,
		outcomes []domain.JobOutcome,
		errorMessage string,
	) error
}

// service is the store-backed Service implementation.
type service struct {
	tasks  store.TaskStore
	logger *slog.Logger
}

// NewService creates a queue Service backed by the given task store.
func NewService(tasks store.TaskStore, l *slog.Logger) (Service, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if l == nil {
		l = slog.Default()
	}
	return &service{
		tasks:  tasks,
		logger: l.With(slog.String("component", "queue_service")),
	}, nil
}

func (s *service) Enqueue(
	ctx context.Context,
	ownerID uuid.UUID,
	taskType string,
	payload domain.TaskPayload,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if taskType == "" {
		taskType = domain.TaskTypeBulkApply
	}

	task, err := domain.NewTask(ownerID, taskType, payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		if errors.Is(err, store.ErrInvalidEntity) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	log.Info("task enqueued",
		"task_id", task.ID,
		"owner_id", ownerID,
		"task_type", taskType,
		"job_count", len(payload.Jobs))

	return task, nil
}

func (s *service) ListTasks(ctx context.Context, ownerID uuid.UUID) ([]*domain.Task, error) {
	tasks, err := s.tasks.ListByOwner(ctx, ownerID, MaxListTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

func (s *service) GetTask(ctx context.Context, ownerID, taskID uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if task.OwnerID != ownerID {
		// Do not reveal other users' task IDs; an unowned task looks absent.
		return nil, store.ErrTaskNotFound
	}
	return task, nil
}

func (s *service) Cancel(ctx context.Context, ownerID, taskID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.tasks.Cancel(ctx, taskID, ownerID); err != nil {
		return err
	}

	log.Info("task canceled", "task_id", taskID, "owner_id", ownerID)
	return nil
}

func (s *service) ClaimNext(ctx context.Context, workerID string) (*domain.Task, error) {
	if workerID == "" {
		return nil, errors.New("worker ID cannot be empty")
	}

	task, err := s.tasks.ClaimNext(ctx, workerID)
	if err != nil {
		if errors.Is(err, store.ErrNoTaskAvailable) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	return task, nil
}

func (s *service) Heartbeat(
	ctx context.Context,
	taskID uuid.UUID,
	entry *domain.RunLogEntry,
) error {
	return s.tasks.Heartbeat(ctx, taskID, entry)
}

func (s *service) Complete(
	ctx context.Context,
	taskID uuid.UUID,
	outcomes []domain.JobOutcome,
) error {
	status, result, errMsg := domain.AggregateOutcomes(outcomes)
	return s.tasks.Finalize(ctx, taskID, status, result, errMsg)
}

func (s *service) Fail(
	ctx context.Context,
	taskID uuid.UUID,
	outcomes []domain.JobOutcome,
	errorMessage string,
) error {
	if errorMessage == "" {
		errorMessage = domain.AllJobsFailedMessage
	}

	_, result, _ := domain.AggregateOutcomes(outcomes)
	return s.tasks.Finalize(ctx, taskID, domain.TaskStatusFailed, result, errorMessage)
}
