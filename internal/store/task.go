package store

import (
	"context"
	"time"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/google/uuid"
)

// TaskStore defines the persistence contract for tasks. Every mutation is a
// status-guarded conditional update executed as a single statement at the
// storage layer; implementations must never read-then-write, which would
// reintroduce the claim race.
type TaskStore interface {
	// Create persists a new task. The task must already be valid and pending.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its ID.
	// Returns ErrTaskNotFound if no such task exists.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// ListByOwner returns up to limit of the owner's most recent tasks,
	// newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID, limit int) ([]*domain.Task, error)

	// ClaimNext atomically selects the oldest pending task, transitions it to
	// running, and associates it with workerID, setting started_at and
	// heartbeat_at. Under concurrent callers each pending task is handed to
	// at most one of them.
	// Returns ErrNoTaskAvailable when the queue is empty; callers treat that
	// as a normal outcome, not a failure.
	ClaimNext(ctx context.Context, workerID string) (*domain.Task, error)

	// Heartbeat advances the task's liveness timestamp and, if entry is
	// non-nil, appends it to the run log in the same statement.
	// Returns ErrNotRunning if the task is not currently running.
	Heartbeat(ctx context.Context, id uuid.UUID, entry *domain.RunLogEntry) error

	// Finalize transitions a running task to the given terminal status,
	// writing the result record and completed_at atomically with the
	// transition. The result is written at most once: a second call finds the
	// task no longer running.
	// Returns ErrNotRunning if the task is not currently running.
	Finalize(
		ctx context.Context,
		id uuid.UUID,
		status domain.TaskStatus,
		result *domain.TaskResult,
		errorMessage string,
	) error

	// Cancel transitions a pending or running task owned by ownerID to
	// canceled. Returns ErrTaskNotFound if the task does not exist,
	// ErrTaskNotOwned if it belongs to someone else, and ErrNotCancelable
	// if it is already terminal.
	Cancel(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error

	// ExpireLeases sweeps running tasks whose heartbeat is older than the
	// lease timeout: tasks with attempts remaining go back to pending, the
	// rest move to failed. The attempt counter is charged at claim time,
	// not here. Returns how many tasks took each path.
	ExpireLeases(ctx context.Context, leaseTimeout time.Duration) (requeued, failed int, err error)
}
