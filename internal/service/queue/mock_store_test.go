package queue

import (
	"context"
	"sync"
	"time"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/store"
	"github.com/google/uuid"
)

// fakeTaskStore is an in-memory TaskStore honoring the same status-guard
// semantics as the Postgres implementation, so service tests exercise the
// real race-lost paths.
type fakeTaskStore struct {
	mu        sync.Mutex
	tasks     map[uuid.UUID]*domain.Task
	order     []uuid.UUID
	createErr error
}

var _ store.TaskStore = (*fakeTaskStore)(nil)

func newFakeTaskStore() *fakeTaskStore {
	return &fakeTaskStore{tasks: make(map[uuid.UUID]*domain.Task)}
}

func (f *fakeTaskStore) Create(_ context.Context, task *domain.Task) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}

	cp := *task
	f.tasks[task.ID] = &cp
	f.order = append(f.order, task.ID)
	return nil
}

func (f *fakeTaskStore) GetByID(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) ListByOwner(
	_ context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*domain.Task
	// Newest first: walk insertion order backwards.
	for i := len(f.order) - 1; i >= 0 && len(out) < limit; i-- {
		t := f.tasks[f.order[i]]
		if t.OwnerID == ownerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ClaimNext(_ context.Context, workerID string) (*domain.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, id := range f.order {
		t := f.tasks[id]
		if t.Status != domain.TaskStatusPending {
			continue
		}

		now := time.Now().UTC()
		t.Status = domain.TaskStatusRunning
		t.WorkerID = workerID
		t.StartedAt = &now
		t.HeartbeatAt = &now
		t.AttemptCount++
		t.UpdatedAt = now

		cp := *t
		return &cp, nil
	}

	return nil, store.ErrNoTaskAvailable
}

func (f *fakeTaskStore) Heartbeat(
	_ context.Context,
	id uuid.UUID,
	entry *domain.RunLogEntry,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok || t.Status != domain.TaskStatusRunning {
		return store.ErrNotRunning
	}

	now := time.Now().UTC()
	t.HeartbeatAt = &now
	t.UpdatedAt = now
	if entry != nil {
		t.RunLog = append(t.RunLog, *entry)
	}
	return nil
}

func (f *fakeTaskStore) Finalize(
	_ context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	result *domain.TaskResult,
	errorMessage string,
) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok || t.Status != domain.TaskStatusRunning {
		return store.ErrNotRunning
	}

	now := time.Now().UTC()
	t.Status = status
	t.Result = result
	t.ErrorMessage = errorMessage
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

func (f *fakeTaskStore) Cancel(_ context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	if t.OwnerID != ownerID {
		return store.ErrTaskNotOwned
	}
	if t.Status != domain.TaskStatusPending && t.Status != domain.TaskStatusRunning {
		return store.ErrNotCancelable
	}

	now := time.Now().UTC()
	t.Status = domain.TaskStatusCanceled
	t.CompletedAt = &now
	t.UpdatedAt = now
	return nil
}

func (f *fakeTaskStore) ExpireLeases(
	_ context.Context,
	leaseTimeout time.Duration,
) (requeued, failed int, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	cutoff := time.Now().UTC().Add(-leaseTimeout)
	for _, t := range f.tasks {
		if t.Status != domain.TaskStatusRunning || t.HeartbeatAt == nil ||
			!t.HeartbeatAt.Before(cutoff) {
			continue
		}

		if t.AttemptCount < t.MaxAttempts {
			t.Status = domain.TaskStatusPending
			t.WorkerID = ""
			t.StartedAt = nil
			t.HeartbeatAt = nil
			requeued++
		} else {
			t.Status = domain.TaskStatusFailed
			t.ErrorMessage = "Worker lease expired with no attempts remaining"
			failed++
		}
	}
	return requeued, failed, nil
}
