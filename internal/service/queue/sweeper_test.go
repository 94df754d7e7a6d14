package queue

import (
	"context"
	"testing"
	"time"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLeaseSweeperValidation(t *testing.T) {
	t.Parallel()

	_, err := NewLeaseSweeper(nil, time.Minute, time.Minute, nil)
	assert.Error(t, err)

	_, err = NewLeaseSweeper(newFakeTaskStore(), 0, time.Minute, nil)
	assert.Error(t, err)

	_, err = NewLeaseSweeper(newFakeTaskStore(), time.Minute, 0, nil)
	assert.Error(t, err)
}

func TestSweepOnce(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := newFakeTaskStore()
	svc, err := NewService(st, nil)
	require.NoError(t, err)

	// Two running tasks: one with attempts left, one on its last attempt.
	recoverable, err := svc.Enqueue(ctx, uuid.New(), "", testPayload(1))
	require.NoError(t, err)
	_, err = svc.ClaimNext(ctx, "worker-dead-1")
	require.NoError(t, err)

	exhausted, err := svc.Enqueue(ctx, uuid.New(), "", testPayload(1))
	require.NoError(t, err)
	_, err = svc.ClaimNext(ctx, "worker-dead-2")
	require.NoError(t, err)

	// Backdate both heartbeats past the lease; exhaust one's attempts.
	stale := time.Now().UTC().Add(-time.Hour)
	st.mu.Lock()
	st.tasks[recoverable.ID].HeartbeatAt = &stale
	st.tasks[exhausted.ID].HeartbeatAt = &stale
	st.tasks[exhausted.ID].AttemptCount = st.tasks[exhausted.ID].MaxAttempts
	st.mu.Unlock()

	// A healthy running task must be untouched.
	healthy, err := svc.Enqueue(ctx, uuid.New(), "", testPayload(1))
	require.NoError(t, err)
	_, err = svc.ClaimNext(ctx, "worker-alive")
	require.NoError(t, err)

	sweeper, err := NewLeaseSweeper(st, 5*time.Minute, time.Minute, nil)
	require.NoError(t, err)
	sweeper.SweepOnce(ctx)

	got, err := st.GetByID(ctx, recoverable.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusPending, got.Status)
	assert.Empty(t, got.WorkerID)
	assert.Nil(t, got.HeartbeatAt)

	got, err = st.GetByID(ctx, exhausted.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusFailed, got.Status)
	assert.NotEmpty(t, got.ErrorMessage)

	got, err = st.GetByID(ctx, healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TaskStatusRunning, got.Status)
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	sweeper, err := NewLeaseSweeper(newFakeTaskStore(), time.Minute, 10*time.Millisecond, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop after context cancellation")
	}
}
