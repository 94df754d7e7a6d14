package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/applypass/applypass-api/internal/api/shared"
	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newWorkerRouter mounts the worker routes with a stub auth layer that
// injects the worker ID, mirroring the production middleware chain.
func newWorkerRouter(h *WorkerHandler, workerID string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := context.WithValue(req.Context(), shared.WorkerIDContextKey, workerID)
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	r.Post("/api/worker/claim-next", h.ClaimNext)
	r.Post("/api/worker/tasks/{id}/heartbeat", h.Heartbeat)
	r.Post("/api/worker/tasks/{id}/complete", h.Complete)
	r.Post("/api/worker/tasks/{id}/fail", h.Fail)
	return r
}

func TestClaimNext(t *testing.T) {
	t.Parallel()

	t.Run("claims_task_with_payload", func(t *testing.T) {
		t.Parallel()

		task := sampleTask(t, uuid.New())
		task.Status = domain.TaskStatusRunning
		task.AttemptCount = 1

		svc := &fakeQueueService{
			claimFn: func(ctx context.Context, workerID string) (*domain.Task, error) {
				assert.Equal(t, "worker-3", workerID)
				return task, nil
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		req := httptest.NewRequest(http.MethodPost, "/api/worker/claim-next", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusOK, w.Code)
		var resp ClaimedTaskResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, task.ID.String(), resp.ID)
		assert.Len(t, resp.Payload.Jobs, 1)
		assert.Equal(t, 1, resp.AttemptCount)
	})

	t.Run("empty_queue_is_204", func(t *testing.T) {
		t.Parallel()

		svc := &fakeQueueService{
			claimFn: func(ctx context.Context, workerID string) (*domain.Task, error) {
				return nil, nil
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		req := httptest.NewRequest(http.MethodPost, "/api/worker/claim-next", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Zero(t, w.Body.Len())
	})
}

func TestHeartbeatEndpoint(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	t.Run("with_log_entry", func(t *testing.T) {
		t.Parallel()

		var gotEntry *domain.RunLogEntry
		svc := &fakeQueueService{
			heartbeatFn: func(ctx context.Context, id uuid.UUID, entry *domain.RunLogEntry) error {
				assert.Equal(t, taskID, id)
				gotEntry = entry
				return nil
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		body := `{"entry":{"level":"info","message":"processed job 2 of 5","job_id":"j2"}}`
		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/heartbeat", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.NotNil(t, gotEntry)
		assert.Equal(t, "j2", gotEntry.JobID)
		assert.False(t, gotEntry.Timestamp.IsZero())
	})

	t.Run("bare_heartbeat", func(t *testing.T) {
		t.Parallel()

		svc := &fakeQueueService{
			heartbeatFn: func(ctx context.Context, id uuid.UUID, entry *domain.RunLogEntry) error {
				assert.Nil(t, entry)
				return nil
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/heartbeat", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
	})

	t.Run("not_running_is_409", func(t *testing.T) {
		t.Parallel()

		svc := &fakeQueueService{
			heartbeatFn: func(ctx context.Context, id uuid.UUID, entry *domain.RunLogEntry) error {
				return store.ErrNotRunning
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/heartbeat", strings.NewReader(`{}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("invalid_entry_level", func(t *testing.T) {
		t.Parallel()

		router := newWorkerRouter(NewWorkerHandler(&fakeQueueService{}), "worker-3")

		body := `{"entry":{"level":"loud","message":"x"}}`
		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/heartbeat", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCompleteEndpoint(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	t.Run("records_outcomes", func(t *testing.T) {
		t.Parallel()

		var gotOutcomes []domain.JobOutcome
		svc := &fakeQueueService{
			completeFn: func(ctx context.Context, id uuid.UUID, outcomes []domain.JobOutcome) error {
				gotOutcomes = outcomes
				return nil
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		body := `{"outcomes":[
			{"job_id":"j1","status":"processed","filled_field_count":9,"total_field_count":9,"submitted":true,"duration_ms":42000},
			{"job_id":"j2","status":"failed","error":"captcha wall"}]}`
		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/complete", strings.NewReader(body))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		require.Len(t, gotOutcomes, 2)
		assert.Equal(t, domain.OutcomeStatusFailed, gotOutcomes[1].Status)
	})

	t.Run("empty_outcomes_rejected", func(t *testing.T) {
		t.Parallel()

		router := newWorkerRouter(NewWorkerHandler(&fakeQueueService{}), "worker-3")

		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/complete",
			strings.NewReader(`{"outcomes":[]}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("race_lost_is_409", func(t *testing.T) {
		t.Parallel()

		svc := &fakeQueueService{
			completeFn: func(ctx context.Context, id uuid.UUID, outcomes []domain.JobOutcome) error {
				return store.ErrNotRunning
			},
		}
		router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

		req := httptest.NewRequest(http.MethodPost,
			"/api/worker/tasks/"+taskID.String()+"/complete",
			strings.NewReader(`{"outcomes":[{"job_id":"j1","status":"processed"}]}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})
}

func TestFailEndpoint(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()

	var gotMessage string
	svc := &fakeQueueService{
		failFn: func(ctx context.Context, id uuid.UUID, outcomes []domain.JobOutcome, errorMessage string) error {
			gotMessage = errorMessage
			return nil
		},
	}
	router := newWorkerRouter(NewWorkerHandler(svc), "worker-3")

	body := `{"outcomes":[{"job_id":"j1","status":"processed"}],"error_message":"browser crashed"}`
	req := httptest.NewRequest(http.MethodPost,
		"/api/worker/tasks/"+taskID.String()+"/fail", strings.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "browser crashed", gotMessage)
}
