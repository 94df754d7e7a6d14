package api

import (
	"time"

	"github.com/applypass/applypass-api/internal/domain"
)

// CreateTaskRequest represents the request body for enqueueing a task.
// Job-level invariants (count bounds, required fields) are enforced by the
// queue service; struct tags here catch the shape errors early.
type CreateTaskRequest struct {
	TaskType string                   `json:"task_type" validate:"omitempty,oneof=bulk_apply"`
	Jobs     []domain.Job             `json:"jobs"      validate:"required"`
	Context  domain.AutomationContext `json:"context"`
}

// CancelTaskResponse confirms a cancellation.
type CancelTaskResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// HeartbeatRequest optionally carries one progress log entry to append.
type HeartbeatRequest struct {
	Entry *RunLogEntryRequest `json:"entry,omitempty"`
}

// RunLogEntryRequest is a progress line reported by a worker.
type RunLogEntryRequest struct {
	Level   string `json:"level"   validate:"required,oneof=info warn error"`
	Message string `json:"message" validate:"required"`
	JobID   string `json:"job_id"`
}

// CompleteTaskRequest carries the per-job outcomes of a finished batch.
type CompleteTaskRequest struct {
	Outcomes []domain.JobOutcome `json:"outcomes" validate:"required,min=1"`
}

// FailTaskRequest reports a batch the worker could not finish. Outcomes for
// jobs attempted before the failure are recorded; the rest are implied lost.
type FailTaskRequest struct {
	Outcomes     []domain.JobOutcome `json:"outcomes"`
	ErrorMessage string              `json:"error_message"`
}

// TaskResponse is the user-facing view of a task. The worker assignment is
// exposed so support can tell which instance ran a batch.
type TaskResponse struct {
	ID           string               `json:"id"`
	TaskType     string               `json:"task_type"`
	Status       string               `json:"status"`
	JobCount     int                  `json:"job_count"`
	Result       *domain.TaskResult   `json:"result,omitempty"`
	ErrorMessage string               `json:"error_message,omitempty"`
	RunLog       []domain.RunLogEntry `json:"run_log,omitempty"`
	AttemptCount int                  `json:"attempt_count"`
	MaxAttempts  int                  `json:"max_attempts"`
	WorkerID     string               `json:"worker_id,omitempty"`
	CreatedAt    time.Time            `json:"created_at"`
	StartedAt    *time.Time           `json:"started_at,omitempty"`
	CompletedAt  *time.Time           `json:"completed_at,omitempty"`
	UpdatedAt    time.Time            `json:"updated_at"`
}

// TaskListResponse wraps a page of tasks.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
}

// ClaimedTaskResponse is the worker-facing view of a claimed task. Unlike
// TaskResponse it includes the full payload the worker must process.
type ClaimedTaskResponse struct {
	ID           string             `json:"id"`
	TaskType     string             `json:"task_type"`
	Payload      domain.TaskPayload `json:"payload"`
	AttemptCount int                `json:"attempt_count"`
	MaxAttempts  int                `json:"max_attempts"`
}

// taskToResponse converts a domain.Task to its user-facing DTO.
func taskToResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:           t.ID.String(),
		TaskType:     t.TaskType,
		Status:       string(t.Status),
		JobCount:     len(t.Payload.Jobs),
		Result:       t.Result,
		ErrorMessage: t.ErrorMessage,
		RunLog:       t.RunLog,
		AttemptCount: t.AttemptCount,
		MaxAttempts:  t.MaxAttempts,
		WorkerID:     t.WorkerID,
		CreatedAt:    t.CreatedAt,
		StartedAt:    t.StartedAt,
		CompletedAt:  t.CompletedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

// taskToClaimedResponse converts a domain.Task to its worker-facing DTO.
func taskToClaimedResponse(t *domain.Task) ClaimedTaskResponse {
	return ClaimedTaskResponse{
		ID:           t.ID.String(),
		TaskType:     t.TaskType,
		Payload:      t.Payload,
		AttemptCount: t.AttemptCount,
		MaxAttempts:  t.MaxAttempts,
	}
}
