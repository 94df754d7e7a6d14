package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

// Possible task status values
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
	TaskStatusCanceled  TaskStatus = "canceled"
)

// Task type constants
const (
	// TaskTypeBulkApply represents a batch of job postings to apply to
	TaskTypeBulkApply = "bulk_apply"
)

// MaxJobsPerTask is the hard upper bound on the number of jobs in one
// task payload. Enforced at enqueue time and never revisited.
const MaxJobsPerTask = 25

// DefaultMaxAttempts is the number of worker runs a task is allowed
// before the lease sweeper moves it to failed instead of re-queueing it.
const DefaultMaxAttempts = 3

// Common validation errors for Task
var (
	ErrEmptyTaskID      = errors.New("task ID cannot be empty")
	ErrEmptyTaskOwnerID = errors.New("task owner ID cannot be empty")
	ErrEmptyTaskType    = errors.New("task type cannot be empty")
	ErrInvalidStatus    = errors.New("invalid task status")
	ErrNoJobs           = errors.New("task payload must contain at least one job")
	ErrTooManyJobs      = errors.New("task payload exceeds the maximum job count")
	ErrInvalidJob       = errors.New("job is missing required fields")
)

// Task is one enqueued unit of bulk-apply work: an ordered batch of job
// postings plus the context a worker needs to fill application forms.
// The payload is immutable once created; everything else is mutated only
// through status-guarded store operations.
type Task struct {
	ID           uuid.UUID     `json:"id"`
	OwnerID      uuid.UUID     `json:"owner_id"`
	TaskType     string        `json:"task_type"`
	Status       TaskStatus    `json:"status"`
	Payload      TaskPayload   `json:"payload"`
	Result       *TaskResult   `json:"result,omitempty"`
	ErrorMessage string        `json:"error_message,omitempty"`
	RunLog       []RunLogEntry `json:"run_log,omitempty"`
	AttemptCount int           `json:"attempt_count"`
	MaxAttempts  int           `json:"max_attempts"`
	WorkerID     string        `json:"worker_id,omitempty"`
	HeartbeatAt  *time.Time    `json:"heartbeat_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	StartedAt    *time.Time    `json:"started_at,omitempty"`
	CompletedAt  *time.Time    `json:"completed_at,omitempty"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// TaskPayload is the immutable body of a task: the ordered job batch plus
// opaque automation context passed through to the page automator.
type TaskPayload struct {
	Jobs    []Job             `json:"jobs"`
	Context AutomationContext `json:"context"`
}

// AutomationContext carries the candidate-side inputs for form filling.
// The queue treats all of it as opaque; only the page automator interprets it.
type AutomationContext struct {
	// Profile is the candidate profile (contact fields, links, work
	// authorization answers) as built by the profile subsystem.
	Profile map[string]string `json:"profile,omitempty"`

	// AnswerMemory holds previously given free-text answers keyed by
	// question text, so repeated application questions reuse them.
	AnswerMemory map[string]string `json:"answer_memory,omitempty"`

	// Source tags where the batch originated (e.g. "job_search", "extension").
	Source string `json:"source,omitempty"`
}

// NewTask creates a pending Task owned by ownerID with the given payload.
// It generates the task ID and sets creation timestamps.
// Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, taskType string, payload TaskPayload) (*Task, error) {
	now := time.Now().UTC()
	t := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		TaskType:    taskType,
		Status:      TaskStatusPending,
		Payload:     payload,
		MaxAttempts: DefaultMaxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}

	return t, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrEmptyTaskID
	}

	if t.OwnerID == uuid.Nil {
		return ErrEmptyTaskOwnerID
	}

	if t.TaskType == "" {
		return ErrEmptyTaskType
	}

	if !IsValidTaskStatus(t.Status) {
		return ErrInvalidStatus
	}

	return t.Payload.Validate()
}

// Validate enforces the enqueue-time payload invariants: a non-empty job
// list bounded by MaxJobsPerTask, each job carrying its identifying fields.
// Job URLs are deliberately not checked here; a malformed URL becomes a
// per-job outcome at processing time.
func (p TaskPayload) Validate() error {
	if len(p.Jobs) == 0 {
		return ErrNoJobs
	}

	if len(p.Jobs) > MaxJobsPerTask {
		return ErrTooManyJobs
	}

	for i := range p.Jobs {
		if err := p.Jobs[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// IsTerminal reports whether the status admits no further transitions.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}

// CanTransitionTo reports whether moving from s to next is a legal step in
// the task state machine. Terminal states admit nothing.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	switch s {
	case TaskStatusPending:
		return next == TaskStatusRunning || next == TaskStatusCanceled
	case TaskStatusRunning:
		// pending is the lease-expiry re-queue path.
		return next == TaskStatusCompleted ||
			next == TaskStatusFailed ||
			next == TaskStatusCanceled ||
			next == TaskStatusPending
	default:
		return false
	}
}

// IsValidTaskStatus checks if the given status is a valid TaskStatus.
func IsValidTaskStatus(status TaskStatus) bool {
	switch status {
	case TaskStatusPending, TaskStatusRunning, TaskStatusCompleted,
		TaskStatusFailed, TaskStatusCanceled:
		return true
	default:
		return false
	}
}
