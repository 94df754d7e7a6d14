package domain

import "time"

// OutcomeStatus is the terminal status of a single job within a batch.
type OutcomeStatus string

const (
	OutcomeStatusProcessed OutcomeStatus = "processed"
	OutcomeStatusFailed    OutcomeStatus = "failed"
)

// AllJobsFailedMessage is the task-level error message written when no job
// in the batch succeeded.
const AllJobsFailedMessage = "All jobs failed in worker run"

// JobOutcome is the per-job result record produced by the page automator.
// Failed jobs carry their error text alongside the succeeded ones so the
// owner can retry just the failures.
type JobOutcome struct {
	JobID            string        `json:"job_id"`
	Status           OutcomeStatus `json:"status"`
	FilledFieldCount int           `json:"filled_field_count"`
	TotalFieldCount  int           `json:"total_field_count"`
	Submitted        bool          `json:"submitted"`
	ScreenshotRef    string        `json:"screenshot_ref,omitempty"`
	Error            string        `json:"error,omitempty"`
	DurationMs       int64         `json:"duration_ms"`
}

// TaskResult is the aggregate written exactly once, atomically with the
// task's terminal transition.
type TaskResult struct {
	Outcomes     []JobOutcome `json:"outcomes"`
	SuccessCount int          `json:"success_count"`
	FailedCount  int          `json:"failed_count"`
}

// RunLogEntry is one append-only progress line on a task. Entries are never
// rewritten; late appends from in-flight writes are allowed even after the
// task reaches a terminal state.
type RunLogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	JobID     string    `json:"job_id,omitempty"`
}

// NewRunLogEntry builds a log entry stamped with the current UTC time.
func NewRunLogEntry(level, message, jobID string) RunLogEntry {
	return RunLogEntry{
		Timestamp: time.Now().UTC(),
		Level:     level,
		Message:   message,
		JobID:     jobID,
	}
}

// AggregateOutcomes reduces per-job outcomes into the task's terminal status,
// its result record, and the task-level error message. The task completes
// when at least one job was processed and fails only when every job failed.
func AggregateOutcomes(outcomes []JobOutcome) (TaskStatus, *TaskResult, string) {
	successCount := 0
	for _, o := range outcomes {
		if o.Status == OutcomeStatusProcessed {
			successCount++
		}
	}

	result := &TaskResult{
		Outcomes:     outcomes,
		SuccessCount: successCount,
		FailedCount:  len(outcomes) - successCount,
	}

	if successCount == 0 {
		return TaskStatusFailed, result, AllJobsFailedMessage
	}

	return TaskStatusCompleted, result, ""
}
