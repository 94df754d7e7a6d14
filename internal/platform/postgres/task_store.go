package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/applypass/applypass-api/internal/domain"
	"github.com/applypass/applypass-api/internal/platform/logger"
	"github.com/applypass/applypass-api/internal/store"
	"github.com/google/uuid"
)

// taskColumns is the column list every task read shares, in scan order.
const taskColumns = `id, owner_id, task_type, status, payload, result, error_message,
	run_log, attempt_count, max_attempts, worker_id, heartbeat_at,
	created_at, started_at, completed_at, updated_at`

// PostgresTaskStore implements the store.TaskStore interface using PostgreSQL.
// Every mutation is a single conditional UPDATE guarded by the expected
// status, so concurrent claim/heartbeat/finalize/cancel paths can never both
// succeed against the same row in an order that violates the state machine.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// Ensure PostgresTaskStore implements store.TaskStore.
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// NewPostgresTaskStore creates a new PostgresTaskStore.
// If logger is nil, the default logger is used.
func NewPostgresTaskStore(db store.DBTX, l *slog.Logger) *PostgresTaskStore {
	if l == nil {
		l = slog.Default()
	}
	return &PostgresTaskStore{
		db:     db,
		logger: l.With(slog.String("component", "task_store")),
	}
}

// Create persists a new task to the database.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	payload, err := json.Marshal(task.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal task payload: %w", err)
	}

	query := `
		INSERT INTO tasks (id, owner_id, task_type, status, payload, error_message,
			run_log, attempt_count, max_attempts, worker_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, '', '[]'::jsonb, $6, $7, '', $8, $8)
	`

	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.OwnerID,
		task.TaskType,
		task.Status,
		payload,
		task.AttemptCount,
		task.MaxAttempts,
		task.CreatedAt,
	)
	if err != nil {
		log.Error("failed to save task",
			"task_id", task.ID,
			"task_type", task.TaskType,
			"error", err)
		return MapError(err)
	}

	return nil
}

// GetByID retrieves a task by its ID.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// ListByOwner returns up to limit of the owner's most recent tasks, newest first.
func (s *PostgresTaskStore) ListByOwner(
	ctx context.Context,
	ownerID uuid.UUID,
	limit int,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE owner_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := s.db.QueryContext(ctx, query, ownerID, limit)
	if err != nil {
		log.Error("failed to list tasks by owner", "owner_id", ownerID, "error", err)
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return tasks, nil
}

// ClaimNext atomically hands the oldest pending task to workerID.
//
// The claim is one statement: the inner SELECT picks the oldest pending row
// with FOR UPDATE SKIP LOCKED so concurrent claimants never block on or
// observe the same row, and the UPDATE flips it to running in the same
// operation. There is no separate read followed by a write anywhere on this
// path.
func (s *PostgresTaskStore) ClaimNext(
	ctx context.Context,
	workerID string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE tasks
		SET status = $1,
			worker_id = $2,
			started_at = NOW(),
			heartbeat_at = NOW(),
			attempt_count = attempt_count + 1,
			updated_at = NOW()
		WHERE id = (
			SELECT id FROM tasks
			WHERE status = $3
			ORDER BY created_at ASC
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING ` + taskColumns

	task, err := scanTask(s.db.QueryRowContext(ctx, query,
		domain.TaskStatusRunning, workerID, domain.TaskStatusPending))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNoTaskAvailable
		}
		log.Error("failed to claim task", "worker_id", workerID, "error", err)
		return nil, fmt.Errorf("failed to claim task: %w", err)
	}

	log.Info("task claimed",
		"task_id", task.ID,
		"worker_id", workerID,
		"job_count", len(task.Payload.Jobs),
		"attempt", task.AttemptCount)

	return task, nil
}

// Heartbeat advances heartbeat_at and optionally appends a run-log entry,
// guarded by the running status.
func (s *PostgresTaskStore) Heartbeat(
	ctx context.Context,
	id uuid.UUID,
	entry *domain.RunLogEntry,
) error {
	var (
		result sql.Result
		err    error
	)

	if entry != nil {
		entryJSON, merr := json.Marshal([]domain.RunLogEntry{*entry})
		if merr != nil {
			return fmt.Errorf("failed to marshal run log entry: %w", merr)
		}

		query := `
			UPDATE tasks
			SET heartbeat_at = NOW(),
				run_log = run_log || $2::jsonb,
				updated_at = NOW()
			WHERE id = $1 AND status = $3
		`
		result, err = s.db.ExecContext(ctx, query, id, entryJSON, domain.TaskStatusRunning)
	} else {
		query := `
			UPDATE tasks
			SET heartbeat_at = NOW(), updated_at = NOW()
			WHERE id = $1 AND status = $2
		`
		result, err = s.db.ExecContext(ctx, query, id, domain.TaskStatusRunning)
	}

	if err != nil {
		return fmt.Errorf("failed to update task heartbeat: %w", err)
	}

	return checkRunningGuard(result)
}

// Finalize writes the terminal status and result atomically, guarded by the
// running status. A concurrent cancellation wins: the guard fails and the
// result is discarded.
func (s *PostgresTaskStore) Finalize(
	ctx context.Context,
	id uuid.UUID,
	status domain.TaskStatus,
	result *domain.TaskResult,
	errorMessage string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if status != domain.TaskStatusCompleted && status != domain.TaskStatusFailed {
		return fmt.Errorf("%w: finalize to %q", domain.ErrIllegalTransition, status)
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}

	query := `
		UPDATE tasks
		SET status = $2,
			result = $3,
			error_message = $4,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE id = $1 AND status = $5
	`

	res, err := s.db.ExecContext(ctx, query,
		id, status, resultJSON, errorMessage, domain.TaskStatusRunning)
	if err != nil {
		log.Error("failed to finalize task", "task_id", id, "status", status, "error", err)
		return fmt.Errorf("failed to finalize task: %w", err)
	}

	if err := checkRunningGuard(res); err != nil {
		return err
	}

	log.Info("task finalized", "task_id", id, "status", status)
	return nil
}

// Cancel transitions a pending or running task to canceled on behalf of its
// owner. The update itself is atomic; the follow-up read only diagnoses why
// a failed cancel failed.
func (s *PostgresTaskStore) Cancel(ctx context.Context, id uuid.UUID, ownerID uuid.UUID) error {
	query := `
		UPDATE tasks
		SET status = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND owner_id = $2 AND status IN ($4, $5)
	`

	res, err := s.db.ExecContext(ctx, query,
		id, ownerID, domain.TaskStatusCanceled,
		domain.TaskStatusPending, domain.TaskStatusRunning)
	if err != nil {
		return fmt.Errorf("failed to cancel task: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	task, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if task.OwnerID != ownerID {
		return store.ErrTaskNotOwned
	}
	return store.ErrNotCancelable
}

// ExpireLeases recovers running tasks whose heartbeat is older than the lease
// timeout. Tasks with attempts remaining go back to pending for another
// worker; the rest are failed. attempt_count was already incremented at claim
// time, so it counts started runs.
func (s *PostgresTaskStore) ExpireLeases(
	ctx context.Context,
	leaseTimeout time.Duration,
) (requeued, failed int, err error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	cutoff := time.Now().UTC().Add(-leaseTimeout)

	requeueQuery := `
		UPDATE tasks
		SET status = $1,
			worker_id = '',
			started_at = NULL,
			heartbeat_at = NULL,
			updated_at = NOW()
		WHERE status = $2 AND heartbeat_at < $3 AND attempt_count < max_attempts
	`

	res, err := s.db.ExecContext(ctx, requeueQuery,
		domain.TaskStatusPending, domain.TaskStatusRunning, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to re-queue expired leases: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	requeued = int(n)

	failQuery := `
		UPDATE tasks
		SET status = $1,
			error_message = $2,
			completed_at = NOW(),
			updated_at = NOW()
		WHERE status = $3 AND heartbeat_at < $4 AND attempt_count >= max_attempts
	`

	res, err = s.db.ExecContext(ctx, failQuery,
		domain.TaskStatusFailed,
		"Worker lease expired with no attempts remaining",
		domain.TaskStatusRunning, cutoff)
	if err != nil {
		return requeued, 0, fmt.Errorf("failed to fail expired leases: %w", err)
	}
	n, err = res.RowsAffected()
	if err != nil {
		return requeued, 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	failed = int(n)

	if requeued > 0 || failed > 0 {
		log.Info("expired stale leases", "requeued", requeued, "failed", failed)
	}

	return requeued, failed, nil
}

// checkRunningGuard converts a zero-row conditional update into ErrNotRunning.
func checkRunningGuard(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return store.ErrNotRunning
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanTask maps one tasks row onto a domain.Task.
func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task         domain.Task
		payloadJSON  []byte
		resultJSON   []byte
		runLogJSON   []byte
		errorMessage sql.NullString
		workerID     sql.NullString
		heartbeatAt  sql.NullTime
		startedAt    sql.NullTime
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.TaskType,
		&task.Status,
		&payloadJSON,
		&resultJSON,
		&errorMessage,
		&runLogJSON,
		&task.AttemptCount,
		&task.MaxAttempts,
		&workerID,
		&heartbeatAt,
		&task.CreatedAt,
		&startedAt,
		&completedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payloadJSON, &task.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	if len(resultJSON) > 0 {
		task.Result = &domain.TaskResult{}
		if err := json.Unmarshal(resultJSON, task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
		}
	}

	if len(runLogJSON) > 0 {
		if err := json.Unmarshal(runLogJSON, &task.RunLog); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task run log: %w", err)
		}
	}

	task.ErrorMessage = errorMessage.String
	task.WorkerID = workerID.String
	if heartbeatAt.Valid {
		t := heartbeatAt.Time.UTC()
		task.HeartbeatAt = &t
	}
	if startedAt.Valid {
		t := startedAt.Time.UTC()
		task.StartedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		task.CompletedAt = &t
	}

	return &task, nil
}
