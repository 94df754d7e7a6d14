package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/applypass/applypass-api/internal/api"
	"github.com/applypass/applypass-api/internal/config"
	"github.com/applypass/applypass-api/internal/domain"
)

// Runtime is the worker's main loop: claim a task, apply to each job in
// order, heartbeat after every job, finalize, repeat.
type Runtime struct {
	client    APIClient
	automator PageAutomator
	cfg       config.WorkerConfig
	logger    *slog.Logger
}

// NewRuntime creates a Runtime from its two ports and the worker config.
func NewRuntime(
	client APIClient,
	automator PageAutomator,
	cfg config.WorkerConfig,
	logger *slog.Logger,
) (*Runtime, error) {
	if client == nil {
		return nil, errors.New("api client cannot be nil")
	}
	if automator == nil {
		return nil, errors.New("page automator cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runtime{
		client:    client,
		automator: automator,
		cfg:       cfg,
		logger:    logger.With(slog.String("component", "worker_runtime")),
	}, nil
}

// Run polls for tasks until ctx is canceled. With RunOnce set it returns
// after the first claim attempt; with MaxTasksPerRun set it returns after
// that many tasks.
func (r *Runtime) Run(ctx context.Context) error {
	claimed := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		task, err := r.client.ClaimNext(ctx)
		switch {
		case errors.Is(err, ErrNoTask):
			r.logger.Debug("queue empty")
			if r.cfg.RunOnce {
				return nil
			}
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		case err != nil:
			// Claim failures are usually transient (API restart, network
			// blip); pause instead of hot-looping against a down server.
			r.logger.Error("claim failed", "error", err)
			if r.cfg.RunOnce {
				return err
			}
			if err := r.sleep(ctx); err != nil {
				return err
			}
			continue
		}

		claimed++
		r.processTask(ctx, task)

		if r.cfg.RunOnce {
			return nil
		}
		if r.cfg.MaxTasksPerRun > 0 && claimed >= r.cfg.MaxTasksPerRun {
			r.logger.Info("max tasks reached, stopping", "claimed", claimed)
			return nil
		}
	}
}

// processTask applies to every job in the batch. A job failure is recorded
// and the batch continues; only ErrAutomatorFatal or a lost lease stops it.
func (r *Runtime) processTask(ctx context.Context, task *api.ClaimedTaskResponse) {
	logger := r.logger.With(
		"task_id", task.ID,
		"attempt", task.AttemptCount,
		"job_count", len(task.Payload.Jobs))
	logger.Info("processing task")

	total := len(task.Payload.Jobs)
	outcomes := make([]domain.JobOutcome, 0, total)

	// Announce the batch before touching any job: the owner sees the job
	// count in the run log, and a task canceled between claim and now is
	// caught here, before job 1 is applied to.
	announce := domain.NewRunLogEntry("info",
		fmt.Sprintf("starting batch of %d jobs", total), "")
	if err := r.client.Heartbeat(ctx, task.ID, &announce); err != nil {
		if errors.Is(err, ErrTaskNotRunning) {
			logger.Info("task left running state before first job, abandoning batch")
			return
		}
		logger.Warn("announce heartbeat failed", "error", err)
	}

	for i, job := range task.Payload.Jobs {
		if ctx.Err() != nil {
			// Shutdown mid-batch: leave the task running and let the lease
			// sweeper re-queue it for another worker.
			logger.Info("shutdown during batch, abandoning task", "jobs_done", i)
			return
		}

		outcome, fatalErr := r.processJob(ctx, job, task.Payload.Context)
		if fatalErr != nil {
			logger.Error("fatal automation error, failing task",
				"job_id", job.ID, "error", fatalErr)
			outcomes = append(outcomes, outcome)
			if err := r.client.Fail(ctx, task.ID, outcomes, fatalErr.Error()); err != nil {
				logger.Error("failed to report task failure", "error", err)
			}
			return
		}
		outcomes = append(outcomes, outcome)

		entry := domain.NewRunLogEntry(
			entryLevel(outcome),
			fmt.Sprintf("processed job %d of %d", i+1, total),
			job.ID)
		if err := r.client.Heartbeat(ctx, task.ID, &entry); err != nil {
			if errors.Is(err, ErrTaskNotRunning) {
				// Canceled by the owner or swept; the remaining jobs must
				// not be applied to.
				logger.Info("task left running state, abandoning batch", "jobs_done", i+1)
				return
			}
			// A missed heartbeat is survivable as long as the batch
			// finishes within the lease.
			logger.Warn("heartbeat failed", "error", err)
		}
	}

	if err := r.client.Complete(ctx, task.ID, outcomes); err != nil {
		if errors.Is(err, ErrTaskNotRunning) {
			logger.Info("task finalized elsewhere, discarding outcomes")
			return
		}
		logger.Error("failed to complete task", "error", err)
		return
	}

	logger.Info("task completed", "jobs_processed", len(outcomes))
}

// processJob runs one application attempt under the per-job timeout.
// The returned error is non-nil only for batch-fatal failures.
func (r *Runtime) processJob(
	ctx context.Context,
	job domain.Job,
	actx domain.AutomationContext,
) (domain.JobOutcome, error) {
	start := time.Now()

	// A malformed URL fails the job without ever starting a browser.
	if err := job.ValidateURL(); err != nil {
		return domain.JobOutcome{
			JobID:      job.ID,
			Status:     domain.OutcomeStatusFailed,
			Error:      fmt.Sprintf("invalid job URL: %v", err),
			DurationMs: time.Since(start).Milliseconds(),
		}, nil
	}

	jobCtx, cancel := context.WithTimeout(ctx, r.cfg.JobTimeout())
	report, err := r.automator.Apply(jobCtx, job, actx)
	cancel()

	outcome := domain.JobOutcome{
		JobID:            job.ID,
		Status:           domain.OutcomeStatusProcessed,
		FilledFieldCount: report.FilledFieldCount,
		TotalFieldCount:  report.TotalFieldCount,
		Submitted:        report.Submitted,
		ScreenshotRef:    report.ScreenshotRef,
		DurationMs:       time.Since(start).Milliseconds(),
	}
	if err != nil {
		outcome.Status = domain.OutcomeStatusFailed
		outcome.Error = err.Error()
		if errors.Is(err, ErrAutomatorFatal) {
			return outcome, err
		}
	}
	return outcome, nil
}

func (r *Runtime) sleep(ctx context.Context) error {
	timer := time.NewTimer(r.cfg.PollInterval())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func entryLevel(outcome domain.JobOutcome) string {
	if outcome.Status == domain.OutcomeStatusFailed {
		return "warn"
	}
	return "info"
}
