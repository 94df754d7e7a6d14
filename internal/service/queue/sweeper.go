package queue

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/applypass/applypass-api/internal/store"
)

// LeaseSweeper periodically recovers tasks whose worker stopped
// heartbeating: tasks with attempts left go back to pending, the rest are
// failed. It runs inside the API process; one sweeper per deployment is
// enough, and concurrent sweeps are safe because expiry is a conditional
// update.
type LeaseSweeper struct {
	tasks        store.TaskStore
	leaseTimeout time.Duration
	interval     time.Duration
	logger       *slog.Logger
}

// NewLeaseSweeper creates a sweeper checking every interval for leases
// older than leaseTimeout.
func NewLeaseSweeper(
	tasks store.TaskStore,
	leaseTimeout, interval time.Duration,
	logger *slog.Logger,
) (*LeaseSweeper, error) {
	if tasks == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if leaseTimeout <= 0 || interval <= 0 {
		return nil, errors.New("lease timeout and sweep interval must be positive")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &LeaseSweeper{
		tasks:        tasks,
		leaseTimeout: leaseTimeout,
		interval:     interval,
		logger:       logger.With(slog.String("component", "lease_sweeper")),
	}, nil
}

// Run sweeps on a ticker until ctx is canceled.
func (s *LeaseSweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("lease sweeper started",
		"lease_timeout", s.leaseTimeout,
		"interval", s.interval)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("lease sweeper stopped")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single expiry pass.
func (s *LeaseSweeper) SweepOnce(ctx context.Context) {
	requeued, failed, err := s.tasks.ExpireLeases(ctx, s.leaseTimeout)
	if err != nil {
		s.logger.Error("lease sweep failed", "error", err)
		return
	}
	if requeued > 0 || failed > 0 {
		s.logger.Info("expired worker leases",
			"requeued", requeued,
			"failed", failed)
	}
}
