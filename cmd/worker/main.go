// Package main implements the ApplyPass worker process: it polls the queue
// API for bulk-apply tasks and runs the page automator against each job in
// the batch.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/applypass/applypass-api/internal/config"
	"github.com/applypass/applypass-api/internal/platform/logger"
	"github.com/applypass/applypass-api/internal/worker"
	"github.com/google/uuid"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}

	workerID := makeWorkerID()
	lg = lg.With(slog.String("worker_id", workerID))
	lg.Info("Worker starting",
		"api_base_url", cfg.Worker.APIBaseURL,
		"poll_interval_seconds", cfg.Worker.PollIntervalSeconds,
		"run_once", cfg.Worker.RunOnce)

	client := worker.NewClient(cfg.Worker, workerID)

	// TODO(browser-driver): swap in the Playwright-backed automator once
	// the driver sidecar ships; the simulator keeps the loop testable
	// end to end until then.
	automator := &worker.SimulatedAutomator{}

	runtime, err := worker.NewRuntime(client, automator, cfg.Worker, lg)
	if err != nil {
		lg.Error("Failed to build worker runtime", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := runtime.Run(ctx); err != nil && ctx.Err() == nil {
		lg.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}

	lg.Info("Worker stopped")
}

// makeWorkerID builds a claim-attribution ID unique per process: hostname
// plus a random suffix, so restarts and same-host replicas stay
// distinguishable.
func makeWorkerID() string {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "worker"
	}
	return fmt.Sprintf("%s-%s", hostname, uuid.NewString()[:8])
}
