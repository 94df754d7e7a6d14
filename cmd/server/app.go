package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/applypass/applypass-api/internal/config"
	"github.com/applypass/applypass-api/internal/platform/postgres"
	"github.com/applypass/applypass-api/internal/service/auth"
	"github.com/applypass/applypass-api/internal/service/queue"
	"github.com/applypass/applypass-api/internal/store"
)

// application holds all the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	taskStore store.TaskStore

	jwtService   auth.JWTService
	workerAuth   auth.WorkerSecretVerifier
	queueService queue.Service

	sweeper *queue.LeaseSweeper
}

// newApplication creates a new application instance with all dependencies
// initialized. Configuration, logger, and database connection must be
// established before application initialization.
func newApplication(cfg *config.Config, logger *slog.Logger, db *sql.DB) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}

	app.workerAuth = auth.NewWorkerSecretVerifier(cfg.Worker)

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	app.queueService, err = queue.NewService(app.taskStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create queue service: %w", err)
	}

	app.sweeper, err = queue.NewLeaseSweeper(
		app.taskStore,
		cfg.Lease.Timeout(),
		cfg.Lease.SweepInterval(),
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lease sweeper: %w", err)
	}

	logger.Info("Application initialized successfully")
	return app, nil
}

// Run starts the lease sweeper and the HTTP server, blocking until
// shutdown.
func (app *application) Run(ctx context.Context) error {
	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go app.sweeper.Run(sweepCtx)

	router := app.setupRouter()
	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup handles graceful shutdown of application resources.
func (app *application) cleanup() {
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("Error closing database connection", "error", err)
		}
	}

	app.logger.Info("Application shutdown completed")
}
