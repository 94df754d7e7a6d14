// Package main implements the entry point for the ApplyPass task queue
// API server, which accepts bulk-apply batches from users and hands them
// to worker processes over the worker protocol.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/applypass/applypass-api/internal/config"
	"github.com/applypass/applypass-api/internal/platform/logger"
)

func main() {
	migrateCmd := flag.String("migrate", "",
		"run a migration command instead of the server (up, down, status)")
	flag.Parse()

	cfg, lg, err := initializeApp()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	db, err := setupAppDatabase(cfg, lg)
	if err != nil {
		lg.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}

	if *migrateCmd != "" {
		if err := runMigrations(db, *migrateCmd); err != nil {
			lg.Error("Migration failed", "command", *migrateCmd, "error", err)
			os.Exit(1)
		}
		lg.Info("Migration completed", "command", *migrateCmd)
		return
	}

	// Fresh deployments get the schema applied on boot.
	if err := runMigrations(db, "up"); err != nil {
		lg.Error("Failed to apply migrations", "error", err)
		os.Exit(1)
	}

	app, err := newApplication(cfg, lg, db)
	if err != nil {
		lg.Error("Failed to build application", "error", err)
		os.Exit(1)
	}

	if err := app.Run(context.Background()); err != nil {
		lg.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

// initializeApp loads configuration and sets up structured logging.
func initializeApp() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	lg, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	slog.Info("Server configuration loaded",
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"lease_timeout_seconds", cfg.Lease.TimeoutSeconds)

	if cfg.Worker.Secret == "" {
		slog.Warn("worker secret not configured; worker endpoints will reject all requests")
	}

	return cfg, lg, nil
}
