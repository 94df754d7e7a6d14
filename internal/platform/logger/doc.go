// Package logger provides structured logging functionality for the application.
//
// It utilizes Go's standard library log/slog package, emitting JSON in
// production and tint-colored console output for local development,
// with configurable log levels.
package logger
