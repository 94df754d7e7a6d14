package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	ErrNotFound = errors.New("entity not found")

	// ErrTaskNotFound indicates that the requested task does not exist in the store.
	ErrTaskNotFound = fmt.Errorf("%w: task", ErrNotFound)

	// ErrNoTaskAvailable is returned by ClaimNext when no pending task exists.
	// This is a normal concurrent-queue outcome, not a failure: a worker that
	// races for a task and loses sees this rather than an error.
	ErrNoTaskAvailable = errors.New("no pending task available")

	// ErrNotRunning is returned when a heartbeat or finalize targets a task
	// that is not currently running, e.g. because a cancellation won the race.
	ErrNotRunning = errors.New("task is not running")

	// ErrNotCancelable is returned when a cancel targets a task already in a
	// terminal state. The terminal result is never mutated.
	ErrNotCancelable = errors.New("task is not cancelable")

	// ErrTaskNotOwned is returned when a task exists but belongs to a
	// different owner than the caller.
	ErrTaskNotOwned = errors.New("task is owned by another user")

	// ErrInvalidEntity is returned when an entity fails validation before
	// being stored. Check the wrapped error for specific validation details.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsConcurrencySignal reports whether the error is one of the normal
// race-lost outcomes a caller should handle gracefully rather than treat
// as an application failure.
func IsConcurrencySignal(err error) bool {
	return errors.Is(err, ErrNoTaskAvailable) ||
		errors.Is(err, ErrNotRunning) ||
		errors.Is(err, ErrNotCancelable)
}
