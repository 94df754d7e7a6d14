// Package postgres provides the PostgreSQL implementation of the task store
// interface defined in the internal/store package. It owns the conditional
// UPDATE discipline that keeps the task state machine correct under
// concurrent workers, and the mapping between domain entities and rows.
package postgres
