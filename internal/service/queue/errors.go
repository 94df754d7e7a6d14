package queue

import "errors"

// Common sentinel errors for the queue service.
//
// Error handling principles:
//  1. Expected conditions are sentinel errors callers check with errors.Is
//  2. Race-lost outcomes (store.ErrNotRunning, empty claim) are normal
//     signals, not failures, and are surfaced as such
//  3. The API layer maps these to HTTP status codes
var (
	// ErrInvalidPayload indicates the enqueue payload violates the task
	// invariants (job count bounds, missing job fields). Nothing was
	// persisted. API layer should map this to HTTP 400 Bad Request.
	ErrInvalidPayload = errors.New("invalid task payload")
)
