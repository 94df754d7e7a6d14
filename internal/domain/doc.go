// Package domain contains the core business entities, value objects, and
// domain logic of the task queue: tasks, their job batches, per-job
// outcomes, and the lifecycle state machine. It is independent of any
// specific infrastructure or delivery mechanism.
package domain
