// Package worker implements the worker-side runtime: an HTTP client for
// the queue's worker protocol, the PageAutomator port that performs the
// actual form filling, and the polling loop that ties them together.
// One runtime processes one task at a time; horizontal scale comes from
// running more worker processes, and the claim endpoint guarantees no two
// of them receive the same task.
package worker
