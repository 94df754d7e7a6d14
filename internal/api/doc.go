// Package api contains the HTTP handlers, request/response models, and
// error mapping for the task queue API. Handlers stay thin: decode,
// validate, call the queue service, map the result. User routes are
// authenticated by JWT, worker routes by shared secret; the split is
// enforced in the router, not here.
package api
