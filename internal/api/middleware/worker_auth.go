package middleware

import (
	"context"
	"net/http"

	"github.com/applypass/applypass-api/internal/api/shared"
	"github.com/applypass/applypass-api/internal/service/auth"
)

// WorkerSecretHeader carries the shared worker secret on worker routes.
const WorkerSecretHeader = "X-Worker-Secret"

// WorkerIDHeader identifies the worker instance; used for claim attribution
// and log correlation.
const WorkerIDHeader = "X-Worker-ID"

// WorkerAuthMiddleware authenticates worker processes by shared secret.
// User JWTs are not accepted on worker routes and vice versa.
type WorkerAuthMiddleware struct {
	verifier auth.WorkerSecretVerifier
}

// NewWorkerAuthMiddleware creates a WorkerAuthMiddleware using the given verifier.
func NewWorkerAuthMiddleware(verifier auth.WorkerSecretVerifier) *WorkerAuthMiddleware {
	return &WorkerAuthMiddleware{verifier: verifier}
}

// Authenticate checks the X-Worker-Secret header and adds the worker ID
// from X-Worker-ID to the request context.
func (m *WorkerAuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.verifier.Verify(r.Header.Get(WorkerSecretHeader)); err != nil {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid worker credentials")
			return
		}

		workerID := r.Header.Get(WorkerIDHeader)
		if workerID == "" {
			shared.RespondWithError(w, r, http.StatusBadRequest, "X-Worker-ID header required")
			return
		}

		ctx := context.WithValue(r.Context(), shared.WorkerIDContextKey, workerID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetWorkerID extracts the worker ID from the request context.
func GetWorkerID(r *http.Request) (string, bool) {
	workerID, ok := r.Context().Value(shared.WorkerIDContextKey).(string)
	return workerID, ok
}
