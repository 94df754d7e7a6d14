package auth

import (
	"crypto/subtle"

	"github.com/applypass/applypass-api/internal/config"
)

// WorkerSecretVerifier authenticates worker processes by shared secret.
type WorkerSecretVerifier interface {
	// Verify checks the presented secret against the configured one.
	// Returns ErrInvalidWorkerSecret on mismatch.
	Verify(presented string) error
}

type workerSecretVerifier struct {
	secret []byte
}

var _ WorkerSecretVerifier = (*workerSecretVerifier)(nil)

// NewWorkerSecretVerifier creates a verifier for the configured worker
// secret. An empty configured secret means every request is rejected;
// there is deliberately no unauthenticated mode for worker endpoints.
func NewWorkerSecretVerifier(cfg config.WorkerConfig) WorkerSecretVerifier {
	return &workerSecretVerifier{secret: []byte(cfg.Secret)}
}

// Verify compares in constant time so response timing does not leak how
// much of the secret matched.
func (v *workerSecretVerifier) Verify(presented string) error {
	if len(v.secret) == 0 || len(presented) == 0 {
		return ErrInvalidWorkerSecret
	}
	if subtle.ConstantTimeCompare(v.secret, []byte(presented)) != 1 {
		return ErrInvalidWorkerSecret
	}
	return nil
}
