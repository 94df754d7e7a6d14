package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// JWTService validates the access tokens the main application mints for its
// users, and can mint them itself for testing and tooling.
type JWTService interface {
	// GenerateToken creates a signed JWT access token for the given user.
	GenerateToken(ctx context.Context, userID uuid.UUID) (string, error)

	// ValidateToken validates an access token string and extracts the claims.
	// Returns ErrExpiredToken, ErrInvalidToken, or ErrWrongTokenType on
	// failure so callers can distinguish the cases.
	ValidateToken(ctx context.Context, tokenString string) (*Claims, error)
}

// Claims is the validated claim set extracted from an access token.
type Claims struct {
	// UserID is the unique identifier of the user the token was issued for.
	UserID uuid.UUID `json:"uid,omitempty"`

	// TokenType indicates the purpose of the token. This service only
	// accepts "access" tokens.
	TokenType string `json:"type,omitempty"`

	// Standard registered JWT claims
	Subject   string    `json:"sub,omitempty"`
	IssuedAt  time.Time `json:"iat,omitempty"`
	ExpiresAt time.Time `json:"exp,omitempty"`
	ID        string    `json:"jti,omitempty"`
}
