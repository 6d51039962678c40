package auth

import (
	"context"

	"github.com/golang-jwt/jwt/v5"

	errors "github.com/frahmantamala/household-ledger/internal"
)

// Identity is the verified caller behind a bearer token.
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Verifier checks a bearer token and returns who it belongs to.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Claims represents JWT token claims
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

var (
	ErrMissingToken = errors.NewUnauthenticatedError("missing authorization token", errors.ErrCodeUnauthenticated)
	ErrInvalidToken = errors.ErrInvalidToken
	ErrTokenExpired = errors.NewUnauthenticatedError("token expired", errors.ErrCodeTokenExpired)
)
