package service

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	domainerrors "accounts/internal/domain/errors"
)

// TokenPurpose tells access tokens apart from password reset tokens.
type TokenPurpose string

const (
	TokenPurposeAccess TokenPurpose = "access"
	TokenPurposeReset  TokenPurpose = "reset"
)

// Claims defines the custom claims for the JWT tokens.
type Claims struct {
	Email   string       `json:"email"`
	Purpose TokenPurpose `json:"type"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (uuid.UUID, error) {
	return uuid.Parse(c.Subject)
}

// ClaimFields is what callers supply when issuing a token. Timestamps are set by the service.
type ClaimFields struct {
	UserID  uuid.UUID
	Email   string
	Purpose TokenPurpose
}

// TokenService defines the interface for generating and validating JWTs.
// This abstracts the details of token creation from the use cases.
//
// Verify reports failures as ErrMalformedToken, ErrInvalidSignature,
// ErrTokenExpired or ErrInvalidClaims, checked in that order.
type TokenService interface {
	// Issue signs a token valid for ttl from now.
	Issue(fields ClaimFields, ttl time.Duration) (string, error)

	// Verify checks structure, signature and expiry, then returns the claims.
	Verify(token string) (*Claims, error)

	// Decode parses the claims without checking the signature or expiry.
	// Diagnostics only: nothing returned here may be trusted.
	Decode(token string) (*Claims, error)
}

// RequirePurpose rejects tokens minted for another flow, e.g. a reset token
// presented as a bearer token.
func (c *Claims) RequirePurpose(purpose TokenPurpose) error {
	if c.Purpose != purpose {
		return domainerrors.ErrInvalidClaims.WithDetails("unexpected token type")
	}

	return nil
}
