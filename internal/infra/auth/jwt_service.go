// Package auth provides concrete implementations for authentication-related domain services.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"
)

// jwtService is a concrete implementation of the TokenService interface using the JWT standard.
// It holds no mutable state and is safe for concurrent use.
type jwtService struct {
	secret []byte           // HS256 signing key, fixed at startup.
	now    func() time.Time // Clock used for iat/exp and for validation.
	parser *jwt.Parser
}

// NewJWTService is the constructor for jwtService.
// It takes configuration values to create a new token service instance.
func NewJWTService(cfg *config.Config) (service.TokenService, error) {
	return NewJWTServiceWithClock(cfg.SecretKey.Access, time.Now)
}

// NewJWTServiceWithClock builds a token service on an explicit clock.
func NewJWTServiceWithClock(secret string, now func() time.Time) (service.TokenService, error) {
	if secret == "" {
		return nil, errors.New("jwt secret must be provided")
	}
	if now == nil {
		now = time.Now
	}

	return &jwtService{
		secret: []byte(secret),
		now:    now,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithTimeFunc(now),
			jwt.WithExpirationRequired(),
			jwt.WithStrictDecoding(),
		),
	}, nil
}

// Issue signs a token for fields that expires ttl after now.
func (s *jwtService) Issue(fields service.ClaimFields, ttl time.Duration) (string, error) {
	if fields.UserID == uuid.Nil {
		return "", errors.New("token subject must be provided")
	}
	if ttl <= 0 {
		return "", errors.Errorf("token ttl must be positive, got %s", ttl)
	}

	issuedAt := s.now()
	claims := service.Claims{
		Email:   fields.Email,
		Purpose: fields.Purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fields.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}

	return signed, nil
}

// Verify checks the token's structure, then its signature, then its expiry.
func (s *jwtService) Verify(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}
	if _, err := s.parser.ParseWithClaims(tokenString, claims, s.keyFunc); err != nil {
		return nil, mapTokenError(err)
	}

	if _, err := claims.UserID(); err != nil {
		return nil, domainerrors.ErrInvalidClaims.WithDetails("subject is not a user id")
	}

	return claims, nil
}

// Decode peeks at the claims without verifying anything but the encoding.
func (s *jwtService) Decode(tokenString string) (*service.Claims, error) {
	claims := &service.Claims{}
	if _, _, err := s.parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, domainerrors.ErrMalformedToken.WrapMessage(err.Error())
	}

	return claims, nil
}

func (s *jwtService) keyFunc(_ *jwt.Token) (any, error) {
	return s.secret, nil
}

// mapTokenError translates jwt parse errors into the domain's token error kinds.
// Order matters: jwt wraps several sentinels into one error.
func mapTokenError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return domainerrors.ErrMalformedToken.WrapMessage(err.Error())
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return domainerrors.ErrInvalidSignature.WrapMessage(err.Error())
	case errors.Is(err, jwt.ErrTokenExpired):
		return domainerrors.ErrTokenExpired.WrapMessage(err.Error())
	default:
		return domainerrors.ErrInvalidClaims.WrapMessage(err.Error())
	}
}
