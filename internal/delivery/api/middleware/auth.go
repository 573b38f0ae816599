package middleware

import (
	"log/slog"
	"strings"

	deliverycontext "accounts/internal/delivery/context"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/errors"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const (
	keyUserID = "userID"
	keyClaims = "claims"

	bearerPrefix = "Bearer "
)

// AuthMiddleware authenticates requests carrying an access token.
type AuthMiddleware struct {
	tokenSvc service.TokenService
	logger   *slog.Logger
}

// NewAuthMiddleware is the constructor for AuthMiddleware.
func NewAuthMiddleware(tokenSvc service.TokenService, logger *slog.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokenSvc: tokenSvc, logger: logger}
}

// Authenticate verifies the bearer token and stores the caller on the context.
// Each token failure keeps its own error code.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
		if authHeader == "" {
			return errors.WithStack(domainerrors.ErrMissingToken)
		}

		tokenString, found := strings.CutPrefix(authHeader, bearerPrefix)
		if !found || tokenString == "" {
			return errors.WithStack(domainerrors.ErrMalformedToken.WithDetails("authorization header must use the Bearer scheme"))
		}

		claims, err := m.tokenSvc.Verify(tokenString)
		if err != nil {
			deliverycontext.GetLoggerOrDefault(c.Request().Context(), m.logger).
				Warn("Access token rejected", slog.Any("error", err))

			return errors.Wrap(err, "access token rejected")
		}
		if err := claims.RequirePurpose(service.TokenPurposeAccess); err != nil {
			return errors.Wrap(err, "access token rejected")
		}

		userID, err := claims.UserID()
		if err != nil {
			return errors.Wrap(domainerrors.ErrInvalidClaims, "invalid subject")
		}

		c.Set(keyUserID, userID)
		c.Set(keyClaims, claims)
		deliverycontext.AttachUser(c, userID, m.logger)

		return next(c)
	}
}

// RequireSelf only lets callers act on their own account, named by the
// given path parameter. It must run after Authenticate.
func (m *AuthMiddleware) RequireSelf(param string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userID, ok := GetUserID(c)
			if !ok {
				return errors.WithStack(domainerrors.ErrMissingToken)
			}

			target, err := uuid.Parse(c.Param(param))
			if err != nil {
				return errors.WithStack(domainerrors.ErrValidationFailed.WithDetails(param + " must be a UUID"))
			}
			if target != userID {
				return errors.WithStack(domainerrors.ErrForbidden)
			}

			return next(c)
		}
	}
}

// GetUserID returns the authenticated user's id.
func GetUserID(c echo.Context) (uuid.UUID, bool) {
	userID, ok := c.Get(keyUserID).(uuid.UUID)

	return userID, ok
}

// GetClaims returns the verified access-token claims.
func GetClaims(c echo.Context) (*service.Claims, bool) {
	claims, ok := c.Get(keyClaims).(*service.Claims)

	return claims, ok
}
