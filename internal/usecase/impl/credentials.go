package impl

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
	"strings"

	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"

	"github.com/pkg/errors"
)

// normalizeEmail makes email lookups case-insensitive.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// hashResetToken is what gets stored for an outstanding reset token.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))

	return hex.EncodeToString(sum[:])
}

// resetTokenMatches compares a presented token against the stored hash in constant time.
func resetTokenMatches(storedHash, token string) bool {
	if storedHash == "" {
		return false
	}

	return subtle.ConstantTimeCompare([]byte(storedHash), []byte(hashResetToken(token))) == 1
}

// checkPassword verifies a password against the user's digest. Every failure
// is reported as ErrInvalidCredentials; a malformed digest is also logged
// since it means the stored row is corrupt.
func checkPassword(ctx context.Context, logger *slog.Logger, hasher service.PasswordHasher, user *entity.User, password string) error {
	ok, err := hasher.Verify(password, user.PasswordDigest)
	if err != nil {
		if errors.Is(err, domainerrors.ErrMalformedDigest) {
			logger.ErrorContext(ctx, "Stored password digest is malformed", slog.Any("userID", user.ID))

			return errors.Wrap(domainerrors.ErrInvalidCredentials, "malformed digest")
		}

		return errors.Wrap(err, "failed to verify password")
	}
	if !ok {
		return errors.Wrap(domainerrors.ErrInvalidCredentials, "password mismatch")
	}

	return nil
}

// prepareNewPassword enforces confirmation and the strength policy, then hashes.
func prepareNewPassword(hasher service.PasswordHasher, password, confirm string) (string, error) {
	if password != confirm {
		return "", errors.WithStack(domainerrors.ErrPasswordMismatch)
	}

	if err := hasher.ValidatePasswordStrength(password); err != nil {
		return "", errors.WithStack(err)
	}

	digest, err := hasher.Hash(password)
	if err != nil {
		return "", domainerrors.ErrPasswordHashFailed.WrapMessage(err.Error())
	}

	return digest, nil
}
