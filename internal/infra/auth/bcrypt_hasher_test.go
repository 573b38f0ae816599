package auth

import (
	"strings"
	"testing"

	"accounts/config"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestHasher(t *testing.T) service.PasswordHasher {
	t.Helper()

	hasher, err := NewBcryptHasherWithCost(bcrypt.MinCost, config.DefaultPasswordStrength())
	require.NoError(t, err)

	return hasher
}

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)

	digest, err := hasher.Hash("Secret123")
	require.NoError(t, err)
	assert.NotEmpty(t, digest)
	assert.NotEqual(t, "Secret123", digest)

	ok, err := hasher.Verify("Secret123", digest)
	assert.NoError(t, err)
	assert.True(t, ok)

	ok, err = hasher.Verify("Secret124", digest)
	assert.NoError(t, err)
	assert.False(t, ok)

	ok, err = hasher.Verify("", digest)
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestBcryptHasher_FreshSaltPerCall(t *testing.T) {
	hasher := newTestHasher(t)

	first, err := hasher.Hash("Secret123")
	require.NoError(t, err)
	second, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)

	for _, digest := range []string{first, second} {
		ok, err := hasher.Verify("Secret123", digest)
		assert.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestBcryptHasher_MalformedDigest(t *testing.T) {
	hasher := newTestHasher(t)

	valid, err := hasher.Hash("Secret123")
	require.NoError(t, err)

	digests := map[string]string{
		"empty":          "",
		"too short":      "invalid_hash",
		"unknown prefix": "#" + valid[1:],
		"future version": "$3a" + valid[3:],
		"bad cost":       valid[:4] + "99" + valid[6:],
	}

	for name, digest := range digests {
		t.Run(name, func(t *testing.T) {
			ok, err := hasher.Verify("Secret123", digest)
			assert.False(t, ok)
			assert.True(t, errors.Is(err, domainerrors.ErrMalformedDigest), "got %v", err)
		})
	}
}

func TestBcryptHasher_WithCustomCost(t *testing.T) {
	customCost := 6 // Lower cost for faster testing
	hasher, err := NewBcryptHasherWithCost(customCost, nil)
	require.NoError(t, err)

	hash, err := hasher.Hash("StrongPass123!")
	require.NoError(t, err)

	// Verify the hash uses the correct cost
	cost, err := bcrypt.Cost([]byte(hash))
	assert.NoError(t, err)
	assert.Equal(t, customCost, cost)
}

func TestBcryptHasher_ConfigCost(t *testing.T) {
	cfg := &config.Config{Auth: &config.AuthConfig{BcryptCost: bcrypt.MinCost}}

	hasher, err := NewBcryptHasher(cfg)
	require.NoError(t, err)

	hash, err := hasher.Hash("Secret123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)
}

func TestBcryptHasher_RejectsOutOfRangeCost(t *testing.T) {
	for _, cost := range []int{bcrypt.MinCost - 1, bcrypt.MaxCost + 1, -10} {
		_, err := NewBcryptHasherWithCost(cost, nil)
		assert.Error(t, err, "cost %d", cost)
	}
}

func TestBcryptHasher_HashRejectsBadInput(t *testing.T) {
	hasher := newTestHasher(t)

	_, err := hasher.Hash("")
	assert.Error(t, err)

	_, err = hasher.Hash(strings.Repeat("a", 73))
	assert.Error(t, err)
}

func TestBcryptHasher_ValidatePasswordStrength(t *testing.T) {
	hasher := newTestHasher(t)

	validPasswords := []string{
		"Secret123",
		"StrongPass123!",
		"MySecure@Pass1",
		"Pässphräse123",
	}

	for _, password := range validPasswords {
		err := hasher.ValidatePasswordStrength(password)
		assert.NoError(t, err, "Expected no error for valid password: %s", password)
	}

	testCases := []struct {
		password    string
		expectedErr error
		details     string
	}{
		{"Ab1", domainerrors.ErrPasswordStrength, "at least 8 characters"},
		{"SECRET123", domainerrors.ErrPasswordStrength, "lowercase letter"},
		{"secret123", domainerrors.ErrPasswordStrength, "uppercase letter"},
		{"SecretABC", domainerrors.ErrPasswordStrength, "number"},
		{"MyPassword123", domainerrors.ErrPasswordForbiddenWords, "forbidden words"},
		{"Aa1" + strings.Repeat("x", 70), domainerrors.ErrPasswordStrength, "at most 72 bytes"},
	}

	for _, tc := range testCases {
		err := hasher.ValidatePasswordStrength(tc.password)
		require.Error(t, err, "Expected error for password: %s", tc.password)
		assert.True(t, errors.Is(err, tc.expectedErr), "password %s: got %v", tc.password, err)

		var appErr domainerrors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Contains(t, appErr.Details(), tc.details)
	}
}

func TestBcryptHasher_RequireSpecial(t *testing.T) {
	policy := config.DefaultPasswordStrength()
	policy.RequireSpecial = true

	hasher, err := NewBcryptHasherWithCost(bcrypt.MinCost, policy)
	require.NoError(t, err)

	assert.Error(t, hasher.ValidatePasswordStrength("Secret123"))
	assert.NoError(t, hasher.ValidatePasswordStrength("Secret123!"))
}

func TestBcryptHasher_PasswordStrengthHelpers(t *testing.T) {
	hasher := &bcryptHasher{}

	assert.True(t, hasher.hasUppercase("Password"))
	assert.False(t, hasher.hasUppercase("password"))

	assert.True(t, hasher.hasLowercase("Password"))
	assert.False(t, hasher.hasLowercase("PASSWORD"))

	assert.True(t, hasher.hasNumbers("Password123"))
	assert.False(t, hasher.hasNumbers("Password"))

	assert.True(t, hasher.hasSpecialChars("Password!"))
	assert.False(t, hasher.hasSpecialChars("Password"))

	forbiddenWords := []string{"password", "admin"}
	assert.True(t, hasher.containsForbiddenWords("MyPassword123", forbiddenWords))
	assert.True(t, hasher.containsForbiddenWords("AdminUser", forbiddenWords))
	assert.False(t, hasher.containsForbiddenWords("SecurePass123", forbiddenWords))
}
