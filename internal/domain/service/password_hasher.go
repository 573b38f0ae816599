// Package service defines interfaces for core, stateless domain logic.
// These services encapsulate business rules that don't naturally fit within a single entity.
package service

// PasswordHasher defines the interface for password hashing and verification.
// This abstracts the underlying hashing algorithm (e.g., bcrypt), keeping the domain pure.
type PasswordHasher interface {
	// Hash generates a salted digest from a plaintext password. Two calls with
	// the same password return different digests.
	Hash(password string) (string, error)

	// Verify compares a plaintext password with a digest. A mismatch is
	// (false, nil); a digest that cannot be parsed returns ErrMalformedDigest.
	Verify(password, digest string) (bool, error)

	// ValidatePasswordStrength applies the configured password policy.
	ValidatePasswordStrength(password string) error
}
