// Package entity contains the core business objects of the project,
// each representing a unique, identifiable concept within the domain.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is the core entity in the system, representing a single account.
type User struct {
	ID             uuid.UUID // The Global Unique Identifier (GUID) for the user.
	FirstName      string    // Given name as entered at registration.
	LastName       string    // Family name as entered at registration.
	Email          string    // Normalized login identifier, unique across accounts.
	PasswordDigest string    // bcrypt digest of the current password. Never leaves the service.
	ResetTokenHash string    // SHA-256 of the outstanding reset token, empty when none is pending.
	CreatedAt      time.Time // Timestamp of when this user account was created.
	UpdatedAt      time.Time // Timestamp of the last modification to this user's data.
}

// HasPendingReset reports whether a password reset was requested and not yet consumed.
func (u *User) HasPendingReset() bool {
	return u.ResetTokenHash != ""
}

// ClearReset drops any outstanding reset token.
func (u *User) ClearReset() {
	u.ResetTokenHash = ""
}
