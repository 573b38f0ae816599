// Package repository defines the interfaces for the persistence layer.
// These interfaces act as a contract between the domain/application layers and the infrastructure layer.
package repository

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// UserRepository stores accounts. Emails are stored and looked up exactly as
// given; callers normalize them first.
//
// Lookups of missing users return domainerrors.ErrUserNotFound and writes
// that collide on email return domainerrors.ErrUserAlreadyExists.
type UserRepository interface {
	// FindByID retrieves a single user by their unique ID.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.User, error)

	// FindByEmail retrieves a single user by their email address.
	FindByEmail(ctx context.Context, email string) (*entity.User, error)

	// Create persists a new user entity to the storage.
	Create(ctx context.Context, user *entity.User) error

	// Update overwrites every mutable column of an existing user, so cleared
	// fields such as the reset hash are written back as empty.
	Update(ctx context.Context, user *entity.User) error
}
