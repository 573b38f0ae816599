// Package usecase contains the application-specific business rules.
package usecase

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// ProfileUsecase defines the interface for profile-related business operations.
type ProfileUsecase interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*entity.User, error)
	EditUser(ctx context.Context, userID uuid.UUID, input *EditUserInput) (*entity.User, error)
}

// --- Input DTOs ---

// EditUserInput lists the editable fields. Empty strings leave a field unchanged.
type EditUserInput struct {
	FirstName string
	LastName  string
	Email     string
}
