package usecase

import (
	"context"

	"accounts/internal/domain/entity"

	"github.com/google/uuid"
)

// ForgetPasswordInput names the account asking for a reset.
type ForgetPasswordInput struct {
	Email string
}

// ForgetPasswordOutput carries the reset token only when the service runs
// with auth.exposeResetToken; otherwise it is empty for every email.
type ForgetPasswordOutput struct {
	ResetToken string
}

// ResetPasswordInput redeems a reset token for a new password.
type ResetPasswordInput struct {
	Token           string
	Password        string
	ConfirmPassword string
}

// ChangePasswordInput replaces a known password.
type ChangePasswordInput struct {
	CurrentPassword string
	Password        string
	ConfirmPassword string
}

// PasswordUsecase covers the password lifecycle after registration.
type PasswordUsecase interface {
	ForgetPassword(ctx context.Context, input *ForgetPasswordInput) (*ForgetPasswordOutput, error)
	ResetPassword(ctx context.Context, input *ResetPasswordInput) error
	ChangePassword(ctx context.Context, userID uuid.UUID, input *ChangePasswordInput) (*entity.User, error)
}
