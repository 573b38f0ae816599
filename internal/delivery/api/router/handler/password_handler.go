package handler

import (
	"log/slog"
	"net/http"

	"accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/response"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/usecase"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

const forgetPasswordMessage = "If the email is registered, a password reset link has been sent"

// PasswordHandlerParams holds dependencies for PasswordHandler, injected by Fx.
type PasswordHandlerParams struct {
	fx.In

	PasswordUC usecase.PasswordUsecase
	Logger     *slog.Logger
}

// PasswordHandler serves the forget, reset and change password endpoints.
type PasswordHandler struct {
	passwordUC usecase.PasswordUsecase
	logger     *slog.Logger
}

// NewPasswordHandler is the constructor for PasswordHandler.
func NewPasswordHandler(params PasswordHandlerParams) *PasswordHandler {
	return &PasswordHandler{
		passwordUC: params.PasswordUC,
		logger:     params.Logger,
	}
}

// ForgetPasswordRequest represents the request body for a reset request
type ForgetPasswordRequest struct {
	Email string `json:"email" validate:"required"`
}

// ResetPasswordRequest represents the request body for redeeming a reset token
type ResetPasswordRequest struct {
	Token           string `json:"token" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required"`
	ConfirmPassword string `json:"confirmPassword" validate:"required"`
}

// ForgetPassword starts a password reset. The answer is the same whether or
// not the email is registered.
func (h *PasswordHandler) ForgetPassword(c echo.Context) error {
	var req ForgetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	output, err := h.passwordUC.ForgetPassword(c.Request().Context(), &usecase.ForgetPasswordInput{Email: req.Email})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, &ForgetPasswordResponse{
		Message:    forgetPasswordMessage,
		ResetToken: output.ResetToken,
	})
}

// ResetPassword redeems a reset token.
func (h *PasswordHandler) ResetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	err := h.passwordUC.ResetPassword(c.Request().Context(), &usecase.ResetPasswordInput{
		Token:           req.Token,
		Password:        req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, map[string]string{"message": "Password has been reset"})
}

// ChangePassword replaces the caller's password.
func (h *PasswordHandler) ChangePassword(c echo.Context) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return errors.WithStack(domainerrors.ErrMissingToken)
	}

	var req ChangePasswordRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.passwordUC.ChangePassword(c.Request().Context(), userID, &usecase.ChangePasswordInput{
		CurrentPassword: req.CurrentPassword,
		Password:        req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	return response.Success(c, http.StatusOK, toUserResponse(user))
}
