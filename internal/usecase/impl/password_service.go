package impl

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"accounts/config"
	deliverycontext "accounts/internal/delivery/context"
	"accounts/internal/domain/entity"
	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.uber.org/fx"
)

// passwordService implements the PasswordUsecase interface.
type passwordService struct {
	txManager        repository.TransactionManager
	userRepo         repository.UserRepository
	hasher           service.PasswordHasher
	tokenService     service.TokenService
	publisher        service.EventPublisher
	resetTokenTTL    time.Duration
	exposeResetToken bool
	logger           *slog.Logger

	// inflight tracks reset events still being published after the request returned.
	inflight sync.WaitGroup
}

// PasswordServiceParams holds dependencies for PasswordService, injected by Fx.
type PasswordServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Publisher    service.EventPublisher
	Config       *config.Config
	Logger       *slog.Logger
	Lc           fx.Lifecycle `optional:"true"`
}

// NewPasswordService is the constructor for passwordService.
func NewPasswordService(params PasswordServiceParams) usecase.PasswordUsecase {
	srv := &passwordService{
		txManager:     params.TxManager,
		userRepo:      params.UserRepo,
		hasher:        params.Hasher,
		tokenService:  params.TokenService,
		publisher:     params.Publisher,
		resetTokenTTL: time.Hour,
		logger:        params.Logger,
	}
	if params.Config != nil && params.Config.Auth != nil {
		if params.Config.Auth.ResetTokenTTL > 0 {
			srv.resetTokenTTL = params.Config.Auth.ResetTokenTTL
		}
		srv.exposeResetToken = params.Config.Auth.ExposeResetToken
	}

	if params.Lc != nil {
		params.Lc.Append(fx.Hook{
			OnStop: srv.drainPublishes,
		})
	}

	return srv
}

// drainPublishes waits for background publishes until ctx is done.
func (srv *passwordService) drainPublishes(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		srv.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.Wrap(ctx.Err(), "password reset events still publishing")
	}
}

func (srv *passwordService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// ForgetPassword mints a reset token for the account and hands it to the
// event publisher. Unknown emails get the same empty answer as known ones.
func (srv *passwordService) ForgetPassword(ctx context.Context, input *usecase.ForgetPasswordInput) (*usecase.ForgetPasswordOutput, error) {
	email := normalizeEmail(input.Email)

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			srv.log(ctx).Info("Password reset requested for unknown email", slog.String("email", email))

			return &usecase.ForgetPasswordOutput{}, nil
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	resetToken, err := srv.tokenService.Issue(service.ClaimFields{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: service.TokenPurposeReset,
	}, srv.resetTokenTTL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to issue reset token")
	}

	// A newer request replaces any token still outstanding.
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		current, err := userRepo.FindByID(ctx, user.ID)
		if err != nil {
			return errors.Wrap(err, "failed to reload user")
		}
		current.ResetTokenHash = hashResetToken(resetToken)

		return errors.Wrap(userRepo.Update(ctx, current), "failed to store reset token")
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute forget password transaction")
	}

	srv.publishResetRequested(ctx, user, resetToken)

	output := &usecase.ForgetPasswordOutput{}
	if srv.exposeResetToken {
		output.ResetToken = resetToken
	}

	return output, nil
}

const resetPublishTimeout = 5 * time.Second

// publishResetRequested hands the event to the publisher in the background.
// The caller's answer must not depend on the broker: neither its errors nor its
// latency may reveal that the email exists.
func (srv *passwordService) publishResetRequested(ctx context.Context, user *entity.User, resetToken string) {
	event := &service.PasswordResetRequestedEvent{
		RequestID:  deliverycontext.GetRequestIDFromContext(ctx),
		UserID:     user.ID.String(),
		Email:      user.Email,
		ResetToken: resetToken,
	}
	if claims, err := srv.tokenService.Decode(resetToken); err == nil && claims.ExpiresAt != nil {
		event.ExpiresAt = claims.ExpiresAt.Time
	}

	// Outlive the request but keep its logger and request id.
	publishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), resetPublishTimeout)

	srv.inflight.Add(1)
	go func() {
		defer srv.inflight.Done()
		defer cancel()

		if err := srv.publisher.PublishPasswordResetRequested(publishCtx, event); err != nil {
			srv.log(publishCtx).Error("Failed to publish password reset event", slog.Any("userID", user.ID), slog.Any("error", err))

			return
		}

		srv.log(publishCtx).Info("Password reset requested", slog.Any("userID", user.ID))
	}()
}

// ResetPassword redeems a reset token. Each token works once: success clears
// the stored hash and a newer request overwrites it.
func (srv *passwordService) ResetPassword(ctx context.Context, input *usecase.ResetPasswordInput) error {
	claims, err := srv.tokenService.Verify(input.Token)
	if err != nil {
		srv.log(ctx).Warn("Reset token rejected", slog.Any("error", err))

		return errors.Wrap(err, "invalid reset token")
	}
	if err := claims.RequirePurpose(service.TokenPurposeReset); err != nil {
		return errors.Wrap(err, "invalid reset token")
	}

	userID, err := claims.UserID()
	if err != nil {
		return errors.Wrap(domainerrors.ErrInvalidClaims, "invalid reset token subject")
	}

	digest, err := prepareNewPassword(srv.hasher, input.Password, input.ConfirmPassword)
	if err != nil {
		return errors.Wrap(err, "password reset rejected")
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		user, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrUserNotFound) {
				return errors.Wrap(domainerrors.ErrResetTokenInvalid, "account no longer exists")
			}

			return errors.Wrap(err, "failed to find user")
		}

		if !resetTokenMatches(user.ResetTokenHash, input.Token) {
			return errors.Wrap(domainerrors.ErrResetTokenInvalid, "reset token does not match")
		}

		user.PasswordDigest = digest
		user.ClearReset()

		return errors.Wrap(userRepo.Update(ctx, user), "failed to update password")
	})
	if err != nil {
		srv.log(ctx).Warn("Password reset failed", slog.Any("userID", userID), slog.Any("error", err))

		return errors.Wrap(err, "failed to execute reset password transaction")
	}

	srv.log(ctx).Info("Password reset completed", slog.Any("userID", userID))

	return nil
}

// ChangePassword replaces the password of a signed-in user and drops any
// pending reset token.
func (srv *passwordService) ChangePassword(ctx context.Context, userID uuid.UUID, input *usecase.ChangePasswordInput) (*entity.User, error) {
	if input.Password != input.ConfirmPassword {
		return nil, errors.WithStack(domainerrors.ErrPasswordMismatch)
	}

	user, err := srv.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find user")
	}

	if err := checkPassword(ctx, srv.log(ctx), srv.hasher, user, input.CurrentPassword); err != nil {
		srv.log(ctx).Warn("Password change rejected", slog.Any("userID", userID), slog.Any("error", err))

		return nil, errors.Wrap(err, "current password rejected")
	}

	digest, err := prepareNewPassword(srv.hasher, input.Password, input.ConfirmPassword)
	if err != nil {
		return nil, errors.Wrap(err, "password change rejected")
	}

	var updated *entity.User
	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		current, err := userRepo.FindByID(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "failed to reload user")
		}

		current.PasswordDigest = digest
		current.ClearReset()
		if err := userRepo.Update(ctx, current); err != nil {
			return errors.Wrap(err, "failed to update password")
		}
		updated = current

		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to execute change password transaction")
	}

	srv.log(ctx).Info("Password changed", slog.Any("userID", userID))

	return updated, nil
}
