package impl

import (
	"context"
	"testing"
	"time"

	domainerrors "accounts/internal/domain/errors"
	"accounts/internal/domain/service"
	"accounts/internal/usecase"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
)

// expectResetEvent captures the published reset event.
func expectResetEvent(fx *accountFixtures) *service.PasswordResetRequestedEvent {
	captured := &service.PasswordResetRequestedEvent{}
	fx.publisher.On("PublishPasswordResetRequested", mock.Anything, mock.AnythingOfType("*service.PasswordResetRequestedEvent")).
		Run(func(args mock.Arguments) {
			*captured = *args.Get(1).(*service.PasswordResetRequestedEvent)
		}).
		Return(nil).
		Once()

	return captured
}

func TestPasswordService_ForgetPassword_PublishesHashedToken(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))
	ctx := context.Background()
	registered := registerAlice(t, fx)
	event := expectResetEvent(fx)

	out, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "Alice@example.com"})
	require.NoError(t, err)
	assert.Empty(t, out.ResetToken, "token must not be exposed by default")
	fx.waitForPublishes()

	assert.Equal(t, registered.User.ID.String(), event.UserID)
	assert.Equal(t, "alice@example.com", event.Email)
	require.NotEmpty(t, event.ResetToken)
	assert.Equal(t, fx.clock.Now().Add(time.Hour).Unix(), event.ExpiresAt.Unix())

	stored, err := fx.userRepo.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.Equal(t, hashResetToken(event.ResetToken), stored.ResetTokenHash)
	assert.NotEqual(t, event.ResetToken, stored.ResetTokenHash)

	claims, err := fx.tokens.Verify(event.ResetToken)
	require.NoError(t, err)
	assert.Equal(t, service.TokenPurposeReset, claims.Purpose)
	assert.Equal(t, int64(3600), claims.ExpiresAt.Unix()-claims.IssuedAt.Unix())
}

func TestPasswordService_ForgetPassword_UnknownEmailLooksTheSame(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))

	out, err := fx.passwords.ForgetPassword(context.Background(), &usecase.ForgetPasswordInput{Email: "nobody@example.com"})
	require.NoError(t, err)
	assert.Empty(t, out.ResetToken)
	fx.publisher.AssertNotCalled(t, "PublishPasswordResetRequested", mock.Anything, mock.Anything)
}

func TestPasswordService_ForgetPassword_PublishFailureIsHidden(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))
	registerAlice(t, fx)
	fx.publisher.On("PublishPasswordResetRequested", mock.Anything, mock.Anything).
		Return(errors.New("broker down")).
		Once()

	_, err := fx.passwords.ForgetPassword(context.Background(), &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	assert.NoError(t, err)
}

func TestPasswordService_ForgetPassword_DoesNotWaitForBroker(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))
	registerAlice(t, fx)

	release := make(chan struct{})
	var publishCtxErr error
	fx.publisher.On("PublishPasswordResetRequested", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			<-release
			publishCtxErr = args.Get(0).(context.Context).Err()
		}).
		Return(nil).
		Once()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err, "answer must not wait for the publisher")

	// The request is over; the publish keeps its own deadline.
	cancel()
	close(release)
	fx.waitForPublishes()

	assert.NoError(t, publishCtxErr)
}

func TestPasswordService_DrainPublishes(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))
	registerAlice(t, fx)

	release := make(chan struct{})
	fx.publisher.On("PublishPasswordResetRequested", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { <-release }).
		Return(nil).
		Once()

	_, err := fx.passwords.ForgetPassword(context.Background(), &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)

	srv := fx.passwords.(*passwordService)

	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.Error(t, srv.drainPublishes(stopCtx))

	close(release)
	assert.NoError(t, srv.drainPublishes(context.Background()))
}

func TestNewPasswordService_RegistersDrainOnStop(t *testing.T) {
	lc := fxtest.NewLifecycle(t)

	NewPasswordService(PasswordServiceParams{Lc: lc, Logger: newDiscardLogger()})

	lc.RequireStart()
	lc.RequireStop()
}

func TestPasswordService_ResetScenario(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))
	ctx := context.Background()
	registered := registerAlice(t, fx)
	expectResetEvent(fx)

	out, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEmpty(t, out.ResetToken)

	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           out.ResetToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	require.NoError(t, err)

	_, err = fx.users.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "Secret123"})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials))
	_, err = fx.users.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "Fresh4567"})
	assert.NoError(t, err)

	stored, err := fx.userRepo.FindByID(ctx, registered.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.HasPendingReset())

	// Single use.
	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           out.ResetToken,
		Password:        "Again7890",
		ConfirmPassword: "Again7890",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrResetTokenInvalid), "got %v", err)
}

func TestPasswordService_ResetPassword_Expired(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))
	ctx := context.Background()
	registerAlice(t, fx)
	expectResetEvent(fx)

	out, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)

	fx.clock.Advance(time.Hour)

	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           out.ResetToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrTokenExpired), "got %v", err)
}

func TestPasswordService_ResetPassword_RejectsAccessToken(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))
	registered := registerAlice(t, fx)

	err := fx.passwords.ResetPassword(context.Background(), &usecase.ResetPasswordInput{
		Token:           registered.AccessToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidClaims), "got %v", err)
}

func TestPasswordService_ResetPassword_SupersededToken(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))
	ctx := context.Background()
	registerAlice(t, fx)
	expectResetEvent(fx)
	expectResetEvent(fx)

	first, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)

	// Tokens minted in the same second are identical, so move the clock.
	fx.clock.Advance(time.Second)
	second, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)
	require.NotEqual(t, first.ResetToken, second.ResetToken)

	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           first.ResetToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrResetTokenInvalid), "got %v", err)

	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           second.ResetToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.NoError(t, err)
}

func TestPasswordService_ResetPassword_Mismatch(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))
	ctx := context.Background()
	registerAlice(t, fx)
	expectResetEvent(fx)

	out, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)

	err = fx.passwords.ResetPassword(ctx, &usecase.ResetPasswordInput{
		Token:           out.ResetToken,
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4568",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordMismatch), "got %v", err)
}

func TestPasswordService_ChangePassword(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(true))
	ctx := context.Background()
	registered := registerAlice(t, fx)
	expectResetEvent(fx)

	// A pending reset is dropped by a successful change.
	_, err := fx.passwords.ForgetPassword(ctx, &usecase.ForgetPasswordInput{Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = fx.passwords.ChangePassword(ctx, registered.User.ID, &usecase.ChangePasswordInput{
		CurrentPassword: "Wrong1234",
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrInvalidCredentials), "got %v", err)

	_, err = fx.passwords.ChangePassword(ctx, registered.User.ID, &usecase.ChangePasswordInput{
		CurrentPassword: "Secret123",
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4568",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrPasswordMismatch), "got %v", err)

	updated, err := fx.passwords.ChangePassword(ctx, registered.User.ID, &usecase.ChangePasswordInput{
		CurrentPassword: "Secret123",
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	require.NoError(t, err)
	assert.False(t, updated.HasPendingReset())

	_, err = fx.users.Login(ctx, &usecase.LoginInput{Email: "alice@example.com", Password: "Fresh4567"})
	assert.NoError(t, err)
}

func TestPasswordService_ChangePassword_UnknownUser(t *testing.T) {
	fx := newAccountFixtures(t, newTestConfig(false))

	_, err := fx.passwords.ChangePassword(context.Background(), uuid.New(), &usecase.ChangePasswordInput{
		CurrentPassword: "Secret123",
		Password:        "Fresh4567",
		ConfirmPassword: "Fresh4567",
	})
	assert.True(t, errors.Is(err, domainerrors.ErrUserNotFound), "got %v", err)
}
