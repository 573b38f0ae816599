// Package impl contains the implementation of the application's business logic.
package impl

import (
	"context"
	"log/slog"
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

// userService implements the UserUsecase interface.
type userService struct {
	txManager      repository.TransactionManager
	userRepo       repository.UserRepository
	hasher         service.PasswordHasher
	tokenService   service.TokenService
	accessTokenTTL time.Duration
	logger         *slog.Logger

	// decoyDigest is verified against when the email is unknown, so both
	// login failure paths cost one bcrypt comparison.
	decoyDigest string
}

// UserServiceParams holds dependencies for UserService, injected by Fx.
type UserServiceParams struct {
	fx.In

	TxManager    repository.TransactionManager
	UserRepo     repository.UserRepository
	Hasher       service.PasswordHasher
	TokenService service.TokenService
	Config       *config.Config
	Logger       *slog.Logger
}

// NewUserService is the constructor for userService. It receives all dependencies as interfaces.
// The decoy digest is hashed here so no login pays for it.
func NewUserService(params UserServiceParams) (usecase.UserUsecase, error) {
	accessTokenTTL := time.Hour
	if params.Config != nil && params.Config.Auth != nil && params.Config.Auth.AccessTokenTTL > 0 {
		accessTokenTTL = params.Config.Auth.AccessTokenTTL
	}

	decoyDigest, err := params.Hasher.Hash(uuid.NewString())
	if err != nil {
		return nil, errors.Wrap(err, "failed to hash decoy digest")
	}

	return &userService{
		txManager:      params.TxManager,
		userRepo:       params.UserRepo,
		hasher:         params.Hasher,
		tokenService:   params.TokenService,
		accessTokenTTL: accessTokenTTL,
		logger:         params.Logger,
		decoyDigest:    decoyDigest,
	}, nil
}

// log returns a request-scoped logger if available, otherwise falls back to the service's logger.
func (srv *userService) log(ctx context.Context) *slog.Logger {
	return deliverycontext.GetLoggerOrDefault(ctx, srv.logger)
}

// Register creates an account and signs the caller in.
func (srv *userService) Register(ctx context.Context, input *usecase.RegisterInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Info("Starting registration", slog.String("email", email))

	// Hash outside the transaction; bcrypt is CPU-bound.
	digest, err := prepareNewPassword(srv.hasher, input.Password, input.ConfirmPassword)
	if err != nil {
		srv.log(ctx).Warn("Password rejected during registration", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "registration rejected")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, errors.Wrap(err, "failed to generate user id")
	}

	newUser := &entity.User{
		ID:             id,
		FirstName:      input.FirstName,
		LastName:       input.LastName,
		Email:          email,
		PasswordDigest: digest,
	}

	err = srv.txManager.Execute(ctx, func(repoFactory repository.RepositoryFactory) error {
		userRepo := repoFactory.NewUserRepository()

		_, findErr := userRepo.FindByEmail(ctx, email)
		if findErr == nil {
			return errors.Wrap(domainerrors.ErrUserAlreadyExists, "email already registered")
		}
		if !errors.Is(findErr, domainerrors.ErrUserNotFound) {
			return errors.Wrap(findErr, "failed to find user by email")
		}

		return errors.Wrap(userRepo.Create(ctx, newUser), "failed to create user")
	})
	if err != nil {
		srv.log(ctx).Warn("Registration failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "failed to execute user registration transaction")
	}

	accessToken, err := srv.issueAccessToken(newUser)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("Registration completed", slog.Any("userID", newUser.ID))

	return &usecase.AuthOutput{User: newUser, AccessToken: accessToken}, nil
}

// Login orchestrates the user login process.
func (srv *userService) Login(ctx context.Context, input *usecase.LoginInput) (*usecase.AuthOutput, error) {
	email := normalizeEmail(input.Email)
	srv.log(ctx).Debug("Starting user login", slog.String("email", email))

	user, err := srv.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domainerrors.ErrUserNotFound) {
			_, _ = srv.hasher.Verify(input.Password, srv.decoyDigest)
			srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.String("reason", "unknown email"))

			return nil, errors.Wrap(domainerrors.ErrInvalidCredentials, "login failed")
		}

		return nil, errors.Wrap(err, "failed to find user by email")
	}

	if err := checkPassword(ctx, srv.log(ctx), srv.hasher, user, input.Password); err != nil {
		srv.log(ctx).Warn("Login failed", slog.String("email", email), slog.Any("error", err))

		return nil, errors.Wrap(err, "login failed")
	}

	accessToken, err := srv.issueAccessToken(user)
	if err != nil {
		return nil, err
	}

	srv.log(ctx).Debug("User logged in successfully", slog.Any("userID", user.ID))

	return &usecase.AuthOutput{User: user, AccessToken: accessToken}, nil
}

func (srv *userService) issueAccessToken(user *entity.User) (string, error) {
	token, err := srv.tokenService.Issue(service.ClaimFields{
		UserID:  user.ID,
		Email:   user.Email,
		Purpose: service.TokenPurposeAccess,
	}, srv.accessTokenTTL)
	if err != nil {
		return "", errors.Wrap(err, "failed to issue access token")
	}

	return token, nil
}
