package impl

import (
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"accounts/config"
	"accounts/internal/domain/repository"
	"accounts/internal/domain/service"
	"accounts/internal/infra/auth"
	"accounts/internal/infra/persistence/memory"
	mockSvc "accounts/internal/mocks/service"
	"accounts/internal/usecase"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test_access_secret_key_very_long_for_testing"

func newDiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestConfig(exposeResetToken bool) *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:       bcrypt.MinCost,
			AccessTokenTTL:   time.Hour,
			ResetTokenTTL:    time.Hour,
			ExposeResetToken: exposeResetToken,
		},
		PasswordStrength: config.DefaultPasswordStrength(),
	}
	cfg.SecretKey.Access = testSecret

	return cfg
}

// testClock drives token issuing and expiry.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

// accountFixtures wires the services over the in-memory store with real
// bcrypt and JWT implementations.
type accountFixtures struct {
	users     usecase.UserUsecase
	passwords usecase.PasswordUsecase
	profiles  usecase.ProfileUsecase

	store     *memory.Store
	userRepo  repository.UserRepository
	hasher    service.PasswordHasher
	tokens    service.TokenService
	publisher *mockSvc.MockEventPublisher
	clock     *testClock
}

func newAccountFixtures(t *testing.T, cfg *config.Config) *accountFixtures {
	t.Helper()

	clock := &testClock{now: time.Unix(1_700_000_000, 0)}

	hasher, err := auth.NewBcryptHasher(cfg)
	require.NoError(t, err)

	tokens, err := auth.NewJWTServiceWithClock(cfg.SecretKey.Access, clock.Now)
	require.NoError(t, err)

	store := memory.NewStore()
	publisher := mockSvc.NewMockEventPublisher(t)
	logger := newDiscardLogger()

	users, err := NewUserService(UserServiceParams{
		TxManager:    store.TransactionManager(),
		UserRepo:     store.Users(),
		Hasher:       hasher,
		TokenService: tokens,
		Config:       cfg,
		Logger:       logger,
	})
	require.NoError(t, err)

	fixtures := &accountFixtures{
		users: users,
		passwords: NewPasswordService(PasswordServiceParams{
			TxManager:    store.TransactionManager(),
			UserRepo:     store.Users(),
			Hasher:       hasher,
			TokenService: tokens,
			Publisher:    publisher,
			Config:       cfg,
			Logger:       logger,
		}),
		profiles:  NewProfileService(store.TransactionManager(), store.Users(), logger),
		store:     store,
		userRepo:  store.Users(),
		hasher:    hasher,
		tokens:    tokens,
		publisher: publisher,
		clock:     clock,
	}
	// Runs before the publisher mock asserts its expectations.
	t.Cleanup(fixtures.waitForPublishes)

	return fixtures
}

// waitForPublishes blocks until background reset events have been handed to the publisher.
func (f *accountFixtures) waitForPublishes() {
	f.passwords.(*passwordService).inflight.Wait()
}
