package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"accounts/config"
	apimiddleware "accounts/internal/delivery/api/middleware"
	"accounts/internal/delivery/api/response"
	"accounts/internal/delivery/api/router"
	"accounts/internal/delivery/api/router/handler"
	"accounts/internal/domain/service"
	"accounts/internal/infra/auth"
	"accounts/internal/infra/persistence/memory"
	"accounts/internal/infra/pubsub"
	"accounts/internal/usecase/impl"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx/fxtest"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "api_test_access_secret_key_long_enough"

type stubClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stubClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

func (c *stubClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type envelope struct {
	Data  json.RawMessage     `json:"data"`
	Error *response.ErrorInfo `json:"error"`
	Meta  *response.MetaInfo  `json:"meta"`
}

type testServer struct {
	t     *testing.T
	e     *echo.Echo
	clock *stubClock
}

func newTestConfig() *config.Config {
	cfg := &config.Config{
		Auth: &config.AuthConfig{
			BcryptCost:       bcrypt.MinCost,
			AccessTokenTTL:   time.Hour,
			ResetTokenTTL:    time.Hour,
			ExposeResetToken: true,
		},
		PasswordStrength: config.DefaultPasswordStrength(),
	}
	cfg.SecretKey.Access = testSecret
	cfg.HTTP.MaxRequestBodySize = "100KB"

	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config) *testServer {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	clock := &stubClock{now: time.Now().Truncate(time.Second)}

	hasher, err := auth.NewBcryptHasher(cfg)
	require.NoError(t, err)
	tokens, err := auth.NewJWTServiceWithClock(cfg.SecretKey.Access, clock.Now)
	require.NoError(t, err)
	publisher, err := pubsub.NewEventPublisher(pubsub.PublisherParams{
		Lc:     fxtest.NewLifecycle(t),
		Config: cfg,
		Logger: logger,
	})
	require.NoError(t, err)

	store := memory.NewStore()
	userUC, err := impl.NewUserService(impl.UserServiceParams{
		TxManager:    store.TransactionManager(),
		UserRepo:     store.Users(),
		Hasher:       hasher,
		TokenService: tokens,
		Config:       cfg,
		Logger:       logger,
	})
	require.NoError(t, err)
	passwordUC := impl.NewPasswordService(impl.PasswordServiceParams{
		TxManager:    store.TransactionManager(),
		UserRepo:     store.Users(),
		Hasher:       hasher,
		TokenService: tokens,
		Publisher:    publisher,
		Config:       cfg,
		Logger:       logger,
	})
	profileUC := impl.NewProfileService(store.TransactionManager(), store.Users(), logger)

	e, err := NewEcho(cfg, logger, router.RouterParams{
		UserHandler:     handler.NewUserHandler(handler.UserHandlerParams{UserUC: userUC, ProfileUC: profileUC, Logger: logger}),
		PasswordHandler: handler.NewPasswordHandler(handler.PasswordHandlerParams{PasswordUC: passwordUC, Logger: logger}),
		AuthMiddleware:  apimiddleware.NewAuthMiddleware(tokens, logger),
	})
	require.NoError(t, err)

	return &testServer{t: t, e: e, clock: clock}
}

func (s *testServer) do(method, path, token string, body any) (int, *envelope) {
	s.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = strings.NewReader(string(raw))
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && strings.HasPrefix(rec.Header().Get(echo.HeaderContentType), echo.MIMEApplicationJSON) {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}

	return rec.Code, &env
}

func (s *testServer) register(email string) handler.AuthResponse {
	s.t.Helper()

	code, env := s.do(http.MethodPost, "/api/register", "", map[string]string{
		"firstName":       "Alice",
		"lastName":        "Liddell",
		"email":           email,
		"password":        "Secret123",
		"confirmPassword": "Secret123",
	})
	require.Equal(s.t, http.StatusCreated, code)

	var out handler.AuthResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &out))

	return out
}

func claimFieldsOf(t *testing.T, claims *service.Claims) service.ClaimFields {
	t.Helper()

	userID, err := claims.UserID()
	require.NoError(t, err)

	return service.ClaimFields{UserID: userID, Email: claims.Email, Purpose: claims.Purpose}
}

func TestAPI_RegisterLoginProfile(t *testing.T) {
	srv := newTestServer(t, newTestConfig())

	registered := srv.register("alice@example.com")
	assert.NotEmpty(t, registered.Token)
	assert.Equal(t, "alice@example.com", registered.User.Email)

	code, env := srv.do(http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, code)
	assert.NotContains(t, string(env.Data), "$2a$")
	assert.NotContains(t, strings.ToLower(string(env.Data)), "digest")
	require.NotNil(t, env.Meta)
	assert.NotEmpty(t, env.Meta.RequestID)

	code, env = srv.do(http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com", "password": "Secret124"})
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)

	code, env = srv.do(http.MethodGet, "/api/get/"+registered.User.ID, registered.Token, nil)
	require.Equal(t, http.StatusOK, code)
	var user handler.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Alice", user.FirstName)

	code, env = srv.do(http.MethodPut, "/api/edit/"+registered.User.ID, registered.Token, map[string]string{"lastName": "Pleasance"})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Alice", user.FirstName)
	assert.Equal(t, "Pleasance", user.LastName)
}

func TestAPI_RegisterErrors(t *testing.T) {
	srv := newTestServer(t, newTestConfig())
	srv.register("alice@example.com")

	code, env := srv.do(http.MethodPost, "/api/register", "", map[string]string{
		"email": "alice@example.com", "password": "Secret123", "confirmPassword": "Secret123",
	})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "USER_ALREADY_EXISTS", env.Error.Code)

	code, env = srv.do(http.MethodPost, "/api/register", "", map[string]string{
		"email": "bob@example.com", "password": "Secret123", "confirmPassword": "Secret124",
	})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "PASSWORD_MISMATCH", env.Error.Code)

	code, env = srv.do(http.MethodPost, "/api/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "VALIDATION_FAILED", env.Error.Code)
	assert.NotNil(t, env.Error.Details)
}

func TestAPI_BearerErrors(t *testing.T) {
	cfg := newTestConfig()
	srv := newTestServer(t, cfg)
	alice := srv.register("alice@example.com")
	bob := srv.register("bob@example.com")
	path := "/api/get/" + alice.User.ID

	code, env := srv.do(http.MethodGet, path, "", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "TOKEN_MISSING", env.Error.Code)

	code, env = srv.do(http.MethodGet, path, "not.a.jwt", nil)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "TOKEN_MALFORMED", env.Error.Code)

	foreign, err := auth.NewJWTServiceWithClock("another_secret_key_that_is_long_enough", srv.clock.Now)
	require.NoError(t, err)
	claims, err := foreign.Decode(alice.Token)
	require.NoError(t, err)
	forged, err := foreign.Issue(claimFieldsOf(t, claims), time.Hour)
	require.NoError(t, err)
	code, env = srv.do(http.MethodGet, path, forged, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "TOKEN_SIGNATURE_INVALID", env.Error.Code)

	code, env = srv.do(http.MethodGet, path, bob.Token, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "FORBIDDEN", env.Error.Code)

	srv.clock.Advance(time.Hour)
	code, env = srv.do(http.MethodGet, path, alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "TOKEN_EXPIRED", env.Error.Code)
}

func TestAPI_PasswordFlows(t *testing.T) {
	srv := newTestServer(t, newTestConfig())
	alice := srv.register("alice@example.com")

	code, env := srv.do(http.MethodPost, "/api/forget-password", "", map[string]string{"email": "nobody@example.com"})
	require.Equal(t, http.StatusOK, code)
	var unknown handler.ForgetPasswordResponse
	require.NoError(t, json.Unmarshal(env.Data, &unknown))
	assert.Empty(t, unknown.ResetToken)

	code, env = srv.do(http.MethodPost, "/api/forget-password", "", map[string]string{"email": "alice@example.com"})
	require.Equal(t, http.StatusOK, code)
	var forgot handler.ForgetPasswordResponse
	require.NoError(t, json.Unmarshal(env.Data, &forgot))
	assert.Equal(t, unknown.Message, forgot.Message)
	require.NotEmpty(t, forgot.ResetToken)

	// A reset token is not a bearer token.
	code, env = srv.do(http.MethodGet, "/api/get/"+alice.User.ID, forgot.ResetToken, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "TOKEN_CLAIMS_INVALID", env.Error.Code)

	reset := map[string]string{"token": forgot.ResetToken, "newPassword": "Fresh4567", "confirmPassword": "Fresh4567"}
	code, _ = srv.do(http.MethodPost, "/api/reset-password", "", reset)
	require.Equal(t, http.StatusOK, code)

	code, env = srv.do(http.MethodPost, "/api/reset-password", "", reset)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "RESET_TOKEN_INVALID", env.Error.Code)

	code, _ = srv.do(http.MethodPost, "/api/login", "", map[string]string{"email": "alice@example.com", "password": "Fresh4567"})
	require.Equal(t, http.StatusOK, code)

	change := map[string]string{"currentPassword": "Fresh4567", "newPassword": "Other8901", "confirmPassword": "Other8901"}
	code, _ = srv.do(http.MethodPut, "/api/change-password/"+alice.User.ID, alice.Token, change)
	require.Equal(t, http.StatusOK, code)

	code, env = srv.do(http.MethodPut, "/api/change-password/"+alice.User.ID, alice.Token, change)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "INVALID_CREDENTIALS", env.Error.Code)
}

func TestAPI_HealthAndUnknownRoute(t *testing.T) {
	srv := newTestServer(t, newTestConfig())

	code, env := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	code, env = srv.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestAPI_FrontendProxy(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "frontend:"+r.URL.Path)
	}))
	t.Cleanup(upstream.Close)

	cfg := newTestConfig()
	cfg.Frontend = &config.FrontendConfig{Upstream: upstream.URL}
	srv := newTestServer(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
	rec := httptest.NewRecorder()
	srv.e.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "frontend:/dashboard", rec.Body.String())

	code, _ := srv.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, code)

	code, _ = srv.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestRegisterFrontend_RejectsRelativeUpstream(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	err := registerFrontend(echo.New(), &config.FrontendConfig{Upstream: "localhost:3000"}, logger)
	assert.Error(t, err)
	assert.NoError(t, registerFrontend(echo.New(), nil, logger))
}
