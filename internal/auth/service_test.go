package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

var testJWT = config.JWTConfig{
	Secret:                 "secret",
	Issuer:                 "storefront",
	ExpirationMinutes:      30,
	RefreshTokenTTLMinutes: 600,
}

type stubSessionManager struct {
	sessions map[string]stubSession
}

type stubSession struct {
	userID uuid.UUID
	token  string
}

func newStubSessions() *stubSessionManager {
	return &stubSessionManager{sessions: map[string]stubSession{}}
}

func (s *stubSessionManager) Generate(_ context.Context, accessID string, userID uuid.UUID) (string, error) {
	token := "refresh-" + uuid.NewString()
	s.sessions[accessID] = stubSession{userID: userID, token: token}
	return token, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error) {
	current, ok := s.sessions[oldAccessID]
	if !ok || current.token != provided {
		return session.Rotation{}, session.ErrInvalidRefreshToken
	}
	delete(s.sessions, oldAccessID)
	accessID := session.NewAccessID()
	token, _ := s.Generate(ctx, accessID, current.userID)
	return session.Rotation{UserID: current.userID, AccessID: accessID, RefreshToken: token}, nil
}

func (s *stubSessionManager) Revoke(_ context.Context, accessID string) error {
	delete(s.sessions, accessID)
	return nil
}

type memoryResetStore struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMemoryResetStore() *memoryResetStore {
	return &memoryResetStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *memoryResetStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.values[key] = value.(string)
	m.ttls[key] = ttl
	return nil
}

func (m *memoryResetStore) GetDel(_ context.Context, key string) (string, error) {
	v, ok := m.values[key]
	if !ok {
		return "", redislib.Nil
	}
	delete(m.values, key)
	return v, nil
}

func (m *memoryResetStore) PasswordResetKey(digest string) string {
	return "sf:password_reset:" + digest
}

type captureNotifier struct {
	tokens map[uuid.UUID]string
}

func (c *captureNotifier) SendPasswordReset(_ context.Context, userID uuid.UUID, _ string, token string) error {
	c.tokens[userID] = token
	return nil
}

type authFixture struct {
	svc      Service
	conn     *gorm.DB
	sessions *stubSessionManager
	resets   *memoryResetStore
	notifier *captureNotifier
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	conn := dbtest.Open(t)
	f := &authFixture{
		conn:     conn,
		sessions: newStubSessions(),
		resets:   newMemoryResetStore(),
		notifier: &captureNotifier{tokens: map[uuid.UUID]string{}},
	}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(conn),
		SessionManager: f.sessions,
		ResetStore:     f.resets,
		Notifier:       f.notifier,
		JWTConfig:      testJWT,
		ResetConfig:    config.PasswordResetConfig{TokenTTL: 15 * time.Minute},
	})
	require.NoError(t, err)
	f.svc = svc
	return f
}

func registerReq(email string) RegisterRequest {
	return RegisterRequest{Email: email, Password: "sup3r-secret", FirstName: "Lin", LastName: "Shopper"}
}

func TestRegisterIssuesTokens(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Register(ctx, registerReq("  New.User@Example.com "))
	require.NoError(t, err)
	assert.Equal(t, "new.user@example.com", resp.User.Email)
	assert.Equal(t, enums.UserRoleCustomer, resp.User.Role)
	assert.NotEmpty(t, resp.RefreshToken)

	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
	assert.Contains(t, f.sessions.sessions, claims.ID)

	_, err = f.svc.Register(ctx, registerReq("new.user@example.com"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	weak := registerReq("weak@example.com")
	weak.Password = "short"
	_, err = f.svc.Register(ctx, weak)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestLogin(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	_, err := f.svc.Register(ctx, registerReq("login@example.com"))
	require.NoError(t, err)

	resp, err := f.svc.Login(ctx, LoginRequest{Email: "LOGIN@example.com", Password: "sup3r-secret"})
	require.NoError(t, err)
	require.NotNil(t, resp.User.LastLoginAt)

	_, err = f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "wrong-password"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "ghost@example.com", Password: "sup3r-secret"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, f.conn.Table("users").Where("email = ?", "login@example.com").Update("is_active", false).Error)
	_, err = f.svc.Login(ctx, LoginRequest{Email: "login@example.com", Password: "sup3r-secret"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
	assert.Equal(t, invalidCredentialsMessage, typed.Message())
}

func TestRefreshRotatesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	first, err := f.svc.Register(ctx, registerReq("refresh@example.com"))
	require.NoError(t, err)

	second, err := f.svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.svc.Refresh(ctx, first.AccessToken, first.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	_, err = f.svc.Refresh(ctx, "not-a-jwt", second.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	require.NoError(t, f.conn.Table("users").Where("id = ?", second.User.ID).Update("is_active", false).Error)
	_, err = f.svc.Refresh(ctx, second.AccessToken, second.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	assert.Empty(t, f.sessions.sessions)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, registerReq("logout@example.com"))
	require.NoError(t, err)
	claims, err := pkgAuth.ParseAccessToken(testJWT, resp.AccessToken)
	require.NoError(t, err)

	require.NoError(t, f.svc.Logout(ctx, claims.ID))
	assert.NotContains(t, f.sessions.sessions, claims.ID)
	assert.True(t, pkgerrors.IsCode(f.svc.Logout(ctx, ""), pkgerrors.CodeUnauthorized))
}

func TestForgotPasswordDoesNotRevealAccounts(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.ForgotPassword(context.Background(), "nobody@example.com"))
	assert.Empty(t, f.resets.values)
	assert.Empty(t, f.notifier.tokens)
}

func TestPasswordResetRoundTrip(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, registerReq("reset@example.com"))
	require.NoError(t, err)

	require.NoError(t, f.svc.ForgotPassword(ctx, "Reset@Example.com"))
	token := f.notifier.tokens[resp.User.ID]
	require.NotEmpty(t, token)

	key := f.resets.PasswordResetKey(security.HashToken(token))
	assert.Equal(t, resp.User.ID.String(), f.resets.values[key])
	assert.Equal(t, 15*time.Minute, f.resets.ttls[key])
	assert.NotContains(t, f.resets.values, f.resets.PasswordResetKey(token))

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "tiny"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	require.NoError(t, f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "another-secret"}))

	err = f.svc.ResetPassword(ctx, ResetPasswordRequest{Token: token, NewPassword: "third-secret!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "sup3r-secret"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
	_, err = f.svc.Login(ctx, LoginRequest{Email: "reset@example.com", Password: "another-secret"})
	require.NoError(t, err)
}

func TestLoginUpgradesOutdatedHash(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	resp, err := f.svc.Register(ctx, registerReq("upgrade@example.com"))
	require.NoError(t, err)

	stronger := config.PasswordConfig{ArgonTime: 2}
	svc, err := NewService(ServiceParams{
		UserRepo:       users.NewRepository(f.conn),
		SessionManager: f.sessions,
		ResetStore:     f.resets,
		JWTConfig:      testJWT,
		PasswordConfig: stronger,
	})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginRequest{Email: "upgrade@example.com", Password: "sup3r-secret"})
	require.NoError(t, err)

	var stored []string
	require.NoError(t, f.conn.Table("users").Where("id = ?", resp.User.ID).Pluck("password_hash", &stored).Error)
	require.Len(t, stored, 1)
	assert.Contains(t, stored[0], ",t=2,")
	assert.False(t, security.NeedsRehash(stored[0], stronger))

	_, err = svc.Login(ctx, LoginRequest{Email: "upgrade@example.com", Password: "sup3r-secret"})
	require.NoError(t, err)
}

func TestNewServiceListsMissingDependencies(t *testing.T) {
	_, err := NewService(ServiceParams{})
	require.Error(t, err)
	assert.ErrorContains(t, err, "user repository")
	assert.ErrorContains(t, err, "session manager")
	assert.ErrorContains(t, err, "reset store")
}
