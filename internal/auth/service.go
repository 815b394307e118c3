// Package auth runs account registration, sign-in, refresh-token rotation and
// password resets on top of the users repository and the session store.
package auth

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

const defaultResetTTL = 30 * time.Minute

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResponse, error)
	Logout(ctx context.Context, accessID string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

type userRepository interface {
	Create(ctx context.Context, dto users.NewAccount) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

type sessionManager interface {
	Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error)
	Rotate(ctx context.Context, oldAccessID, provided string) (session.Rotation, error)
	Revoke(ctx context.Context, accessID string) error
}

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	GetDel(ctx context.Context, key string) (string, error)
	PasswordResetKey(tokenDigest string) string
}

type ServiceParams struct {
	UserRepo       userRepository
	SessionManager sessionManager
	ResetStore     resetStore
	Notifier       ResetNotifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	ResetConfig    config.PasswordResetConfig
	Logger         *logger.Logger
}

type service struct {
	users    userRepository
	sessions sessionManager
	resets   resetStore
	notifier ResetNotifier
	jwt      config.JWTConfig
	argon    config.PasswordConfig
	resetTTL time.Duration
	logg     *logger.Logger

	// decoy is verified against when the email is unknown so that a miss
	// costs the same as a wrong password.
	decoyOnce sync.Once
	decoy     string
}

func NewService(p ServiceParams) (Service, error) {
	var errs error
	if p.UserRepo == nil {
		errs = multierr.Append(errs, errors.New("user repository is required"))
	}
	if p.SessionManager == nil {
		errs = multierr.Append(errs, errors.New("session manager is required"))
	}
	if p.ResetStore == nil {
		errs = multierr.Append(errs, errors.New("reset store is required"))
	}
	if errs != nil {
		return nil, errs
	}

	s := &service{
		users:    p.UserRepo,
		sessions: p.SessionManager,
		resets:   p.ResetStore,
		notifier: p.Notifier,
		jwt:      p.JWTConfig,
		argon:    p.PasswordConfig,
		resetTTL: p.ResetConfig.TokenTTL,
		logg:     p.Logger,
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: p.Logger}
	}
	if s.resetTTL <= 0 {
		s.resetTTL = defaultResetTTL
	}
	return s, nil
}

func (s *service) logError(ctx context.Context, msg string, err error) {
	if s.logg != nil {
		s.logg.Error(ctx, msg, err)
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
