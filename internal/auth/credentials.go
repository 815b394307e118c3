package auth

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/internal/users"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const (
	invalidCredentialsMessage = "invalid credentials"
	emailConstraint           = "users_email_key"
)

func errBadCredentials() error {
	return pkgerrors.New(pkgerrors.CodeUnauthorized, invalidCredentialsMessage)
}

func errWeakPassword(field string, err error) error {
	return pkgerrors.New(pkgerrors.CodeValidation, err.Error()).
		WithDetails(map[string]string{field: err.Error()})
}

// Register creates a customer account and signs it in.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := normalizeEmail(req.Email)
	if email == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}
	if err := security.ValidatePasswordPolicy(req.Password); err != nil {
		return nil, errWeakPassword("password", err)
	}

	switch _, err := s.users.FindByEmail(ctx, email); {
	case err == nil:
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case !repo.IsNotFound(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "check user email")
	}

	hash, err := security.HashPassword(req.Password, s.argon)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	user, err := s.users.Create(ctx, users.NewAccount{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Phone:        req.Phone,
		Role:         enums.UserRoleCustomer,
	})
	switch {
	case db.IsUniqueViolation(err, emailConstraint):
		// Lost a race with a concurrent sign-up for the same address.
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	case err != nil:
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create user")
	}
	return s.issue(ctx, user, time.Now().UTC())
}

// Login checks the password, stamps last_login_at and opens a new session.
// Hashes made with outdated argon2 costs are replaced on the way through.
func (s *service) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.checkPassword(ctx, req.Email, req.Password)
	if err != nil {
		return nil, err
	}

	if security.NeedsRehash(user.PasswordHash, s.argon) {
		s.upgradeHash(ctx, user, req.Password)
	}

	now := time.Now().UTC()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update last login")
	}
	user.LastLoginAt = &now
	return s.issue(ctx, user, now)
}

// checkPassword answers every failure, including unknown and deactivated
// accounts, with the same error.
func (s *service) checkPassword(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, errBadCredentials()
	}
	user, err := s.users.FindByEmail(ctx, email)
	if repo.IsNotFound(err) {
		_, _ = security.VerifyPassword(password, s.decoyHash())
		return nil, errBadCredentials()
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "lookup user")
	}

	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "verify password")
	}
	if !ok || !user.IsActive {
		return nil, errBadCredentials()
	}
	return user, nil
}

func (s *service) decoyHash() string {
	s.decoyOnce.Do(func() {
		s.decoy, _ = security.HashPassword("decoy-password-never-matches", s.argon)
	})
	return s.decoy
}

// upgradeHash is best effort; a failure leaves the old, still valid hash.
func (s *service) upgradeHash(ctx context.Context, user *models.User, password string) {
	hash, err := security.HashPassword(password, s.argon)
	if err == nil {
		err = s.users.UpdatePasswordHash(ctx, user.ID, hash)
	}
	if err != nil {
		s.logError(ctx, "upgrade password hash", err)
		return
	}
	user.PasswordHash = hash
}
