package auth

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/security"
)

const invalidResetTokenMessage = "invalid or expired reset token"

func errBadResetToken() error {
	return pkgerrors.New(pkgerrors.CodeValidation, invalidResetTokenMessage)
}

// ForgotPassword stores a digest of a fresh reset token and hands the token
// to the notifier. It returns nil for unknown or inactive addresses and for
// internal failures, so the response never reveals whether an account exists.
func (s *service) ForgotPassword(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	if email == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "email is required")
	}

	user, err := s.users.FindByEmail(ctx, email)
	switch {
	case repo.IsNotFound(err):
		return nil
	case err != nil:
		s.logError(ctx, "password reset lookup failed", err)
		return nil
	case !user.IsActive:
		return nil
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		s.logError(ctx, "generate reset token", err)
		return nil
	}
	if err := s.resets.Set(ctx, s.resets.PasswordResetKey(security.HashToken(token)), user.ID.String(), s.resetTTL); err != nil {
		s.logError(ctx, "store reset token", err)
		return nil
	}
	if err := s.notifier.SendPasswordReset(ctx, user.ID, user.Email, token); err != nil {
		s.logError(ctx, "deliver reset token", err)
	}
	return nil
}

// ResetPassword validates the new password before touching the token, then
// consumes the token with GETDEL so it works at most once.
func (s *service) ResetPassword(ctx context.Context, req ResetPasswordRequest) error {
	if err := security.ValidatePasswordPolicy(req.NewPassword); err != nil {
		return errWeakPassword("newPassword", err)
	}
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return errBadResetToken()
	}

	owner, err := s.resets.GetDel(ctx, s.resets.PasswordResetKey(security.HashToken(token)))
	if errors.Is(err, redis.Nil) {
		return errBadResetToken()
	}
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load reset token")
	}
	userID, err := uuid.Parse(owner)
	if err != nil {
		return errBadResetToken()
	}

	user, err := s.users.FindByID(ctx, userID)
	switch {
	case repo.IsNotFound(err):
		return errBadResetToken()
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
	case !user.IsActive:
		return errBadResetToken()
	}

	hash, err := security.HashPassword(req.NewPassword, s.argon)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := s.users.UpdatePasswordHash(ctx, user.ID, hash); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update password")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "password reset completed")
	}
	return nil
}
