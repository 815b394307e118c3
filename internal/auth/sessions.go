package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/internal/users"
	pkgAuth "github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/auth/session"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// issue opens a session for user and returns the token pair.
func (s *service) issue(ctx context.Context, user *models.User, now time.Time) (*AuthResponse, error) {
	accessID := session.NewAccessID()
	refresh, err := s.sessions.Generate(ctx, accessID, user.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store refresh token")
	}
	return s.respond(user, accessID, refresh, now)
}

func (s *service) respond(user *models.User, accessID, refresh string, now time.Time) (*AuthResponse, error) {
	access, err := pkgAuth.MintAccessToken(s.jwt, now, pkgAuth.AccessTokenPayload{
		UserID: user.ID,
		Role:   user.Role,
		JTI:    accessID,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "mint access token")
	}
	return &AuthResponse{User: users.Present(user), AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh trades a refresh token, together with the access token it was
// issued beside, for a new pair. The access token may already be expired.
// The rotated session is revoked again if the account has since been
// deactivated or removed.
func (s *service) Refresh(ctx context.Context, accessToken, refreshToken string) (*AuthResponse, error) {
	claims, err := pkgAuth.ParseAccessTokenAllowExpired(s.jwt, accessToken)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid access token")
	}

	rotation, err := s.sessions.Rotate(ctx, claims.ID, refreshToken)
	if errors.Is(err, session.ErrInvalidRefreshToken) {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rotate session")
	}

	user, err := s.users.FindByID(ctx, rotation.UserID)
	if err == nil && user.IsActive {
		return s.respond(user, rotation.AccessID, rotation.RefreshToken, time.Now().UTC())
	}
	if revokeErr := s.sessions.Revoke(ctx, rotation.AccessID); revokeErr != nil {
		s.logError(ctx, "revoke session of inactive user", revokeErr)
	}
	if err != nil && !repo.IsNotFound(err) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load user")
	}
	return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid refresh token")
}

func (s *service) Logout(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session")
	}
	if err := s.sessions.Revoke(ctx, accessID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "revoke session")
	}
	return nil
}
