package auth

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// ResetNotifier delivers a password reset token to the account holder.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, userID uuid.UUID, email, token string) error
}

// LogNotifier records that a reset was requested. It never logs the token.
type LogNotifier struct {
	Logger *logger.Logger
}

func (n LogNotifier) SendPasswordReset(ctx context.Context, userID uuid.UUID, _ string, _ string) error {
	if n.Logger == nil {
		return nil
	}
	n.Logger.Info(n.Logger.WithUserID(ctx, userID.String()), "password reset requested")
	return nil
}
