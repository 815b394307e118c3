package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type contextKey string

const (
	ctxUserID   contextKey = "user_id"
	ctxRole     contextKey = "actor_role"
	ctxAccessID contextKey = "access_id"
)

// fromContext reads key as a T, returning the zero T when absent.
func fromContext[T any](ctx context.Context, key contextKey) T {
	var zero T
	if ctx == nil {
		return zero
	}
	if v, ok := ctx.Value(key).(T); ok {
		return v
	}
	return zero
}

func withValue(ctx context.Context, key contextKey, v any) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, key, v)
}

func UserIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxUserID)
}

// UserUUIDFromContext parses the authenticated user id; ok is false when the
// request carried no usable identity.
func UserUUIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(UserIDFromContext(ctx))
	return id, err == nil && id != uuid.Nil
}

// Caller is the signed-in user of r, or an UNAUTHORIZED error for handlers
// reached without Auth.
func Caller(r *http.Request) (uuid.UUID, error) {
	id, ok := UserUUIDFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

func RoleFromContext(ctx context.Context) enums.UserRole {
	return fromContext[enums.UserRole](ctx, ctxRole)
}

// AccessIDFromContext returns the jti of the access token, which keys the
// caller's refresh session.
func AccessIDFromContext(ctx context.Context) string {
	return fromContext[string](ctx, ctxAccessID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withValue(ctx, ctxUserID, userID)
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return withValue(ctx, ctxRole, role)
}

func WithAccessID(ctx context.Context, accessID string) context.Context {
	return withValue(ctx, ctxAccessID, accessID)
}
