package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/auth"
	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var testJWT = config.JWTConfig{Secret: "middleware-secret", Issuer: "storefront", ExpirationMinutes: 15}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// liveSessions answers HasSession from a set of access ids.
type liveSessions struct {
	ids map[string]bool
	err error
}

func (s liveSessions) HasSession(_ context.Context, accessID string) (bool, error) {
	return s.ids[accessID], s.err
}

func bearer(t *testing.T, role enums.UserRole, accessID string) (string, uuid.UUID) {
	t.Helper()
	userID := uuid.New()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{UserID: userID, Role: role, JTI: accessID})
	require.NoError(t, err)
	return "Bearer " + token, userID
}

func TestAuthRejections(t *testing.T) {
	valid, _ := bearer(t, enums.UserRoleCustomer, "sess-1")
	expired, err := auth.MintAccessToken(testJWT, time.Now().Add(-time.Hour), auth.AccessTokenPayload{UserID: uuid.New(), Role: enums.UserRoleCustomer, JTI: "sess-1"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		sessions   liveSessions
		wantStatus int
		wantCode   pkgerrors.Code
	}{
		{"no header", "", liveSessions{}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"not bearer", "Basic dXNlcjpwdw==", liveSessions{}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"garbage token", "Bearer not.a.jwt", liveSessions{}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"expired token", "Bearer " + expired, liveSessions{ids: map[string]bool{"sess-1": true}}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"session ended", valid, liveSessions{ids: map[string]bool{}}, http.StatusUnauthorized, pkgerrors.CodeUnauthorized},
		{"session store down", valid, liveSessions{err: errors.New("redis down")}, http.StatusServiceUnavailable, pkgerrors.CodeDependency},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := serve(Auth(testJWT, tt.sessions, nil)(okHandler()), req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, string(tt.wantCode), errorCode(t, rr))
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Equal(t, bearerChallenge, rr.Header().Get("WWW-Authenticate"))
			} else {
				assert.Empty(t, rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAuthPutsCallerOnContext(t *testing.T) {
	header, userID := bearer(t, enums.UserRoleAdmin, "sess-9")

	var (
		gotUser   uuid.UUID
		gotRole   enums.UserRole
		gotAccess string
	)
	h := Auth(testJWT, liveSessions{ids: map[string]bool{"sess-9": true}}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = UserUUIDFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		gotAccess = AccessIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/orders", nil)
	req.Header.Set("Authorization", header)
	rr := serve(h, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, userID, gotUser)
	assert.Equal(t, enums.UserRoleAdmin, gotRole)
	assert.Equal(t, "sess-9", gotAccess)
}

func TestAuthWithoutSessionCheckerTrustsToken(t *testing.T) {
	header, _ := bearer(t, enums.UserRoleCustomer, "sess-2")
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", header)
	assert.Equal(t, http.StatusOK, serve(Auth(testJWT, nil, nil)(okHandler()), req).Code)
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(enums.UserRoleAdmin, nil)(okHandler())

	for role, want := range map[enums.UserRole]int{
		enums.UserRoleAdmin:    http.StatusOK,
		enums.UserRoleCustomer: http.StatusForbidden,
		"":                     http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/api/admin/orders", nil)
		rr := serve(h, req.WithContext(WithRole(req.Context(), role)))
		assert.Equal(t, want, rr.Code, "role %q", role)
	}
}

func TestUserUUIDFromContextRejectsGarbage(t *testing.T) {
	_, ok := UserUUIDFromContext(context.Background())
	assert.False(t, ok)
	_, ok = UserUUIDFromContext(WithUserID(context.Background(), "not-a-uuid"))
	assert.False(t, ok)
}
