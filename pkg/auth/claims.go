package auth

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// AccessTokenPayload is what the caller decides when minting; timestamps and
// issuer come from config.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   enums.UserRole
	JTI    string
}

// AccessTokenClaims is the decoded bearer token. The jti doubles as the
// Redis session id checked on every request.
type AccessTokenClaims struct {
	UserID uuid.UUID      `json:"user_id"`
	Role   enums.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var (
	errClaimsUser    = errors.New("token has no user id")
	errClaimsRole    = errors.New("token carries an unknown role")
	errClaimsSubject = errors.New("token subject does not match user id")
)

// Validate runs after the registered-claims checks during strict parsing.
func (c *AccessTokenClaims) Validate() error {
	switch {
	case c.UserID == uuid.Nil:
		return errClaimsUser
	case !c.Role.IsValid():
		return errClaimsRole
	case c.Subject != "" && c.Subject != c.UserID.String():
		return errClaimsSubject
	}
	return nil
}
