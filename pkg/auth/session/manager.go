// Package session keeps the server side of a login: one Redis entry per
// access token jti, holding the owner and a digest of the paired refresh
// token. Deleting the entry ends the session for both tokens.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	redisclient "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const refreshTokenBytes = 32

var (
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	errNoAccessID          = errors.New("access id is required")
)

type store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	GetDel(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what request authentication needs from sessions.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// Rotation is the session that replaced a refreshed one.
type Rotation struct {
	UserID       uuid.UUID
	AccessID     string
	RefreshToken string
}

// record is the stored value. Only a digest of the refresh token is kept.
type record struct {
	UserID uuid.UUID `json:"uid"`
	Digest string    `json:"rt"`
}

func (r record) matches(token string) bool {
	return subtle.ConstantTimeCompare([]byte(r.Digest), []byte(digest(token))) == 1
}

type Manager struct {
	kv  store
	ttl time.Duration
}

// NewManager requires the refresh lifetime to outlast the access token, or
// a session could expire while its access token is still accepted.
func NewManager(client *redisclient.Client, cfg config.JWTConfig) (*Manager, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	ttl, accessTTL := cfg.RefreshTokenTTL(), cfg.AccessTokenTTL()
	if ttl <= accessTTL {
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", ttl, accessTTL)
	}
	return &Manager{kv: client, ttl: ttl}, nil
}

// NewAccessID mints the jti that keys a session.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	if blank(accessID) {
		return "", errNoAccessID
	}
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	return m.open(ctx, accessID, userID)
}

func (m *Manager) open(ctx context.Context, accessID string, userID uuid.UUID) (string, error) {
	token, err := newRefreshToken()
	if err != nil {
		return "", err
	}
	raw, err := json.Marshal(record{UserID: userID, Digest: digest(token)})
	if err != nil {
		return "", err
	}
	if err := m.kv.Set(ctx, m.kv.AccessSessionKey(accessID), string(raw), m.ttl); err != nil {
		return "", err
	}
	return token, nil
}

// Rotate trades a refresh token for a new session. A wrong token leaves the
// old session alone; a right one consumes it, so of two concurrent
// rotations with the same token only one succeeds.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (Rotation, error) {
	if blank(oldAccessID) || blank(provided) {
		return Rotation{}, ErrInvalidRefreshToken
	}
	key := m.kv.AccessSessionKey(oldAccessID)

	stored, err := m.kv.Get(ctx, key)
	if err != nil {
		return Rotation{}, notFoundAsInvalid(err)
	}
	rec, ok := decode(stored)
	if !ok || !rec.matches(provided) {
		return Rotation{}, ErrInvalidRefreshToken
	}

	taken, err := m.kv.GetDel(ctx, key)
	if err != nil {
		return Rotation{}, notFoundAsInvalid(err)
	}
	if taken != stored {
		return Rotation{}, ErrInvalidRefreshToken
	}

	next := NewAccessID()
	token, err := m.open(ctx, next, rec.UserID)
	if err != nil {
		return Rotation{}, err
	}
	return Rotation{UserID: rec.UserID, AccessID: next, RefreshToken: token}, nil
}

func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if blank(accessID) {
		return errNoAccessID
	}
	return m.kv.Del(ctx, m.kv.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if blank(accessID) {
		return false, errNoAccessID
	}
	_, err := m.kv.Get(ctx, m.kv.AccessSessionKey(accessID))
	switch {
	case errors.Is(err, redislib.Nil):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func decode(raw string) (record, bool) {
	var rec record
	if json.Unmarshal([]byte(raw), &rec) != nil || rec.UserID == uuid.Nil || rec.Digest == "" {
		return record{}, false
	}
	return rec, true
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newRefreshToken() (string, error) {
	buf := make([]byte, refreshTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("refresh token entropy: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func notFoundAsInvalid(err error) error {
	if errors.Is(err, redislib.Nil) {
		return ErrInvalidRefreshToken
	}
	return err
}
