package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/config"
)

type memKV struct {
	mu     sync.Mutex
	data   map[string]string
	ttl    map[string]time.Duration
	getErr error
	// beforeGetDel runs once inside GetDel, to interleave a competing writer.
	beforeGetDel func()
}

func newMemKV() *memKV {
	return &memKV{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (m *memKV) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value.(string)
	m.ttl[key] = ttl
	return nil
}

func (m *memKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *memKV) GetDel(ctx context.Context, key string) (string, error) {
	if hook := m.beforeGetDel; hook != nil {
		m.beforeGetDel = nil
		hook()
	}
	v, err := m.Get(ctx, key)
	if err == nil {
		_ = m.Del(ctx, key)
	}
	return v, err
}

func (m *memKV) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

func (m *memKV) AccessSessionKey(accessID string) string { return "sess:" + accessID }

func newTestManager() (*Manager, *memKV) {
	kv := newMemKV()
	return &Manager{kv: kv, ttl: time.Hour}, kv
}

func TestGenerateStoresDigestNotToken(t *testing.T) {
	m, kv := newTestManager()
	userID := uuid.New()

	token, err := m.Generate(context.Background(), "jti-1", userID)
	require.NoError(t, err)

	stored := kv.data["sess:jti-1"]
	assert.NotContains(t, stored, token)
	rec, ok := decode(stored)
	require.True(t, ok)
	assert.Equal(t, userID, rec.UserID)
	assert.True(t, rec.matches(token))
	assert.Equal(t, time.Hour, kv.ttl["sess:jti-1"])
}

func TestRotateReplacesSession(t *testing.T) {
	m, kv := newTestManager()
	ctx := context.Background()
	userID := uuid.New()
	token, err := m.Generate(ctx, "jti-1", userID)
	require.NoError(t, err)

	_, err = m.Rotate(ctx, "jti-1", "wrong")
	require.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Contains(t, kv.data, "sess:jti-1", "a wrong token must not end the session")

	rot, err := m.Rotate(ctx, "jti-1", token)
	require.NoError(t, err)
	assert.Equal(t, userID, rot.UserID)
	assert.NotEqual(t, token, rot.RefreshToken)
	assert.NotContains(t, kv.data, "sess:jti-1")

	live, err := m.HasSession(ctx, rot.AccessID)
	require.NoError(t, err)
	assert.True(t, live)

	_, err = m.Rotate(ctx, "jti-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotateLosesRaceToConcurrentRotation(t *testing.T) {
	m, kv := newTestManager()
	ctx := context.Background()
	token, err := m.Generate(ctx, "jti-1", uuid.New())
	require.NoError(t, err)

	kv.beforeGetDel = func() { _ = kv.Del(ctx, "sess:jti-1") }
	_, err = m.Rotate(ctx, "jti-1", token)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
	assert.Len(t, kv.data, 0)
}

func TestRotateRejectsUnreadableRecords(t *testing.T) {
	m, kv := newTestManager()
	kv.data["sess:legacy"] = uuid.NewString() + "|bare-token"
	_, err := m.Rotate(context.Background(), "legacy", "bare-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = m.Rotate(context.Background(), " ", "x")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)
}

func TestRotatePassesStoreFailuresThrough(t *testing.T) {
	m, kv := newTestManager()
	kv.getErr = errors.New("connection reset")
	_, err := m.Rotate(context.Background(), "jti", "token")
	assert.EqualError(t, err, "connection reset")

	_, err = m.HasSession(context.Background(), "jti")
	assert.EqualError(t, err, "connection reset")
}

func TestRevokeEndsSession(t *testing.T) {
	m, _ := newTestManager()
	ctx := context.Background()
	_, err := m.Generate(ctx, "jti-1", uuid.New())
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, "jti-1"))
	live, err := m.HasSession(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, live)

	assert.Error(t, m.Revoke(ctx, ""))
	_, err = m.Generate(ctx, "jti-2", uuid.Nil)
	assert.Error(t, err)
}

func TestNewManagerChecksLifetimes(t *testing.T) {
	_, err := NewManager(nil, config.JWTConfig{})
	assert.ErrorContains(t, err, "redis client")
}
