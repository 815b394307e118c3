package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lastEntry(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	var entry map[string]any
	require.NoError(t, json.Unmarshal(lines[len(lines)-1], &entry), buf.String())
	return entry
}

func TestErrorCarriesScopedFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "checkout", Level: "debug", Output: buf})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithUserID(ctx, "user-1")
	log.Error(ctx, "checkout failed", errors.New("cart is empty"))

	entry := lastEntry(t, buf)
	assert.Equal(t, "req-123", entry["request_id"])
	assert.Equal(t, "user-1", entry["user_id"])
	assert.Equal(t, "checkout", entry["service"])
	assert.Equal(t, "cart is empty", entry["error"])
	assert.Contains(t, entry, "stack")
}

func TestWarnStackIsOptIn(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{ServiceName: "orders", Output: buf, WarnStack: true}).Warn(context.Background(), "slow cancel")
	assert.Contains(t, lastEntry(t, buf), "stack")

	buf.Reset()
	New(Options{ServiceName: "orders", Output: buf}).Warn(context.Background(), "slow cancel")
	assert.NotContains(t, lastEntry(t, buf), "stack")
}

func TestInfoLevelDropsDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders", Level: "info", Output: buf})

	log.Debug(log.WithField(context.Background(), "order_id", "o-1"), "hidden")
	assert.Zero(t, buf.Len(), buf.String())
}

func TestScopedFieldsStayOnChildContext(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders", Output: buf})

	parent := context.Background()
	child := log.WithFields(parent, map[string]any{"order_id": "o-1", "status": "pending"})

	log.Info(child, "child")
	entry := lastEntry(t, buf)
	assert.Equal(t, "o-1", entry["order_id"])
	assert.Equal(t, "pending", entry["status"])

	log.Info(parent, "parent")
	assert.NotContains(t, lastEntry(t, buf), "order_id")
}

func TestNilContextFallsBackToRoot(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "orders", Output: buf})

	log.Info(nil, "shutdown")
	assert.Equal(t, "shutdown", lastEntry(t, buf)["message"])
}

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"invalid": zerolog.InfoLevel,
		" WARN ":  zerolog.WarnLevel,
		"debug":   zerolog.DebugLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
