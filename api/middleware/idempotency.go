package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/storefront-backend/pkg/redis"
)

const (
	idempotencyHeader     = "Idempotency-Key"
	replayedHeader        = "Idempotent-Replayed"
	maxIdempotencyKey     = 255
	defaultIdempotencyTTL = 24 * time.Hour
	inFlightTTL           = 30 * time.Second
	inFlight              = "pending"
)

// storedResponse is what a settled key replays. Body is base64 on the wire.
type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotency makes the wrapped route safe to retry. The first request with
// a given Idempotency-Key runs the handler and its response is kept for ttl;
// later requests with the same key and body get that response back with
// Idempotent-Replayed: true. Keys are scoped per user, method and path.
// 5xx responses are not kept. Requests without the header run normally.
//
// Attach it to individual routes with chi's With: middleware mounted above a
// sub-router cannot tell which route will serve the request.
func Idempotency(store pkgredis.IdempotencyStore, ttl time.Duration, logg *logger.Logger) func(http.Handler) http.Handler {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return func(next http.Handler) http.Handler {
		if store == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(idempotencyHeader))
			if id == "" {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()
			if len(id) > maxIdempotencyKey {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key too long"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := store.IdempotencyKey(idempotencyScope(r), id)
			fingerprint := fingerprintBody(body)

			claimed, err := store.SetNX(ctx, key, inFlight, inFlightTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim idempotency key"))
				return
			}
			if !claimed {
				if err := replay(ctx, store, key, fingerprint, w); err != nil {
					responses.WriteError(ctx, logg, w, err)
				}
				return
			}

			tee := &bodyTee{responseRecorder: record(w)}
			next.ServeHTTP(tee, r)
			settle(ctx, store, key, ttl, storedResponse{
				Status:      defaultStatus(tee.responseRecorder.status),
				ContentType: tee.Header().Get("Content-Type"),
				Body:        tee.buf.Bytes(),
				Fingerprint: fingerprint,
			}, logg)
		})
	}
}

// settle overwrites the in-flight marker with the response, or frees the key
// when the handler failed server-side.
func settle(ctx context.Context, store pkgredis.IdempotencyStore, key string, ttl time.Duration, resp storedResponse, logg *logger.Logger) {
	var err error
	if resp.Status >= http.StatusInternalServerError {
		err = store.Del(ctx, key)
	} else {
		var payload []byte
		if payload, err = json.Marshal(resp); err == nil {
			err = store.Set(ctx, key, string(payload), ttl)
		}
	}
	if err != nil && logg != nil {
		logg.Error(logg.WithField(ctx, "idempotency_key", key), "settle idempotency key", err)
	}
}

func replay(ctx context.Context, store pkgredis.IdempotencyStore, key, fingerprint string, w http.ResponseWriter) error {
	raw, err := store.Get(ctx, key)
	switch {
	case errors.Is(err, redis.Nil), err == nil && raw == inFlight:
		return pkgerrors.New(pkgerrors.CodeConflict, "request with this idempotency key is still in progress")
	case err != nil:
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read idempotency key")
	}

	var resp storedResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record")
	}
	if resp.Fingerprint != fingerprint {
		return pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body")
	}

	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.Header().Set(replayedHeader, "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
	return nil
}

func idempotencyScope(r *http.Request) string {
	return UserIDFromContext(r.Context()) + "|" + r.Method + "|" + strings.TrimSuffix(r.URL.Path, "/")
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

func defaultStatus(code int) int {
	if code == 0 {
		return http.StatusOK
	}
	return code
}

// bodyTee copies the response body aside while it streams to the client.
type bodyTee struct {
	*responseRecorder
	buf bytes.Buffer
}

func (t *bodyTee) Write(b []byte) (int, error) {
	t.buf.Write(b)
	return t.responseRecorder.Write(b)
}
