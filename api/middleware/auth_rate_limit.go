package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/api/responses"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// RateLimiterStore counts hits in a fixed window that starts on the first hit.
type RateLimiterStore interface {
	IncrWithTTL(context.Context, string, time.Duration) (int64, error)
}

// AuthRateLimitPolicy throttles one auth surface (login, register, ...) by
// client address and by the email named in the request body.
type AuthRateLimitPolicy struct {
	surface    string
	window     time.Duration
	ipLimit    int64
	emailLimit int64
}

func NewAuthRateLimitPolicy(surface string, window time.Duration, ipLimit, emailLimit int) AuthRateLimitPolicy {
	surface = strings.ToLower(strings.TrimSpace(surface))
	if surface == "" {
		surface = "auth"
	}
	return AuthRateLimitPolicy{
		surface:    surface,
		window:     window,
		ipLimit:    int64(ipLimit),
		emailLimit: int64(emailLimit),
	}
}

func (p AuthRateLimitPolicy) active() bool {
	return p.window > 0 && (p.ipLimit > 0 || p.emailLimit > 0)
}

// counter is one throttled dimension of a request.
type counter struct {
	dimension string
	subject   string
	limit     int64
}

func (p AuthRateLimitPolicy) counters(r *http.Request, body []byte) []counter {
	var out []counter
	if p.ipLimit > 0 {
		if ip := clientIP(r); ip != "" {
			out = append(out, counter{dimension: "ip", subject: ip, limit: p.ipLimit})
		}
	}
	if p.emailLimit > 0 {
		if email := emailFromBody(body); email != "" {
			out = append(out, counter{dimension: "email", subject: digest(email), limit: p.emailLimit})
		}
	}
	return out
}

func (p AuthRateLimitPolicy) key(c counter) string {
	return strings.Join([]string{"rl", c.dimension, p.surface, c.subject}, ":")
}

// AuthRateLimit rejects a request with 429 once any of its counters passes
// the policy limit. The body is buffered and restored for the handler.
func AuthRateLimit(policy AuthRateLimitPolicy, store RateLimiterStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if store == nil || !policy.active() {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var body []byte
			if policy.emailLimit > 0 && r.Body != nil {
				buf, err := io.ReadAll(r.Body)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request"))
					return
				}
				body = buf
				r.Body = io.NopCloser(bytes.NewReader(buf))
			}

			for _, c := range policy.counters(r, body) {
				hits, err := store.IncrWithTTL(ctx, policy.key(c), policy.window)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "rate limiting"))
					return
				}
				if hits > c.limit {
					rejectThrottled(ctx, logg, w, policy, c, hits)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rejectThrottled(ctx context.Context, logg *logger.Logger, w http.ResponseWriter, policy AuthRateLimitPolicy, c counter, hits int64) {
	if logg != nil {
		logg.Warn(logg.WithFields(ctx, map[string]any{
			"policy":    policy.surface,
			"dimension": c.dimension,
			"subject":   c.subject,
			"hits":      hits,
			"limit":     c.limit,
		}), "auth request throttled")
	}
	w.Header().Set("Retry-After", strconv.Itoa(int(policy.window.Round(time.Second)/time.Second)))
	responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeRateLimit, "rate limit exceeded"))
}

// clientIP takes the first hop of X-Forwarded-For, then X-Real-IP, then the
// socket peer. Unparseable header values are skipped.
func clientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); first != "" {
		if addr, err := netip.ParseAddr(strings.TrimSpace(first)); err == nil {
			return addr.String()
		}
	}
	if addr, err := netip.ParseAddr(strings.TrimSpace(r.Header.Get("X-Real-IP"))); err == nil {
		return addr.String()
	}
	if peer, err := netip.ParseAddrPort(r.RemoteAddr); err == nil {
		return peer.Addr().String()
	}
	return r.RemoteAddr
}

func emailFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Email string `json:"email"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(payload.Email))
}

func digest(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}
