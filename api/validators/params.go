package validators

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

var ErrInvalidToken = errors.New("invalid auth token")

// ParseBearer returns the credentials of a "Bearer <token>" header. The
// scheme is case-insensitive.
func ParseBearer(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", ErrInvalidToken
	}
	if token = strings.TrimSpace(token); token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}

func badQuery(key, msg string, extra ...any) error {
	details := map[string]any{"field": key}
	for i := 0; i+1 < len(extra); i += 2 {
		details[extra[i].(string)] = extra[i+1]
	}
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(details)
}

func queryValue(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}

// ParseQueryInt reads an optional integer query parameter bounded by
// [lo, hi], falling back to def when absent.
func ParseQueryInt(r *http.Request, key string, def, lo, hi int) (int, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, badQuery(key, "query parameter must be numeric")
	}
	if n < lo || n > hi {
		return 0, badQuery(key, "query parameter out of range", "min", lo, "max", hi)
	}
	return n, nil
}

// ParseQueryBool reads an optional boolean query parameter; absent is false.
func ParseQueryBool(r *http.Request, key string) (bool, error) {
	raw := queryValue(r, key)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, badQuery(key, "query parameter must be a boolean")
	}
	return b, nil
}

// ParseURLUUID reads a chi route parameter as a uuid. A malformed id is
// NOT_FOUND, since no resource can carry it.
func ParseURLUUID(r *http.Request, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, param)))
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeNotFound, "resource not found").WithDetails(map[string]any{"field": param})
	}
	return id, nil
}

// SanitizeString trims input and caps it at maxBytes without splitting a
// UTF-8 sequence. maxBytes <= 0 means no cap.
func SanitizeString(input string, maxBytes int) string {
	s := strings.TrimSpace(input)
	if maxBytes <= 0 || len(s) <= maxBytes {
		return s
	}
	cut := maxBytes
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return strings.TrimSpace(s[:cut])
}

// SanitizeOptional is SanitizeString for optional fields; blank becomes nil.
func SanitizeOptional(input *string, maxBytes int) *string {
	if input == nil {
		return nil
	}
	if s := SanitizeString(*input, maxBytes); s != "" {
		return &s
	}
	return nil
}
