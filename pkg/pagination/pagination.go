// Package pagination carries the two listing styles the API exposes: keyset
// cursors for admin listings that must stay stable under inserts, and plain
// limit/offset for the public catalog.
package pagination

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

var ErrMalformedCursor = errors.New("malformed cursor")

// Params is a keyset page request. An empty Cursor starts at the newest row.
type Params struct {
	Limit  int
	Cursor string
}

// Cursor is the (sort timestamp, id) pair of the last row already returned.
// Rows are ordered newest first with the id breaking timestamp ties.
type Cursor struct {
	SortAt time.Time
	ID     uuid.UUID
}

type PageInfo struct {
	NextCursor string `json:"nextCursor,omitempty"`
	HasMore    bool   `json:"hasMore"`
}

type OffsetParams struct {
	Limit  int
	Offset int
}

func (p OffsetParams) Normalize() OffsetParams {
	return OffsetParams{Limit: NormalizeLimit(p.Limit), Offset: max(p.Offset, 0)}
}

type OffsetInfo struct {
	Limit  int   `json:"limit"`
	Offset int   `json:"offset"`
	Total  int64 `json:"total"`
}

// NormalizeLimit maps non-positive limits to DefaultLimit and caps the rest
// at MaxLimit.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return min(limit, MaxLimit)
}

// LimitWithBuffer asks for one extra row so Trim can tell whether another
// page exists.
func LimitWithBuffer(limit int) int { return NormalizeLimit(limit) + 1 }

// EncodeCursor renders c as URL-safe text: unix nanoseconds and the id,
// separated by '~'.
func EncodeCursor(c Cursor) string {
	raw := strconv.FormatInt(c.SortAt.UnixNano(), 36) + "~" + c.ID.String()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor reverses EncodeCursor. A blank value is the first page and
// yields (nil, nil).
func ParseCursor(value string) (*Cursor, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, ErrMalformedCursor
	}
	ts, id, ok := strings.Cut(string(raw), "~")
	if !ok {
		return nil, ErrMalformedCursor
	}
	nanos, err := strconv.ParseInt(ts, 36, 64)
	if err != nil {
		return nil, ErrMalformedCursor
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrMalformedCursor
	}
	return &Cursor{SortAt: time.Unix(0, nanos).UTC(), ID: parsed}, nil
}

// Trim drops the look-ahead row fetched with LimitWithBuffer and, when it
// was present, points the next cursor at the last row kept.
func Trim[T any](rows []T, limit int, cursorOf func(T) Cursor) ([]T, PageInfo) {
	limit = NormalizeLimit(limit)
	if len(rows) <= limit {
		return rows, PageInfo{}
	}
	rows = rows[:limit]
	return rows, PageInfo{NextCursor: EncodeCursor(cursorOf(rows[limit-1])), HasMore: true}
}
