// Package repo holds the gorm plumbing the domain repositories share.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// Base is embedded by repositories that may run either on the pool or inside
// a caller's transaction.
type Base struct {
	conn *gorm.DB
}

func NewBase(conn *gorm.DB) Base {
	return Base{conn: conn}
}

// DB scopes the connection to ctx. A nil ctx yields the bare handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.conn
	}
	return b.conn.WithContext(ctx)
}

// Rebind returns a Base on tx, or b itself when tx is nil.
func (b Base) Rebind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{conn: tx}
}

// First loads the first T matching where. A miss is gorm.ErrRecordNotFound.
func First[T any](ctx context.Context, b Base, where string, args ...any) (*T, error) {
	var row T
	if err := b.DB(ctx).Where(where, args...).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
