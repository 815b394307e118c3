// Package ordernumber generates human-readable order numbers.
package ordernumber

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

const Prefix = "ORD"

// Generator produces order numbers. The zero value uses the wall clock and
// random UUIDs.
type Generator struct {
	Now     func() time.Time
	NewUUID func() uuid.UUID
}

// Next returns ORD-<yyyymmddhhmmss>-<8 hex>. Uniqueness is ultimately enforced
// by the orders_order_number_key constraint.
func (g Generator) Next() string {
	now := time.Now
	if g.Now != nil {
		now = g.Now
	}
	newID := uuid.New
	if g.NewUUID != nil {
		newID = g.NewUUID
	}

	id := newID()
	suffix := strings.ToUpper(strings.ReplaceAll(id.String(), "-", "")[:8])
	return Prefix + "-" + now().UTC().Format("20060102150405") + "-" + suffix
}
