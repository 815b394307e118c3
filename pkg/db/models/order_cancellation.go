package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// OrderCancellation is the audit record written when an order is cancelled.
type OrderCancellation struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID            uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:order_cancellations_order_id_key"`
	UserID             uuid.UUID `gorm:"column:user_id;type:uuid;not null"`
	CancellationReason string    `gorm:"column:cancellation_reason;not null"`
	CancelledAt        time.Time `gorm:"column:cancelled_at;not null"`
}

func (c *OrderCancellation) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}
