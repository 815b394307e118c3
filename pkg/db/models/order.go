package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// Order is the purchase record. Only Status and UpdatedAt change after creation.
type Order struct {
	ID              uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	UserID          uuid.UUID          `gorm:"column:user_id;type:uuid;not null;index"`
	OrderNumber     string             `gorm:"column:order_number;not null;uniqueIndex:orders_order_number_key"`
	Status          enums.OrderStatus  `gorm:"column:status;type:text;not null"`
	PaymentMethod   string             `gorm:"column:payment_method;not null"`
	Subtotal        decimal.Decimal    `gorm:"column:subtotal;type:numeric(12,2);not null"`
	ShippingFee     decimal.Decimal    `gorm:"column:shipping_fee;type:numeric(12,2);not null"`
	Total           decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	ShippingAddress *string            `gorm:"column:shipping_address"`
	OrderDate       time.Time          `gorm:"column:order_date;autoCreateTime"`
	UpdatedAt       time.Time          `gorm:"column:updated_at;autoUpdateTime"`
	Items           []OrderItem        `gorm:"foreignKey:OrderID;references:ID"`
	Cancellation    *OrderCancellation `gorm:"foreignKey:OrderID;references:ID"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
