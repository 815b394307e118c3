package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when an order is materialized from the cart or
// from a direct order request.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	UserID      uuid.UUID       `json:"user_id"`
	Source      string          `json:"source"`
	ItemCount   int             `json:"item_count"`
	Subtotal    decimal.Decimal `json:"subtotal"`
	ShippingFee decimal.Decimal `json:"shipping_fee"`
	Total       decimal.Decimal `json:"total"`
}

// OrderCancelledEvent is emitted when a customer cancels a pending or
// processing order.
type OrderCancelledEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Reason         string            `json:"reason"`
	CancelledAt    time.Time         `json:"cancelled_at"`
}

// OrderStatusChangedEvent is emitted when back-office staff advance an order.
type OrderStatusChangedEvent struct {
	OrderID        uuid.UUID         `json:"order_id"`
	OrderNumber    string            `json:"order_number"`
	UserID         uuid.UUID         `json:"user_id"`
	PreviousStatus enums.OrderStatus `json:"previous_status"`
	Status         enums.OrderStatus `json:"status"`
}

// UserDeactivatedEvent is emitted when an account is archived.
type UserDeactivatedEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	DeletedBy uuid.UUID `json:"deleted_by"`
	SelfServe bool      `json:"self_serve"`
}
