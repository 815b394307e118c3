package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Sources label where an order came from in events and metrics.
const (
	SourceCart   = "cart"
	SourceDirect = "direct"
)

// Line is one priced line handed to Materialize.
type Line struct {
	ProductID    *uuid.UUID
	ProductName  string
	ProductImage *string
	Quantity     int
	UnitPrice    decimal.Decimal
}

// MaterializeInput carries everything needed to persist an order.
type MaterializeInput struct {
	Lines           []Line
	PaymentMethod   string
	ShippingAddress *string
	Source          string
}

// CreateOrderItem is a client-submitted line for direct order creation.
type CreateOrderItem struct {
	ProductID    *uuid.UUID
	ProductName  string
	ProductImage *string
	Quantity     int
	Price        decimal.Decimal
}

// CreateOrderInput is the payload for POST /orders/create.
type CreateOrderInput struct {
	Items           []CreateOrderItem
	PaymentMethod   string
	ShippingAddress *string
}

// ListOrdersOptions controls the customer order listing.
type ListOrdersOptions struct {
	IncludeCancelled bool
}

// AdminListInput filters the back-office order listing.
type AdminListInput struct {
	Status *enums.OrderStatus
	Params pagination.Params
}

type OrderItemDTO struct {
	ID           uuid.UUID  `json:"id"`
	ProductID    *uuid.UUID `json:"productId,omitempty"`
	ProductName  string     `json:"productName"`
	ProductImage *string    `json:"productImage,omitempty"`
	Quantity     int        `json:"quantity"`
	Price        string     `json:"price"`
	Subtotal     string     `json:"subtotal"`
}

type OrderDTO struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"userId"`
	OrderNumber        string            `json:"orderNumber"`
	Status             enums.OrderStatus `json:"status"`
	PaymentMethod      string            `json:"paymentMethod"`
	Subtotal           string            `json:"subtotal"`
	ShippingFee        string            `json:"shippingFee"`
	Total              string            `json:"total"`
	ShippingAddress    *string           `json:"shippingAddress,omitempty"`
	OrderDate          time.Time         `json:"orderDate"`
	UpdatedAt          time.Time         `json:"updatedAt"`
	Items              []OrderItemDTO    `json:"items"`
	CancellationReason *string           `json:"cancellationReason,omitempty"`
	CancelledAt        *time.Time        `json:"cancelledAt,omitempty"`
}

// OrderSummary is returned by cart checkout.
type OrderSummary struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	Total       string            `json:"total"`
	Status      enums.OrderStatus `json:"status"`
}

// CancelResult is returned by a successful cancellation.
type CancelResult struct {
	ID          uuid.UUID         `json:"id"`
	OrderNumber string            `json:"orderNumber"`
	Status      enums.OrderStatus `json:"status"`
}

// AdminOrderList is a cursor page of orders.
type AdminOrderList struct {
	Orders     []OrderDTO          `json:"orders"`
	Pagination pagination.PageInfo `json:"pagination"`
}

func NewOrderDTO(order *models.Order) OrderDTO {
	dto := OrderDTO{
		ID:              order.ID,
		UserID:          order.UserID,
		OrderNumber:     order.OrderNumber,
		Status:          order.Status,
		PaymentMethod:   order.PaymentMethod,
		Subtotal:        order.Subtotal.StringFixed(2),
		ShippingFee:     order.ShippingFee.StringFixed(2),
		Total:           order.Total.StringFixed(2),
		ShippingAddress: order.ShippingAddress,
		OrderDate:       order.OrderDate,
		UpdatedAt:       order.UpdatedAt,
		Items:           make([]OrderItemDTO, 0, len(order.Items)),
	}
	for _, item := range order.Items {
		dto.Items = append(dto.Items, OrderItemDTO{
			ID:           item.ID,
			ProductID:    item.ProductID,
			ProductName:  item.ProductName,
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			Price:        item.Price.StringFixed(2),
			Subtotal:     item.Subtotal.StringFixed(2),
		})
	}
	if order.Cancellation != nil {
		reason := order.Cancellation.CancellationReason
		at := order.Cancellation.CancelledAt
		dto.CancellationReason = &reason
		dto.CancelledAt = &at
	}
	return dto
}

func NewOrderSummary(order *models.Order) OrderSummary {
	return OrderSummary{
		ID:          order.ID,
		OrderNumber: order.OrderNumber,
		Total:       order.Total.StringFixed(2),
		Status:      order.Status,
	}
}

func newOrderDTOs(rows []models.Order) []OrderDTO {
	out := make([]OrderDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewOrderDTO(&rows[i]))
	}
	return out
}
