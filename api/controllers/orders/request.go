package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
)

type createOrderItemRequest struct {
	ProductID    *uuid.UUID       `json:"productId,omitempty"`
	ProductName  string           `json:"productName" validate:"required,notblank,max=255"`
	ProductImage *string          `json:"productImage,omitempty" validate:"omitempty,max=1000"`
	Quantity     int              `json:"quantity" validate:"min=1,max=1000"`
	Price        *decimal.Decimal `json:"price" validate:"required,money"`
}

type createOrderRequest struct {
	Items           []createOrderItemRequest `json:"items" validate:"min=1,max=100,dive"`
	PaymentMethod   string                   `json:"paymentMethod" validate:"required,notblank,max=50"`
	ShippingAddress *string                  `json:"shippingAddress,omitempty" validate:"omitempty,max=500"`
}

func (r createOrderRequest) toInput() internalorders.CreateOrderInput {
	items := make([]internalorders.CreateOrderItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, internalorders.CreateOrderItem{
			ProductID:    item.ProductID,
			ProductName:  validators.SanitizeString(item.ProductName, 255),
			ProductImage: validators.SanitizeOptional(item.ProductImage, 1000),
			Quantity:     item.Quantity,
			Price:        *item.Price,
		})
	}
	return internalorders.CreateOrderInput{
		Items:           items,
		PaymentMethod:   validators.SanitizeString(r.PaymentMethod, 50),
		ShippingAddress: validators.SanitizeOptional(r.ShippingAddress, 500),
	}
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"required,notblank,max=500"`
}
