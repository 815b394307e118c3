package cart

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/validators"
	internalcart "github.com/angelmondragon/storefront-backend/internal/cart"
)

type addItemRequest struct {
	ProductName  string           `json:"productName" validate:"required,notblank,max=255"`
	ProductImage *string          `json:"productImage,omitempty" validate:"omitempty,max=1000"`
	Quantity     int              `json:"quantity" validate:"min=1,max=1000"`
	Price        *decimal.Decimal `json:"price" validate:"required,money"`
}

func (r addItemRequest) toInput() internalcart.AddItemInput {
	return internalcart.AddItemInput{
		ProductName:  validators.SanitizeString(r.ProductName, 255),
		ProductImage: validators.SanitizeOptional(r.ProductImage, 1000),
		Quantity:     r.Quantity,
		Price:        *r.Price,
	}
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=1,max=1000"`
}

type checkoutRequest struct {
	PaymentMethod   string  `json:"paymentMethod" validate:"required,notblank,max=50"`
	ShippingAddress *string `json:"shippingAddress,omitempty" validate:"omitempty,max=500"`
}

func (r checkoutRequest) toInput() internalcart.CheckoutInput {
	return internalcart.CheckoutInput{
		PaymentMethod:   validators.SanitizeString(r.PaymentMethod, 50),
		ShippingAddress: validators.SanitizeOptional(r.ShippingAddress, 500),
	}
}
