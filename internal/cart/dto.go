package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

// AddItemInput is one product added to the cart. Price is the unit price the
// shopper saw when adding.
type AddItemInput struct {
	ProductName  string
	ProductImage *string
	Quantity     int
	Price        decimal.Decimal
}

// CheckoutInput carries the order-level fields supplied at checkout.
type CheckoutInput struct {
	PaymentMethod   string
	ShippingAddress *string
}

type CartItemDTO struct {
	ID           uuid.UUID `json:"id"`
	ProductName  string    `json:"productName"`
	ProductImage *string   `json:"productImage,omitempty"`
	Quantity     int       `json:"quantity"`
	Price        string    `json:"price"`
	Subtotal     string    `json:"subtotal"`
	AddedAt      time.Time `json:"addedAt"`
}

func NewCartItemDTO(item models.CartItem) CartItemDTO {
	return CartItemDTO{
		ID:           item.ID,
		ProductName:  item.ProductName,
		ProductImage: item.ProductImage,
		Quantity:     item.Quantity,
		Price:        item.Price.StringFixed(2),
		Subtotal:     pricing.LineSubtotal(item.Price, item.Quantity).StringFixed(2),
		AddedAt:      item.AddedAt,
	}
}

func newCartItemDTOs(items []models.CartItem) []CartItemDTO {
	out := make([]CartItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, NewCartItemDTO(item))
	}
	return out
}
