package products

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// ProductDTO is the wire representation of a catalog product.
type ProductDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty"`
	Price       string    `json:"price"`
	ImageURL    *string   `json:"imageUrl,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewProductDTO(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price.StringFixed(2),
		ImageURL:    p.ImageURL,
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

// ProductList is a page of catalog results.
type ProductList struct {
	Products   []ProductDTO          `json:"products"`
	Pagination pagination.OffsetInfo `json:"pagination"`
}

// ListProductsInput captures catalog filters.
type ListProductsInput struct {
	Search   string
	Category string
	Page     pagination.OffsetParams
}

// CreateProductInput is the admin payload for a new listing.
type CreateProductInput struct {
	Name        string
	Description *string
	Category    *string
	Price       decimal.Decimal
	ImageURL    *string
	IsActive    *bool
}

// UpdateProductInput holds optional changes; nil fields are left alone.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	ImageURL    *string
	IsActive    *bool
}
