package controllers

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// createProductRequest requires an explicit price; a listing never defaults
// to free.
type createProductRequest struct {
	Name        string           `json:"name" validate:"required,notblank,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price" validate:"required,money"`
	ImageURL    *string          `json:"imageUrl,omitempty" validate:"omitempty,url,max=1000"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

func (b createProductRequest) toInput() products.CreateProductInput {
	return products.CreateProductInput{
		Name:        validators.SanitizeString(b.Name, 200),
		Description: validators.SanitizeOptional(b.Description, 2000),
		Category:    validators.SanitizeOptional(b.Category, 100),
		Price:       *b.Price,
		ImageURL:    validators.SanitizeOptional(b.ImageURL, 1000),
		IsActive:    b.IsActive,
	}
}

type updateProductRequest struct {
	Name        *string          `json:"name,omitempty" validate:"omitempty,notblank,max=200"`
	Description *string          `json:"description,omitempty" validate:"omitempty,max=2000"`
	Category    *string          `json:"category,omitempty" validate:"omitempty,max=100"`
	Price       *decimal.Decimal `json:"price,omitempty" validate:"omitempty,money"`
	ImageURL    *string          `json:"imageUrl,omitempty" validate:"omitempty,url,max=1000"`
	IsActive    *bool            `json:"isActive,omitempty"`
}

func (b updateProductRequest) toInput() products.UpdateProductInput {
	return products.UpdateProductInput{
		Name:        b.Name,
		Description: b.Description,
		Category:    b.Category,
		Price:       b.Price,
		ImageURL:    b.ImageURL,
		IsActive:    b.IsActive,
	}
}

// AdminProductsList includes inactive listings.
func AdminProductsList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		input, err := parseProductQuery(r)
		if err != nil {
			return responses.Fail(err)
		}
		list, err := svc.AdminListProducts(r.Context(), input)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(list)
	})
}

func AdminProductCreate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		body, err := validators.Decode[createProductRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		product, err := svc.CreateProduct(r.Context(), body.toInput())
		if err != nil {
			return responses.Fail(err)
		}
		return responses.Created(map[string]any{"success": true, "product": product})
	})
}

func AdminProductUpdate(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return responses.Fail(err)
		}
		body, err := validators.Decode[updateProductRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		product, err := svc.UpdateProduct(r.Context(), productID, body.toInput())
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "product": product})
	})
}

// AdminProductDelete is a soft delete; the listing is hidden, not removed.
func AdminProductDelete(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.DeactivateProduct(r.Context(), productID); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}
