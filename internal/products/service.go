package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const nameConstraint = "products_name_key"

// Service exposes the public catalog and its admin management.
type Service interface {
	ListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error)
	GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error)
	AdminListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error)
	CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	DeactivateProduct(ctx context.Context, productID uuid.UUID) error
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) ListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error) {
	return s.list(ctx, input, false)
}

func (s *service) AdminListProducts(ctx context.Context, input ListProductsInput) (*ProductList, error) {
	return s.list(ctx, input, true)
}

func (s *service) list(ctx context.Context, input ListProductsInput, includeInactive bool) (*ProductList, error) {
	page := input.Page.Normalize()
	rows, total, err := s.repo.List(ctx, listQuery{
		Search:          strings.TrimSpace(input.Search),
		Category:        strings.TrimSpace(input.Category),
		IncludeInactive: includeInactive,
		Limit:           page.Limit,
		Offset:          page.Offset,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list products")
	}

	out := &ProductList{
		Products:   make([]ProductDTO, 0, len(rows)),
		Pagination: pagination.OffsetInfo{Limit: page.Limit, Offset: page.Offset, Total: total},
	}
	for i := range rows {
		out.Products = append(out.Products, NewProductDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindActiveByID(ctx, productID)
	if err != nil {
		return nil, translateLookup(err)
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) CreateProduct(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}

	product := &models.Product{
		Name:        name,
		Description: input.Description,
		Category:    input.Category,
		Price:       input.Price,
		ImageURL:    input.ImageURL,
		IsActive:    true,
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}

	if err := s.repo.Create(ctx, product); err != nil {
		return nil, translateWrite(err, "create product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

func (s *service) UpdateProduct(ctx context.Context, productID uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		return nil, translateLookup(err)
	}
	if err := applyUpdate(product, input); err != nil {
		return nil, err
	}
	if err := s.repo.Save(ctx, product); err != nil {
		return nil, translateWrite(err, "update product")
	}
	dto := NewProductDTO(product)
	return &dto, nil
}

// DeactivateProduct hides a product from the catalog. Order items keep their
// own snapshot so history is unaffected.
func (s *service) DeactivateProduct(ctx context.Context, productID uuid.UUID) error {
	rows, err := s.repo.SetActive(ctx, productID, false)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deactivate product")
	}
	if rows == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) error {
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return pkgerrors.New(pkgerrors.CodeValidation, "product name is required")
		}
		product.Name = name
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return err
		}
		product.Price = *input.Price
	}
	if input.Description != nil {
		product.Description = input.Description
	}
	if input.Category != nil {
		product.Category = input.Category
	}
	if input.ImageURL != nil {
		product.ImageURL = input.ImageURL
	}
	if input.IsActive != nil {
		product.IsActive = *input.IsActive
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price must be non-negative").
			WithDetails(map[string]string{"price": "must be greater than or equal to 0"})
	}
	return nil
}

func translateLookup(err error) error {
	if repo.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load product")
}

func translateWrite(err error, op string) error {
	if db.IsUniqueViolation(err, nameConstraint) {
		return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "a product with this name already exists")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}
