package products

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn))
	require.NoError(t, err)
	return svc, conn
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name, price string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), IsActive: active}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func strPtr(v string) *string { return &v }

func TestListProductsHidesInactiveAndPaginates(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	mustCreateProduct(t, conn, "Gadget", "15.00", true)
	mustCreateProduct(t, conn, "Widget", "20.00", true)
	mustCreateProduct(t, conn, "Retired", "5.00", false)

	list, err := svc.ListProducts(ctx, ListProductsInput{Page: pagination.OffsetParams{Limit: 1}})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Gadget", list.Products[0].Name)
	assert.Equal(t, int64(2), list.Pagination.Total)

	list, err = svc.ListProducts(ctx, ListProductsInput{Page: pagination.OffsetParams{Limit: 10, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Widget", list.Products[0].Name)
	assert.Equal(t, "20.00", list.Products[0].Price)

	all, err := svc.AdminListProducts(ctx, ListProductsInput{})
	require.NoError(t, err)
	assert.Len(t, all.Products, 3)
}

func TestListProductsSearchAndCategory(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()

	tools := mustCreateProduct(t, conn, "Blue Widget", "10.00", true)
	require.NoError(t, conn.Model(tools).Update("category", "tools").Error)
	mustCreateProduct(t, conn, "Red Gadget", "12.00", true)
	mustCreateProduct(t, conn, "100%_Cotton", "8.00", true)

	list, err := svc.ListProducts(ctx, ListProductsInput{Search: "widget"})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "Blue Widget", list.Products[0].Name)

	list, err = svc.ListProducts(ctx, ListProductsInput{Category: "tools"})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)

	list, err = svc.ListProducts(ctx, ListProductsInput{Search: "%_"})
	require.NoError(t, err)
	require.Len(t, list.Products, 1)
	assert.Equal(t, "100%_Cotton", list.Products[0].Name)
}

func TestGetProductMissingOrInactive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	retired := mustCreateProduct(t, conn, "Retired", "5.00", false)

	_, err := svc.GetProduct(ctx, retired.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = svc.GetProduct(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateUpdateDeactivateProduct(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateProduct(ctx, CreateProductInput{
		Name:     "  Widget ",
		Price:    decimal.RequireFromString("20"),
		Category: strPtr("tools"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Widget", created.Name)
	assert.Equal(t, "20.00", created.Price)
	assert.True(t, created.IsActive)

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Widget", Price: decimal.NewFromInt(1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	_, err = svc.CreateProduct(ctx, CreateProductInput{Name: "Cheap", Price: decimal.NewFromInt(-1)})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	newPrice := decimal.RequireFromString("22.50")
	updated, err := svc.UpdateProduct(ctx, created.ID, UpdateProductInput{Price: &newPrice})
	require.NoError(t, err)
	assert.Equal(t, "22.50", updated.Price)
	assert.Equal(t, "tools", *updated.Category)

	require.NoError(t, svc.DeactivateProduct(ctx, created.ID))
	_, err = svc.GetProduct(ctx, created.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	err = svc.DeactivateProduct(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCatalogResolve(t *testing.T) {
	conn := dbtest.Open(t)
	catalog := NewCatalog(NewRepository(conn))
	ctx := context.Background()

	widget := mustCreateProduct(t, conn, "Widget", "20.00", true)
	retired := mustCreateProduct(t, conn, "Retired", "5.00", false)

	got, err := catalog.Resolve(ctx, conn, &widget.ID, "ignored")
	require.NoError(t, err)
	assert.Equal(t, widget.ID, got.ID)

	got, err = catalog.Resolve(ctx, conn, nil, "Widget")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, widget.ID, got.ID)

	got, err = catalog.Resolve(ctx, conn, nil, "Mystery Box")
	require.NoError(t, err)
	assert.Nil(t, got)

	_, err = catalog.Resolve(ctx, conn, &retired.ID, "")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
