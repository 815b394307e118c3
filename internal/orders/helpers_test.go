package orders

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
)

type fixture struct {
	svc     Service
	conn    *gorm.DB
	reg     *prometheus.Registry
	deps    Deps
	userID  uuid.UUID
	otherID uuid.UUID
}

func newFixture(t *testing.T, mutate ...func(*Deps)) *fixture {
	t.Helper()
	client, conn := dbtest.Client(t)
	reg := prometheus.NewRegistry()

	deps := Deps{
		Repo:    NewRepository(conn),
		Tx:      client,
		Outbox:  outbox.NewService(outbox.NewRepository(conn), nil),
		Catalog: products.NewCatalog(products.NewRepository(conn)),
		Metrics: metrics.NewOrderMetrics(reg),
	}
	for _, fn := range mutate {
		fn(&deps)
	}
	svc, err := NewService(deps)
	require.NoError(t, err)

	return &fixture{
		svc:     svc,
		conn:    conn,
		reg:     reg,
		deps:    deps,
		userID:  mustCreateUser(t, conn).ID,
		otherID: mustCreateUser(t, conn).ID,
	}
}

func mustCreateUser(t *testing.T, conn *gorm.DB) *models.User {
	t.Helper()
	user := &models.User{
		Email:        fmt.Sprintf("shopper_%s@example.com", uuid.NewString()),
		PasswordHash: "hash",
		FirstName:    "Order",
		LastName:     "Tester",
		Role:         enums.UserRoleCustomer,
		IsActive:     true,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func mustCreateProduct(t *testing.T, conn *gorm.DB, name, price string) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Price: decimal.RequireFromString(price), IsActive: true}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func setStatus(t *testing.T, conn *gorm.DB, orderID uuid.UUID, status enums.OrderStatus) {
	t.Helper()
	require.NoError(t, conn.Model(&models.Order{}).Where("id = ?", orderID).Update("status", status).Error)
}

func countRows(t *testing.T, conn *gorm.DB, model any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := conn.Model(model)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func simpleOrder(items ...CreateOrderItem) CreateOrderInput {
	return CreateOrderInput{Items: items, PaymentMethod: "cash_on_delivery"}
}

func item(name string, qty int, price string) CreateOrderItem {
	return CreateOrderItem{ProductName: name, Quantity: qty, Price: decimal.RequireFromString(price)}
}

type fixedNumbers struct {
	values []string
	calls  int
}

func (f *fixedNumbers) Next() string {
	v := f.values[f.calls%len(f.values)]
	f.calls++
	return v
}
