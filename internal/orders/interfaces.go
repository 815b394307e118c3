package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateOrder(ctx context.Context, order *models.Order) error
	CreateItem(ctx context.Context, item *models.OrderItem) error
	CreateCancellation(ctx context.Context, cancellation *models.OrderCancellation) error
	FindForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	LockForUser(ctx context.Context, userID, orderID uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, orderID uuid.UUID) (*models.Order, error)
	ListForUser(ctx context.Context, userID uuid.UUID, includeCancelled bool) ([]models.Order, error)
	ListCancelledForUser(ctx context.Context, userID uuid.UUID) ([]models.Order, error)
	ListAll(ctx context.Context, query AdminOrderQuery) ([]models.Order, error)
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status enums.OrderStatus, at time.Time) (int64, error)
}

// AdminOrderQuery is a cursor page over every order, newest first.
type AdminOrderQuery struct {
	Status *enums.OrderStatus
	Cursor *pagination.Cursor
	Limit  int
}

// CatalogResolver prices order lines from the product catalog.
type CatalogResolver interface {
	Resolve(ctx context.Context, tx *gorm.DB, productID *uuid.UUID, name string) (*models.Product, error)
}

// Materializer turns priced lines into a persisted order inside a caller-owned
// transaction. Cart checkout and direct order creation both go through it.
type Materializer interface {
	Materialize(ctx context.Context, tx *gorm.DB, userID uuid.UUID, input MaterializeInput) (*models.Order, error)
	RecordPlaced(order *models.Order, source string)
}
