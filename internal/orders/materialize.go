package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pricing"
)

const (
	orderNumberConstraint = "orders_order_number_key"
	orderNumberSavepoint  = "order_number"
	maxOrderNumberTries   = 3
)

// Materialize persists a pending order and its items in tx and queues the
// order.created event. Totals are always recomputed from the lines.
func (s *service) Materialize(ctx context.Context, tx *gorm.DB, userID uuid.UUID, input MaterializeInput) (*models.Order, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item")
	}
	paymentMethod := strings.TrimSpace(input.PaymentMethod)
	if paymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required")
	}

	priced := make([]pricing.Line, 0, len(input.Lines))
	for _, line := range input.Lines {
		priced = append(priced, pricing.Line{Quantity: line.Quantity, UnitPrice: line.UnitPrice})
	}
	totals := pricing.Compute(priced)

	order := &models.Order{
		UserID:          userID,
		Status:          enums.OrderStatusPending,
		PaymentMethod:   paymentMethod,
		Subtotal:        totals.Subtotal,
		ShippingFee:     totals.ShippingFee,
		Total:           totals.Total,
		ShippingAddress: input.ShippingAddress,
	}

	repo := s.repo.WithTx(tx)
	if err := s.insertWithOrderNumber(ctx, tx, repo, order); err != nil {
		return nil, err
	}

	order.Items = make([]models.OrderItem, 0, len(input.Lines))
	for i, line := range input.Lines {
		item := models.OrderItem{
			OrderID:      order.ID,
			LineNo:       i + 1,
			ProductID:    line.ProductID,
			ProductName:  line.ProductName,
			ProductImage: line.ProductImage,
			Quantity:     line.Quantity,
			Price:        line.UnitPrice,
			Subtotal:     pricing.LineSubtotal(line.UnitPrice, line.Quantity),
		}
		if err := repo.CreateItem(ctx, &item); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert order item")
		}
		order.Items = append(order.Items, item)
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         &outbox.ActorRef{UserID: userID},
		Data: payloads.OrderCreatedEvent{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			UserID:      userID,
			Source:      input.Source,
			ItemCount:   len(order.Items),
			Subtotal:    order.Subtotal,
			ShippingFee: order.ShippingFee,
			Total:       order.Total,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "queue order event")
	}

	return order, nil
}

// insertWithOrderNumber retries on order number collisions. The savepoint keeps
// the surrounding transaction usable after a failed insert on Postgres.
func (s *service) insertWithOrderNumber(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order) error {
	var lastErr error
	for attempt := 0; attempt < maxOrderNumberTries; attempt++ {
		order.ID = uuid.Nil
		order.OrderNumber = s.numbers.Next()

		if err := tx.SavePoint(orderNumberSavepoint).Error; err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "create savepoint")
		}
		err := repo.CreateOrder(ctx, order)
		if err == nil {
			return nil
		}
		if !db.IsUniqueViolation(err, orderNumberConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert order")
		}
		lastErr = err
		if rbErr := tx.RollbackTo(orderNumberSavepoint).Error; rbErr != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, rbErr, "rollback to savepoint")
		}
		if s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "order_number", order.OrderNumber), "order number collision, retrying")
		}
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, lastErr, "could not allocate a unique order number")
}

// RecordPlaced updates order metrics once the materializing transaction committed.
func (s *service) RecordPlaced(order *models.Order, source string) {
	if order == nil {
		return
	}
	s.metrics.ObservePlaced(source, order.Total)
}
