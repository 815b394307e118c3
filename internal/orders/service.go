package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/ordernumber"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type numberGenerator interface {
	Next() string
}

// Service defines the customer order flows plus back-office status control.
type Service interface {
	Materializer
	CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error)
	ListOrders(ctx context.Context, userID uuid.UUID, opts ListOrdersOptions) ([]OrderDTO, error)
	ListCancelledOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error)
	GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error)
	CancelOrder(ctx context.Context, userID, orderID uuid.UUID, reason string) (*CancelResult, error)
	AdvanceStatus(ctx context.Context, adminID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error)
	ListAllOrders(ctx context.Context, input AdminListInput) (*AdminOrderList, error)
}

// Deps groups the collaborators of the order service.
type Deps struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxPublisher
	Catalog CatalogResolver
	Metrics *metrics.OrderMetrics
	Logger  *logger.Logger
	Numbers numberGenerator
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	catalog CatalogResolver
	metrics *metrics.OrderMetrics
	logg    *logger.Logger
	numbers numberGenerator
	now     func() time.Time
}

// NewService builds the order service with the required dependencies.
func NewService(deps Deps) (Service, error) {
	if deps.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("catalog resolver required")
	}
	svc := &service{
		repo:    deps.Repo,
		tx:      deps.Tx,
		outbox:  deps.Outbox,
		catalog: deps.Catalog,
		metrics: deps.Metrics,
		logg:    deps.Logger,
		numbers: deps.Numbers,
		now:     deps.Now,
	}
	if svc.numbers == nil {
		svc.numbers = ordernumber.Generator{}
	}
	if svc.now == nil {
		svc.now = func() time.Time { return time.Now().UTC() }
	}
	return svc, nil
}

func (s *service) CreateOrder(ctx context.Context, userID uuid.UUID, input CreateOrderInput) (*OrderDTO, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := validateCreateOrder(input); err != nil {
		return nil, err
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		lines, err := s.priceLines(ctx, tx, input.Items)
		if err != nil {
			return err
		}
		order, err = s.Materialize(ctx, tx, userID, MaterializeInput{
			Lines:           lines,
			PaymentMethod:   input.PaymentMethod,
			ShippingAddress: input.ShippingAddress,
			Source:          SourceDirect,
		})
		return err
	})
	if err != nil {
		return nil, asStorage(err, "create order")
	}

	s.RecordPlaced(order, SourceDirect)
	dto := NewOrderDTO(order)
	return &dto, nil
}

// priceLines replaces submitted prices with the catalog's when a line resolves
// to a product. Lines that match nothing keep what the client sent.
func (s *service) priceLines(ctx context.Context, tx *gorm.DB, items []CreateOrderItem) ([]Line, error) {
	lines := make([]Line, 0, len(items))
	for _, item := range items {
		line := Line{
			ProductID:    item.ProductID,
			ProductName:  strings.TrimSpace(item.ProductName),
			ProductImage: item.ProductImage,
			Quantity:     item.Quantity,
			UnitPrice:    item.Price,
		}
		product, err := s.catalog.Resolve(ctx, tx, item.ProductID, line.ProductName)
		if err != nil {
			return nil, err
		}
		if product != nil {
			id := product.ID
			line.ProductID = &id
			line.ProductName = product.Name
			line.UnitPrice = product.Price
			if product.ImageURL != nil {
				line.ProductImage = product.ImageURL
			}
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *service) ListOrders(ctx context.Context, userID uuid.UUID, opts ListOrdersOptions) ([]OrderDTO, error) {
	rows, err := s.repo.ListForUser(ctx, userID, opts.IncludeCancelled)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list orders")
	}
	return newOrderDTOs(rows), nil
}

func (s *service) ListCancelledOrders(ctx context.Context, userID uuid.UUID) ([]OrderDTO, error) {
	rows, err := s.repo.ListCancelledForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list cancelled orders")
	}
	return newOrderDTOs(rows), nil
}

func (s *service) GetOrder(ctx context.Context, userID, orderID uuid.UUID) (*OrderDTO, error) {
	order, err := s.repo.FindForUser(ctx, userID, orderID)
	if err != nil {
		return nil, translateLookup(err)
	}
	dto := NewOrderDTO(order)
	return &dto, nil
}

func (s *service) CancelOrder(ctx context.Context, userID, orderID uuid.UUID, reason string) (*CancelResult, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation reason is required").
			WithDetails(map[string]string{"reason": "is required"})
	}

	var result CancelResult
	var previous enums.OrderStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockForUser(ctx, userID, orderID)
		if err != nil {
			return translateLookup(err)
		}
		if !order.Status.IsCancellable() {
			return invalidTransition(order.Status, enums.OrderStatusCancelled,
				fmt.Sprintf("order cannot be cancelled in status %s", order.Status))
		}

		now := s.now()
		previous = order.Status
		if _, err := repo.UpdateStatus(ctx, order.ID, enums.OrderStatusCancelled, now); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update order status")
		}
		if err := repo.CreateCancellation(ctx, &models.OrderCancellation{
			OrderID:            order.ID,
			UserID:             userID,
			CancellationReason: reason,
			CancelledAt:        now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "insert cancellation")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderCancelled,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.OrderCancelledEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         userID,
				PreviousStatus: previous,
				Reason:         reason,
				CancelledAt:    now,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "queue cancellation event")
		}

		result = CancelResult{ID: order.ID, OrderNumber: order.OrderNumber, Status: enums.OrderStatusCancelled}
		return nil
	})
	if err != nil {
		return nil, asStorage(err, "cancel order")
	}

	s.metrics.IncCancelled()
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":        result.ID.String(),
			"previous_status": previous,
		})
		s.logg.Info(logCtx, "order cancelled")
	}
	return &result, nil
}

func (s *service) AdvanceStatus(ctx context.Context, adminID, orderID uuid.UUID, next enums.OrderStatus) (*OrderDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": string(next)})
	}
	if next == enums.OrderStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "orders are cancelled through the cancellation flow").
			WithDetails(map[string]string{"status": string(next)})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.LockByID(ctx, orderID)
		if err != nil {
			return translateLookup(err)
		}
		if !order.Status.CanTransitionTo(next) {
			return invalidTransition(order.Status, next,
				fmt.Sprintf("cannot move order from %s to %s", order.Status, next))
		}

		previous := order.Status
		if _, err := repo.UpdateStatus(ctx, order.ID, next, s.now()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update order status")
		}

		event := outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: adminID, Role: string(enums.UserRoleAdmin)},
			Data: payloads.OrderStatusChangedEvent{
				OrderID:        order.ID,
				OrderNumber:    order.OrderNumber,
				UserID:         order.UserID,
				PreviousStatus: previous,
				Status:         next,
			},
		}
		if err := s.outbox.Emit(ctx, tx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "queue status event")
		}

		updated, err = repo.FindForUser(ctx, order.UserID, order.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "reload order")
		}
		return nil
	})
	if err != nil {
		return nil, asStorage(err, "advance order status")
	}

	s.metrics.IncStatusChange(string(next))
	dto := NewOrderDTO(updated)
	return &dto, nil
}

func (s *service) ListAllOrders(ctx context.Context, input AdminListInput) (*AdminOrderList, error) {
	if input.Status != nil && !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]string{"status": string(*input.Status)})
	}
	cursor, err := pagination.ParseCursor(input.Params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	limit := pagination.NormalizeLimit(input.Params.Limit)
	rows, err := s.repo.ListAll(ctx, AdminOrderQuery{
		Status: input.Status,
		Cursor: cursor,
		Limit:  pagination.LimitWithBuffer(limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list orders")
	}

	page, info := pagination.Trim(rows, limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{SortAt: o.OrderDate, ID: o.ID}
	})
	return &AdminOrderList{Orders: newOrderDTOs(page), Pagination: info}, nil
}

func validateCreateOrder(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "order must contain at least one item").
			WithDetails(map[string]string{"items": "must contain at least 1 item(s)"})
	}
	if strings.TrimSpace(input.PaymentMethod) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "payment method is required").
			WithDetails(map[string]string{"paymentMethod": "is required"})
	}
	details := map[string]string{}
	for i, item := range input.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(item.ProductName) == "" && item.ProductID == nil {
			details[prefix+"productName"] = "is required"
		}
		if item.Quantity < 1 {
			details[prefix+"quantity"] = "must be at least 1"
		}
		if item.Price.IsNegative() {
			details[prefix+"price"] = "must be greater than or equal to 0"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}

func invalidTransition(current, requested enums.OrderStatus, msg string) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, msg).WithDetails(map[string]string{
		"currentStatus":   string(current),
		"requestedStatus": string(requested),
	})
}

func translateLookup(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load order")
}

// asStorage leaves typed errors alone and classifies anything else (commit
// failures, driver errors) as a storage failure.
func asStorage(err error, op string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeStorage, err, op)
}
