package cart

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// addAttempts bounds retries when two first adds of the same product race on
// the (user_id, product_name) unique key.
const addAttempts = 2

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the shopper cart and the checkout transaction.
type Service interface {
	ListCart(ctx context.Context, userID uuid.UUID) ([]CartItemDTO, error)
	AddToCart(ctx context.Context, userID uuid.UUID, input AddItemInput) (uuid.UUID, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error
	ClearCart(ctx context.Context, userID uuid.UUID) error
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*orders.OrderSummary, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	orders orders.Materializer
	logg   *logger.Logger
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, tx txRunner, materializer orders.Materializer, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if materializer == nil {
		return nil, fmt.Errorf("order materializer required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		orders: materializer,
		logg:   logg,
	}, nil
}

func (s *service) ListCart(ctx context.Context, userID uuid.UUID) ([]CartItemDTO, error) {
	items, err := s.repo.ListForUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "list cart")
	}
	return newCartItemDTOs(items), nil
}

// AddToCart inserts a line or, when the user already holds the product,
// accumulates the quantity onto the existing row and returns its id.
func (s *service) AddToCart(ctx context.Context, userID uuid.UUID, input AddItemInput) (uuid.UUID, error) {
	input.ProductName = strings.TrimSpace(input.ProductName)
	if err := validateAddItem(input); err != nil {
		return uuid.Nil, err
	}

	var (
		itemID uuid.UUID
		err    error
	)
	for attempt := 0; attempt < addAttempts; attempt++ {
		itemID, err = s.addOnce(ctx, userID, input)
		if err == nil || !db.IsUniqueViolation(err, "") {
			break
		}
	}
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "add to cart")
	}
	return itemID, nil
}

func (s *service) addOnce(ctx context.Context, userID uuid.UUID, input AddItemInput) (uuid.UUID, error) {
	var itemID uuid.UUID
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		existing, err := repo.LockByName(ctx, userID, input.ProductName)
		switch {
		case err == nil:
			itemID = existing.ID
			return repo.AddQuantity(ctx, existing.ID, input.Quantity)
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return err
		}

		item := &models.CartItem{
			UserID:       userID,
			ProductName:  input.ProductName,
			ProductImage: input.ProductImage,
			Quantity:     input.Quantity,
			Price:        input.Price,
		}
		if err := repo.Create(ctx, item); err != nil {
			return err
		}
		itemID = item.ID
		return nil
	})
	return itemID, err
}

func (s *service) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int) error {
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}
	affected, err := s.repo.SetQuantity(ctx, userID, itemID, quantity)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "update cart item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, itemID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "remove cart item")
	}
	if affected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return nil
}

func (s *service) ClearCart(ctx context.Context, userID uuid.UUID) error {
	if _, err := s.repo.DeleteForUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear cart")
	}
	return nil
}

// Checkout converts the locked cart into a pending order and empties the cart
// in the same transaction. A checkout that waited on another one's locks finds
// the cart empty.
func (s *service) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*orders.OrderSummary, error) {
	paymentMethod := strings.TrimSpace(input.PaymentMethod)
	if paymentMethod == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment method is required").
			WithDetails(map[string]string{"paymentMethod": "is required"})
	}

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		items, err := repo.LockForUser(ctx, userID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "load cart")
		}
		if len(items) == 0 {
			return pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}

		lines := make([]orders.Line, 0, len(items))
		for _, item := range items {
			lines = append(lines, orders.Line{
				ProductName:  item.ProductName,
				ProductImage: item.ProductImage,
				Quantity:     item.Quantity,
				UnitPrice:    item.Price,
			})
		}

		order, err = s.orders.Materialize(ctx, tx, userID, orders.MaterializeInput{
			Lines:           lines,
			PaymentMethod:   paymentMethod,
			ShippingAddress: input.ShippingAddress,
			Source:          orders.SourceCart,
		})
		if err != nil {
			return err
		}

		if _, err := repo.DeleteForUser(ctx, userID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clear cart after checkout")
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) == nil {
			err = pkgerrors.Wrap(pkgerrors.CodeStorage, err, "checkout")
		}
		return nil, err
	}

	s.orders.RecordPlaced(order, orders.SourceCart)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"item_count":   len(order.Items),
		})
		s.logg.Info(logCtx, "checkout completed")
	}

	summary := orders.NewOrderSummary(order)
	return &summary, nil
}

func validateAddItem(input AddItemInput) error {
	details := map[string]string{}
	if input.ProductName == "" {
		details["productName"] = "is required"
	}
	if input.Quantity < 1 {
		details["quantity"] = "must be at least 1"
	}
	if input.Price.IsNegative() {
		details["price"] = "must be greater than or equal to 0"
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}
