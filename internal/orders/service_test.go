package orders

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

func TestCreateOrderComputesTotalsAndEmitsEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(
		item("Widget", 3, "20.00"),
		item("Gadget", 3, "15.00"),
	))
	require.NoError(t, err)

	assert.Equal(t, enums.OrderStatusPending, order.Status)
	assert.Equal(t, "105.00", order.Subtotal)
	assert.Equal(t, "0.00", order.ShippingFee)
	assert.Equal(t, "105.00", order.Total)
	assert.True(t, strings.HasPrefix(order.OrderNumber, "ORD-"))
	require.Len(t, order.Items, 2)
	assert.Equal(t, "60.00", order.Items[0].Subtotal)
	assert.Equal(t, "45.00", order.Items[1].Subtotal)

	assert.EqualValues(t, 1, countRows(t, f.conn, &models.Order{}, ""))
	assert.EqualValues(t, 2, countRows(t, f.conn, &models.OrderItem{}, "order_id = ?", order.ID))
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderCreated))

	placed, err := testutil.GatherAndCount(f.reg, "orders_placed_total")
	require.NoError(t, err)
	assert.Equal(t, 1, placed)
}

func TestOrderItemsKeepSubmissionOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(
		item("Zipper", 1, "3.00"),
		item("Anchor", 1, "5.00"),
		item("Mug", 2, "7.50"),
	))
	require.NoError(t, err)

	order, err := f.svc.GetOrder(ctx, f.userID, created.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(order.Items))
	for _, it := range order.Items {
		names = append(names, it.ProductName)
	}
	assert.Equal(t, []string{"Zipper", "Anchor", "Mug"}, names)

	var lines []int
	require.NoError(t, f.conn.Model(&models.OrderItem{}).
		Where("order_id = ?", created.ID).
		Order("line_no ASC").
		Pluck("line_no", &lines).Error)
	assert.Equal(t, []int{1, 2, 3}, lines)
}

func TestCreateOrderAppliesShippingBelowThreshold(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.CreateOrder(context.Background(), f.userID, simpleOrder(item("Socks", 1, "99.99")))
	require.NoError(t, err)
	assert.Equal(t, "10.00", order.ShippingFee)
	assert.Equal(t, "109.99", order.Total)
}

func TestCreateOrderRepricesFromCatalog(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	widget := mustCreateProduct(t, f.conn, "Widget", "20.00")

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(
		item("Widget", 3, "1.00"),
		item("Hand-made Card", 1, "4.50"),
	))
	require.NoError(t, err)

	var widgetLine, cardLine *OrderItemDTO
	for i := range order.Items {
		switch order.Items[i].ProductName {
		case "Widget":
			widgetLine = &order.Items[i]
		case "Hand-made Card":
			cardLine = &order.Items[i]
		}
	}
	require.NotNil(t, widgetLine)
	require.NotNil(t, cardLine)
	assert.Equal(t, "20.00", widgetLine.Price)
	require.NotNil(t, widgetLine.ProductID)
	assert.Equal(t, widget.ID, *widgetLine.ProductID)
	assert.Equal(t, "4.50", cardLine.Price)
	assert.Nil(t, cardLine.ProductID)
	assert.Equal(t, "64.50", order.Subtotal)
	assert.Equal(t, "74.50", order.Total)
}

func TestCreateOrderRejectsUnknownProductID(t *testing.T) {
	f := newFixture(t)
	missing := uuid.New()

	_, err := f.svc.CreateOrder(context.Background(), f.userID, CreateOrderInput{
		Items:         []CreateOrderItem{{ProductID: &missing, ProductName: "Ghost", Quantity: 1, Price: decimal.NewFromInt(1)}},
		PaymentMethod: "card",
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
	assert.EqualValues(t, 0, countRows(t, f.conn, &models.Order{}, ""))
}

func TestCreateOrderValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]CreateOrderInput{
		"no items":        {PaymentMethod: "card"},
		"blank payment":   {Items: []CreateOrderItem{item("Widget", 1, "1")}, PaymentMethod: "  "},
		"zero quantity":   {Items: []CreateOrderItem{item("Widget", 0, "1")}, PaymentMethod: "card"},
		"negative price":  {Items: []CreateOrderItem{item("Widget", 1, "-1")}, PaymentMethod: "card"},
		"blank item name": {Items: []CreateOrderItem{item("  ", 1, "1")}, PaymentMethod: "card"},
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateOrder(ctx, f.userID, input)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}
	assert.EqualValues(t, 0, countRows(t, f.conn, &models.Order{}, ""))
}

func TestCancelOrderGuard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	shipped, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)
	setStatus(t, f.conn, shipped.ID, enums.OrderStatusShipped)

	_, err = f.svc.CancelOrder(ctx, f.userID, shipped.ID, "too slow")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidState, typed.Code())
	assert.Equal(t, "shipped", typed.Details().(map[string]string)["currentStatus"])
	assert.EqualValues(t, 0, countRows(t, f.conn, &models.OrderCancellation{}, "order_id = ?", shipped.ID))

	reloaded, err := f.svc.GetOrder(ctx, f.userID, shipped.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusShipped, reloaded.Status)

	pending, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Gadget", 1, "15")))
	require.NoError(t, err)

	result, err := f.svc.CancelOrder(ctx, f.userID, pending.ID, "  changed my mind  ")
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusCancelled, result.Status)
	assert.Equal(t, pending.OrderNumber, result.OrderNumber)

	var cancellations []models.OrderCancellation
	require.NoError(t, f.conn.Where("order_id = ?", pending.ID).Find(&cancellations).Error)
	require.Len(t, cancellations, 1)
	assert.Equal(t, "changed my mind", cancellations[0].CancellationReason)
	assert.Equal(t, f.userID, cancellations[0].UserID)
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderCancelled))
}

func TestCancelOrderFromProcessing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)
	setStatus(t, f.conn, order.ID, enums.OrderStatusProcessing)

	_, err = f.svc.CancelOrder(ctx, f.userID, order.ID, "duplicate")
	require.NoError(t, err)
}

func TestDoubleCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, f.userID, order.ID, "first")
	require.NoError(t, err)

	_, err = f.svc.CancelOrder(ctx, f.userID, order.ID, "second")
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInvalidState, typed.Code())
	assert.Equal(t, "cancelled", typed.Details().(map[string]string)["currentStatus"])
	assert.EqualValues(t, 1, countRows(t, f.conn, &models.OrderCancellation{}, "order_id = ?", order.ID))
}

func TestCancelOrderRequiresReasonBeforeLookup(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CancelOrder(context.Background(), f.userID, uuid.New(), "   ")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)

	_, err = f.svc.GetOrder(ctx, f.otherID, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	_, err = f.svc.CancelOrder(ctx, f.otherID, order.ID, "not mine")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	list, err := f.svc.ListOrders(ctx, f.otherID, ListOrdersOptions{})
	require.NoError(t, err)
	assert.Empty(t, list)

	mine, err := f.svc.GetOrder(ctx, f.userID, order.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusPending, mine.Status)
	assert.EqualValues(t, 0, countRows(t, f.conn, &models.OrderCancellation{}, ""))
}

func TestListOrdersAndCancelled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)
	dropped, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Gadget", 1, "15")))
	require.NoError(t, err)
	_, err = f.svc.CancelOrder(ctx, f.userID, dropped.ID, "found it cheaper")
	require.NoError(t, err)

	active, err := f.svc.ListOrders(ctx, f.userID, ListOrdersOptions{})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, kept.ID, active[0].ID)
	require.Len(t, active[0].Items, 1)

	all, err := f.svc.ListOrders(ctx, f.userID, ListOrdersOptions{IncludeCancelled: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	cancelled, err := f.svc.ListCancelledOrders(ctx, f.userID)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, dropped.ID, cancelled[0].ID)
	require.NotNil(t, cancelled[0].CancellationReason)
	assert.Equal(t, "found it cheaper", *cancelled[0].CancellationReason)
	assert.NotNil(t, cancelled[0].CancelledAt)
}

func TestAdvanceStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	adminID := uuid.New()

	order, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)

	updated, err := f.svc.AdvanceStatus(ctx, adminID, order.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderStatusProcessing, updated.Status)
	assert.Len(t, updated.Items, 1)

	_, err = f.svc.AdvanceStatus(ctx, adminID, order.ID, enums.OrderStatusDelivered)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	_, err = f.svc.AdvanceStatus(ctx, adminID, order.ID, enums.OrderStatusCancelled)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AdvanceStatus(ctx, adminID, order.ID, enums.OrderStatus("lost"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = f.svc.AdvanceStatus(ctx, adminID, uuid.New(), enums.OrderStatusShipped)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	for _, next := range []enums.OrderStatus{enums.OrderStatusShipped, enums.OrderStatusDelivered} {
		_, err = f.svc.AdvanceStatus(ctx, adminID, order.ID, next)
		require.NoError(t, err)
	}
	_, err = f.svc.CancelOrder(ctx, f.userID, order.ID, "too late")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidState))

	assert.EqualValues(t, 3, countRows(t, f.conn, &models.OutboxEvent{}, "event_type = ?", enums.EventOrderStatusChanged))
}

func TestListAllOrdersPaginates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
		require.NoError(t, err)
	}
	other, err := f.svc.CreateOrder(ctx, f.otherID, simpleOrder(item("Gadget", 1, "15")))
	require.NoError(t, err)
	_, err = f.svc.AdvanceStatus(ctx, uuid.New(), other.ID, enums.OrderStatusProcessing)
	require.NoError(t, err)

	first, err := f.svc.ListAllOrders(ctx, AdminListInput{Params: pagination.Params{Limit: 3}})
	require.NoError(t, err)
	require.Len(t, first.Orders, 3)
	require.True(t, first.Pagination.HasMore)

	second, err := f.svc.ListAllOrders(ctx, AdminListInput{Params: pagination.Params{Limit: 3, Cursor: first.Pagination.NextCursor}})
	require.NoError(t, err)
	require.Len(t, second.Orders, 1)
	assert.False(t, second.Pagination.HasMore)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(first.Orders, second.Orders...) {
		assert.False(t, seen[o.ID], "order listed twice")
		seen[o.ID] = true
	}

	processing := enums.OrderStatusProcessing
	filtered, err := f.svc.ListAllOrders(ctx, AdminListInput{Status: &processing})
	require.NoError(t, err)
	require.Len(t, filtered.Orders, 1)
	assert.Equal(t, other.ID, filtered.Orders[0].ID)

	_, err = f.svc.ListAllOrders(ctx, AdminListInput{Params: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestOrderNumberCollisionRetries(t *testing.T) {
	numbers := &fixedNumbers{values: []string{"ORD-20260101000000-AAAAAAAA"}}
	f := newFixture(t, func(d *Deps) { d.Numbers = numbers })
	ctx := context.Background()

	_, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)

	numbers.values = []string{"ORD-20260101000000-AAAAAAAA", "ORD-20260101000000-BBBBBBBB"}
	numbers.calls = 0
	second, err := f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	require.NoError(t, err)
	assert.Equal(t, "ORD-20260101000000-BBBBBBBB", second.OrderNumber)
	assert.Equal(t, 2, numbers.calls)

	numbers.values = []string{"ORD-20260101000000-AAAAAAAA"}
	numbers.calls = 0
	_, err = f.svc.CreateOrder(ctx, f.userID, simpleOrder(item("Widget", 1, "20")))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStorage))
	assert.Equal(t, maxOrderNumberTries, numbers.calls)
	assert.EqualValues(t, 2, countRows(t, f.conn, &models.Order{}, ""))
}
