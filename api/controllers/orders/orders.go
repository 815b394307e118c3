// Package orders serves /api/orders for the signed-in customer.
package orders

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalorders "github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type callerEndpoint func(r *http.Request, userID uuid.UUID) (int, any, error)

func forCaller(svc internalorders.Service, logg *logger.Logger, ep callerEndpoint) http.HandlerFunc {
	if svc == nil {
		return responses.Unwired(logg, "orders")
	}
	return responses.Handle(logg, func(r *http.Request) (int, any, error) {
		userID, err := middleware.Caller(r)
		if err != nil {
			return responses.Fail(err)
		}
		return ep(r, userID)
	})
}

// List returns the caller's orders, newest first. Cancelled orders are left
// out unless ?includeCancelled=true.
func List(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		includeCancelled, err := validators.ParseQueryBool(r, "includeCancelled")
		if err != nil {
			return responses.Fail(err)
		}
		list, err := svc.ListOrders(r.Context(), userID, internalorders.ListOrdersOptions{IncludeCancelled: includeCancelled})
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"orders": list})
	})
}

func ListCancelled(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		list, err := svc.ListCancelledOrders(r.Context(), userID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"orders": list})
	})
}

// Detail returns one order. Orders owned by someone else are reported as missing.
func Detail(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return responses.Fail(err)
		}
		order, err := svc.GetOrder(r.Context(), userID, orderID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"order": order})
	})
}

func Create(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[createOrderRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		order, err := svc.CreateOrder(r.Context(), userID, body.toInput())
		if err != nil {
			return responses.Fail(err)
		}
		return responses.Created(map[string]any{"success": true, "order": order})
	})
}

func Cancel(svc internalorders.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return responses.Fail(err)
		}
		body, err := validators.Decode[cancelOrderRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		result, err := svc.CancelOrder(r.Context(), userID, orderID, body.Reason)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "order": result})
	})
}
