// Package cart serves /api/cart for the signed-in customer.
package cart

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	internalcart "github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// callerEndpoint is an endpoint that already knows who is asking.
type callerEndpoint func(r *http.Request, userID uuid.UUID) (int, any, error)

func forCaller(svc internalcart.Service, logg *logger.Logger, ep callerEndpoint) http.HandlerFunc {
	if svc == nil {
		return responses.Unwired(logg, "cart")
	}
	return responses.Handle(logg, func(r *http.Request) (int, any, error) {
		userID, err := middleware.Caller(r)
		if err != nil {
			return responses.Fail(err)
		}
		return ep(r, userID)
	})
}

// List returns the caller's cart, newest items first.
func List(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		items, err := svc.ListCart(r.Context(), userID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"cartItems": items})
	})
}

// Add merges into an existing line with the same product name or creates one.
func Add(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[addItemRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		itemID, err := svc.AddToCart(r.Context(), userID, body.toInput())
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "itemId": itemID})
	})
}

func UpdateQuantity(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		itemID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			return responses.Fail(err)
		}
		body, err := validators.Decode[updateQuantityRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.UpdateQuantity(r.Context(), userID, itemID, body.Quantity); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}

func Remove(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		itemID, err := validators.ParseURLUUID(r, "itemId")
		if err != nil {
			return responses.Fail(err)
		}
		if err := svc.RemoveItem(r.Context(), userID, itemID); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}

func Clear(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		if err := svc.ClearCart(r.Context(), userID); err != nil {
			return responses.Fail(err)
		}
		return responses.Acked()
	})
}

// Checkout converts the cart into an order and empties it atomically.
func Checkout(svc internalcart.Service, logg *logger.Logger) http.HandlerFunc {
	return forCaller(svc, logg, func(r *http.Request, userID uuid.UUID) (int, any, error) {
		body, err := validators.Decode[checkoutRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		summary, err := svc.Checkout(r.Context(), userID, body.toInput())
		if err != nil {
			return responses.Fail(err)
		}
		return responses.Created(map[string]any{"success": true, "order": summary})
	})
}
