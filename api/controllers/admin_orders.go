package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type advanceStatusRequest struct {
	Status string `json:"status" validate:"required,notblank"`
}

// orderStatus parses a status from the query or body.
func orderStatus(raw, msg string) (enums.OrderStatus, error) {
	status, err := enums.ParseOrderStatus(strings.TrimSpace(raw))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, msg).
			WithDetails(map[string]string{"status": "unknown order status"})
	}
	return status, nil
}

// AdminOrdersList pages every order, optionally filtered by ?status=.
func AdminOrdersList(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "orders", logg, func(r *http.Request) (int, any, error) {
		params, err := parseCursorParams(r)
		if err != nil {
			return responses.Fail(err)
		}
		input := orders.AdminListInput{Params: params}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := orderStatus(raw, "invalid status filter")
			if err != nil {
				return responses.Fail(err)
			}
			input.Status = &status
		}
		list, err := svc.ListAllOrders(r.Context(), input)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(list)
	})
}

// AdminOrderStatus moves an order forward through fulfillment.
func AdminOrderStatus(svc orders.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "orders", logg, asCaller(func(r *http.Request, adminID uuid.UUID) (int, any, error) {
		orderID, err := validators.ParseURLUUID(r, "orderId")
		if err != nil {
			return responses.Fail(err)
		}
		body, err := validators.Decode[advanceStatusRequest](r)
		if err != nil {
			return responses.Fail(err)
		}
		next, err := orderStatus(body.Status, "invalid status")
		if err != nil {
			return responses.Fail(err)
		}
		order, err := svc.AdvanceStatus(r.Context(), adminID, orderID, next)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"success": true, "order": order})
	}))
}
