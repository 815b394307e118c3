package responses

import (
	"net/http"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Endpoint computes one response. When err is set the other results are
// ignored and err is rendered as the error envelope.
type Endpoint func(r *http.Request) (status int, payload any, err error)

func Handle(logg *logger.Logger, ep Endpoint) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, payload, err := ep(r)
		if err != nil {
			WriteError(r.Context(), logg, w, err)
			return
		}
		writeJSON(w, status, payload)
	}
}

// Unwired answers every request with 500. Routes get it when the service
// behind them was never constructed.
func Unwired(logg *logger.Logger, service string) http.HandlerFunc {
	return Handle(logg, func(*http.Request) (int, any, error) {
		return Fail(pkgerrors.New(pkgerrors.CodeInternal, service+" service unavailable"))
	})
}

func OK(payload any) (int, any, error) { return http.StatusOK, payload, nil }

func Created(payload any) (int, any, error) { return http.StatusCreated, payload, nil }

func Accepted(payload any) (int, any, error) { return http.StatusAccepted, payload, nil }

// Acked is OK with {"success": true}.
func Acked() (int, any, error) { return OK(types.Ack()) }

func Fail(err error) (int, any, error) { return 0, nil, err }
