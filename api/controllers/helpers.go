package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/storefront-backend/api/middleware"
	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

// serve adapts ep, or answers 500 for every request when the service behind
// it was not wired.
func serve(wired bool, service string, logg *logger.Logger, ep responses.Endpoint) http.HandlerFunc {
	if !wired {
		return responses.Unwired(logg, service)
	}
	return responses.Handle(logg, ep)
}

// asCaller resolves the signed-in user before running ep.
func asCaller(ep func(r *http.Request, userID uuid.UUID) (int, any, error)) responses.Endpoint {
	return func(r *http.Request) (int, any, error) {
		userID, err := middleware.Caller(r)
		if err != nil {
			return responses.Fail(err)
		}
		return ep(r, userID)
	}
}

func parseCursorParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}
