package controllers

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/storefront-backend/api/responses"
	"github.com/angelmondragon/storefront-backend/api/validators"
	"github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
)

const maxOffset = 10000

// ProductsList returns the active catalog.
func ProductsList(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		input, err := parseProductQuery(r)
		if err != nil {
			return responses.Fail(err)
		}
		list, err := svc.ListProducts(r.Context(), input)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(list)
	})
}

func ProductDetail(svc products.Service, logg *logger.Logger) http.HandlerFunc {
	return serve(svc != nil, "products", logg, func(r *http.Request) (int, any, error) {
		productID, err := validators.ParseURLUUID(r, "productId")
		if err != nil {
			return responses.Fail(err)
		}
		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			return responses.Fail(err)
		}
		return responses.OK(map[string]any{"product": product})
	})
}

// parseProductQuery reads ?q, ?category, ?limit and ?offset.
func parseProductQuery(r *http.Request) (products.ListProductsInput, error) {
	var in products.ListProductsInput
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return in, err
	}
	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, maxOffset)
	if err != nil {
		return in, err
	}
	q := r.URL.Query()
	in.Search = validators.SanitizeString(q.Get("q"), 100)
	in.Category = strings.TrimSpace(q.Get("category"))
	in.Page = pagination.OffsetParams{Limit: limit, Offset: offset}
	return in, nil
}
