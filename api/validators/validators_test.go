package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

type lineRequest struct {
	ProductName string          `json:"productName" validate:"notblank"`
	Quantity    int             `json:"quantity" validate:"min=1"`
	Price       decimal.Decimal `json:"price" validate:"money"`
}

type orderRequest struct {
	Items         []lineRequest `json:"items" validate:"min=1,dive"`
	PaymentMethod string        `json:"paymentMethod" validate:"notblank"`
}

func newJSONRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	var req orderRequest
	err := DecodeJSONBody(newJSONRequest(`{"items":[{"productName":"Widget","quantity":2,"price":25.5}],"paymentMethod":"cod"}`), &req)
	require.NoError(t, err)
	assert.True(t, req.Items[0].Price.Equal(decimal.RequireFromString("25.50")))
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	var req orderRequest
	err := DecodeJSONBody(newJSONRequest(`{"items":[],"paymentMethod":"cod","coupon":"x"}`), &req)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	var req orderRequest
	err := DecodeJSONBody(newJSONRequest(`{"items":[{"productName":"  ","quantity":0,"price":-1}],"paymentMethod":""}`), &req)
	require.Error(t, err)

	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	details, ok := typed.Details().(map[string]string)
	require.True(t, ok)
	assert.Equal(t, "is required", details["items[0].productName"])
	assert.Equal(t, "must be at least 1", details["items[0].quantity"])
	assert.Contains(t, details, "items[0].price")
	assert.Equal(t, "is required", details["paymentMethod"])
}

func TestDecodeJSONBodyRejectsEmptyItems(t *testing.T) {
	var req orderRequest
	err := DecodeJSONBody(newJSONRequest(`{"items":[],"paymentMethod":"cod"}`), &req)
	require.Error(t, err)
	details := pkgerrors.As(err).Details().(map[string]string)
	assert.Equal(t, "must contain at least 1 item(s)", details["items"])
}

func TestMoneyRejectsSubCentPrecision(t *testing.T) {
	var req lineRequest
	err := DecodeJSONBody(newJSONRequest(`{"productName":"Widget","quantity":1,"price":"1.005"}`), &req)
	require.Error(t, err)
}

func TestDecodeOptionalJSONBodyAllowsEmpty(t *testing.T) {
	var req struct {
		Reason *string `json:"reason"`
	}
	require.NoError(t, DecodeOptionalJSONBody(newJSONRequest(""), &req))
	assert.Nil(t, req.Reason)

	require.Error(t, DecodeJSONBody(newJSONRequest(""), &req))
}

func TestParseBearer(t *testing.T) {
	token, err := ParseBearer("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = ParseBearer("bearer   xyz ")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, bad := range []string{"", "Bearer", "Bearer   ", "Basic abc", "Bearerabc"} {
		_, err := ParseBearer(bad)
		assert.ErrorIs(t, err, ErrInvalidToken, bad)
	}
}

func TestParseQueryInt(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?limit=5&offset=abc&big=500", nil)

	v, err := ParseQueryInt(r, "limit", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 5, v)

	v, err = ParseQueryInt(r, "missing", 25, 1, 100)
	require.NoError(t, err)
	assert.Equal(t, 25, v)

	_, err = ParseQueryInt(r, "offset", 0, 0, 100)
	assert.Error(t, err)

	_, err = ParseQueryInt(r, "big", 0, 0, 100)
	assert.Error(t, err)
}

func TestParseURLUUID(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/orders/nope", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("orderId", "nope")
	r = r.WithContext(contextWithRoute(r, rctx))

	_, err := ParseURLUUID(r, "orderId")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestSanitizeHelpers(t *testing.T) {
	assert.Equal(t, "abc", SanitizeString("  abcdef ", 3))
	assert.Equal(t, "caf", SanitizeString("café", 4), "a cap inside a rune drops the whole rune")
	assert.Equal(t, "café", SanitizeString("café", 5))
	assert.Equal(t, "ab", SanitizeString("ab cd", 3))
	blank := "   "
	assert.Nil(t, SanitizeOptional(&blank, 0))
	assert.Nil(t, SanitizeOptional(nil, 10))
}

func TestParseQueryBool(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?mine=true&bad=maybe", nil)
	v, err := ParseQueryBool(r, "mine")
	require.NoError(t, err)
	assert.True(t, v)

	v, err = ParseQueryBool(r, "absent")
	require.NoError(t, err)
	assert.False(t, v)

	_, err = ParseQueryBool(r, "bad")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func contextWithRoute(r *http.Request, rctx *chi.Context) context.Context {
	return context.WithValue(r.Context(), chi.RouteCtxKey, rctx)
}
