package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestShippingThreshold(t *testing.T) {
	cases := []struct {
		subtotal string
		fee      string
		total    string
	}{
		{subtotal: "99.99", fee: "10", total: "109.99"},
		{subtotal: "100.00", fee: "0", total: "100.00"},
		{subtotal: "150", fee: "0", total: "150"},
		{subtotal: "0", fee: "10", total: "10"},
	}

	for _, tc := range cases {
		t.Run(tc.subtotal, func(t *testing.T) {
			got := Compute([]Line{{Quantity: 1, UnitPrice: decimal.RequireFromString(tc.subtotal)}})
			if !got.ShippingFee.Equal(decimal.RequireFromString(tc.fee)) {
				t.Fatalf("fee: got %s want %s", got.ShippingFee, tc.fee)
			}
			if !got.Total.Equal(decimal.RequireFromString(tc.total)) {
				t.Fatalf("total: got %s want %s", got.Total, tc.total)
			}
		})
	}
}

func TestComputeWidgetGadget(t *testing.T) {
	got := Compute([]Line{
		{Quantity: 2, UnitPrice: decimal.RequireFromString("30.00")},
		{Quantity: 1, UnitPrice: decimal.RequireFromString("45.00")},
	})
	if got.Subtotal.StringFixed(2) != "105.00" {
		t.Fatalf("subtotal: got %s", got.Subtotal.StringFixed(2))
	}
	if !got.ShippingFee.IsZero() {
		t.Fatalf("expected free shipping, got %s", got.ShippingFee)
	}
	if got.Total.StringFixed(2) != "105.00" {
		t.Fatalf("total: got %s", got.Total.StringFixed(2))
	}
}

func TestComputeAvoidsFloatDrift(t *testing.T) {
	lines := make([]Line, 0, 10)
	for i := 0; i < 10; i++ {
		lines = append(lines, Line{Quantity: 1, UnitPrice: decimal.RequireFromString("0.10")})
	}
	got := Compute(lines)
	if got.Subtotal.String() != "1" {
		t.Fatalf("expected exact 1, got %s", got.Subtotal)
	}
	if got.Total.String() != "11" {
		t.Fatalf("expected 11, got %s", got.Total)
	}
}
