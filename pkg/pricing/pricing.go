// Package pricing holds the order total rules shared by checkout and direct
// order creation.
package pricing

import "github.com/shopspring/decimal"

var (
	// FreeShippingThreshold is the subtotal at or above which shipping is waived.
	FreeShippingThreshold = decimal.NewFromInt(100)
	// FlatShippingFee is charged below the threshold.
	FlatShippingFee = decimal.NewFromInt(10)
)

// Line is the minimum a priced line needs to contribute to a subtotal.
type Line struct {
	Quantity  int
	UnitPrice decimal.Decimal
}

// Totals is the money summary persisted on an order.
type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// LineSubtotal returns price × quantity.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// ShippingFee applies the free-shipping threshold.
func ShippingFee(subtotal decimal.Decimal) decimal.Decimal {
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		return decimal.Zero
	}
	return FlatShippingFee
}

// Compute sums the lines and derives shipping and total.
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(LineSubtotal(line.UnitPrice, line.Quantity))
	}
	fee := ShippingFee(subtotal)
	return Totals{
		Subtotal:    subtotal,
		ShippingFee: fee,
		Total:       subtotal.Add(fee),
	}
}
