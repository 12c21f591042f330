package model

import "github.com/shopspring/decimal"

// QuoteLine is one priced cart line.
type QuoteLine struct {
	ProductID   int64
	VariantID   *int64
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int64
	Subtotal    decimal.Decimal
}

// PriceQuote is the full pricing breakdown for a cart.
// Total = Subtotal - Discount + Shipping + Tax; no component is negative.
type PriceQuote struct {
	Lines    []QuoteLine
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
	Currency string
	Coupon   *Coupon
}
