package model

import "github.com/shopspring/decimal"

// Product is a read-only catalog record; the catalog collaborator owns it,
// only stock_quantity is mutated here through the inventory ledger.
type Product struct {
	ID             int64
	Name           string
	SKU            string
	Price          decimal.Decimal
	Currency       string
	StockQuantity  int64
	TrackInventory bool
	AllowBackorder bool
	Active         bool
}

// Variant is a sellable configuration of a product with its own stock.
type Variant struct {
	ID              int64
	ProductID       int64
	Name            string
	SKU             string
	PriceAdjustment decimal.Decimal
	StockQuantity   int64
	TrackInventory  bool
	AllowBackorder  bool
	Active          bool
}

// Sellable reports whether quantity units can be committed at this stock level.
func Sellable(track, backorder bool, stock, quantity int64) bool {
	if !track || backorder {
		return true
	}
	return stock >= quantity
}
