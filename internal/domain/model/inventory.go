package model

import "time"

// MovementType classifies a stock change.
type MovementType string

const (
	MovementSale       MovementType = "sale"
	MovementReturn     MovementType = "return"
	MovementAdjustment MovementType = "adjustment"
)

// InventoryMovement is an append-only audit record of one stock change.
// Quantity is signed; the sum of movements equals the stock delta.
// Reference is a weak link (order number), not a foreign key.
type InventoryMovement struct {
	ID        string
	ProductID int64
	VariantID *int64
	Type      MovementType
	Quantity  int64
	Reference *string
	Note      *string
	CreatedAt time.Time
}
