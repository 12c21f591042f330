package repository

import (
	"context"
	"time"

	"github.com/storekit/fulfillment/internal/domain/model"
)

// NewOrder carries everything needed to persist an order atomically:
// the priced quote, identity, address snapshots, and the optional source
// cart to clear. Inventory reservation, coupon usage accounting, and the
// order-number sequence all happen inside the same transaction.
type NewOrder struct {
	Identity       model.Identity
	Quote          *model.PriceQuote
	Billing        model.Address
	Shipping       model.Address
	CustomerNote   string
	ShippingMethod string
	CartID         *string
	PaymentStatus  model.PaymentStatus
	Status         model.OrderStatus
	PaymentRef     *string
	PaidAt         *time.Time
	Actor          *string
}

// OrderRepository owns the order aggregate and its transactional flows.
type OrderRepository interface {
	Create(ctx context.Context, in NewOrder) (*model.Order, error)
	GetByNumber(ctx context.Context, number string) (*model.Order, error)
	ListByOwner(ctx context.Context, identity model.Identity) ([]model.Order, error)

	// ConfirmPayment applies a verified payment_confirmed event against an
	// existing order: dedup on eventID, pending-only transition to
	// paid/processing, history rows. Returns false when the event or the
	// transition had already been applied.
	ConfirmPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error)

	// FailPayment applies a payment_failed event, pending-only.
	FailPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error)

	// CreateFromEvent materializes an order at confirmation time (legacy
	// cart-checkout-webhook shape) with the same reservation checks as
	// Create, deduplicated on eventID. Returns created=false on replay.
	CreateFromEvent(ctx context.Context, eventID string, in NewOrder) (*model.Order, bool, error)

	// Cancel releases reserved inventory and moves the order to cancelled;
	// rejected with ErrOrderNotCancellable once shipped.
	Cancel(ctx context.Context, number string, actor *string, reason string) (*model.Order, error)

	// SetStatus performs an admin-driven fulfillment transition.
	SetStatus(ctx context.Context, number string, to model.OrderStatus, actor *string, comment *string) (*model.Order, error)

	// SelectPendingPayment picks stale pending-payment orders for the
	// reconciler, bumping updated_at so re-polls back off.
	SelectPendingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error)

	History(ctx context.Context, orderID int64) ([]model.StatusHistory, error)
}

// InventoryRepository is the admin/audit surface of the inventory ledger.
// Order-flow reservation and release run inside order transactions and are
// not reachable outside them.
type InventoryRepository interface {
	Adjust(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error
	MovementsByReference(ctx context.Context, reference string) ([]model.InventoryMovement, error)
}
