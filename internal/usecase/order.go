package usecase

import (
	"context"
	"fmt"
	"time"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
)

// OrderUseCase covers the order lifecycle after creation: owner reads,
// cancellation, admin transitions, and the reconciliation feed.
type OrderUseCase struct {
	orders    repository.OrderRepository
	inventory repository.InventoryRepository
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, inventory repository.InventoryRepository) *OrderUseCase {
	return &OrderUseCase{orders: orders, inventory: inventory}
}

func ownedBy(order *model.Order, identity model.Identity) bool {
	if identity.UserID != nil && order.UserID != nil {
		return *identity.UserID == *order.UserID
	}
	if identity.GuestEmail != nil && order.GuestEmail != nil {
		return *identity.GuestEmail == *order.GuestEmail
	}
	return false
}

// Get returns an order if the identity owns it.
func (u *OrderUseCase) Get(ctx context.Context, number string, identity model.Identity) (*model.Order, error) {
	order, err := u.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !ownedBy(order, identity) {
		return nil, domainErrors.ErrForbidden
	}
	return order, nil
}

// ListByOwner returns the identity's orders, newest first.
func (u *OrderUseCase) ListByOwner(ctx context.Context, identity model.Identity) ([]model.Order, error) {
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: identity required", domainErrors.ErrValidation)
	}
	return u.orders.ListByOwner(ctx, identity)
}

// Cancel cancels an owned order, restoring exactly the reserved quantities.
func (u *OrderUseCase) Cancel(ctx context.Context, number string, identity model.Identity, reason string) (*model.Order, error) {
	order, err := u.orders.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !ownedBy(order, identity) {
		return nil, domainErrors.ErrForbidden
	}

	actor := identityActor(identity)
	return u.orders.Cancel(ctx, number, &actor, reason)
}

// AdminSetStatus performs an admin-driven fulfillment transition; a
// transition to cancelled routes through Cancel so stock is released.
func (u *OrderUseCase) AdminSetStatus(ctx context.Context, number string, to model.OrderStatus, actor string, comment *string) (*model.Order, error) {
	if !model.ValidOrderStatus(to) {
		return nil, fmt.Errorf("%w: unknown status %q", domainErrors.ErrValidation, to)
	}
	if to == model.OrderStatusCancelled {
		reason := ""
		if comment != nil {
			reason = *comment
		}
		return u.orders.Cancel(ctx, number, &actor, reason)
	}
	return u.orders.SetStatus(ctx, number, to, &actor, comment)
}

// AdminAdjustInventory applies a manual stock correction with an audit
// movement; not part of the order flow.
func (u *OrderUseCase) AdminAdjustInventory(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error {
	return u.inventory.Adjust(ctx, productID, variantID, delta, note)
}

// PendingPaymentBatch feeds the reconciler with stale unpaid orders.
func (u *OrderUseCase) PendingPaymentBatch(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	return u.orders.SelectPendingPayment(ctx, olderThan, limit)
}

// SettlePayment applies a gateway poll result with the same dedup and
// status-conditioned transitions as the webhook path. The deterministic
// event id keeps polling idempotent and commutative with webhooks.
func (u *OrderUseCase) SettlePayment(ctx context.Context, check *model.PaymentCheck) (bool, error) {
	switch check.Status {
	case model.GatewayStatusPaid:
		eventID := fmt.Sprintf("reconcile:paid:%s", check.OrderNumber)
		return u.orders.ConfirmPayment(ctx, eventID, check.OrderNumber, check.PaymentRef)
	case model.GatewayStatusFailed:
		eventID := fmt.Sprintf("reconcile:failed:%s", check.OrderNumber)
		return u.orders.FailPayment(ctx, eventID, check.OrderNumber, check.PaymentRef)
	default:
		return false, nil
	}
}

// AdminGet loads an order without an ownership check.
func (u *OrderUseCase) AdminGet(ctx context.Context, number string) (*model.Order, error) {
	return u.orders.GetByNumber(ctx, number)
}

// History returns the append-only transition log for an order.
func (u *OrderUseCase) History(ctx context.Context, orderID int64) ([]model.StatusHistory, error) {
	return u.orders.History(ctx, orderID)
}

func identityActor(identity model.Identity) string {
	if identity.UserID != nil {
		return fmt.Sprintf("user:%d", *identity.UserID)
	}
	if identity.GuestEmail != nil {
		return fmt.Sprintf("guest:%s", *identity.GuestEmail)
	}
	return "unknown"
}
