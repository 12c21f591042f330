package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/storekit/fulfillment/internal/adapter/notify"
	"github.com/storekit/fulfillment/internal/config"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/usecase"
)

// PaymentProvider is the gateway capability the facade depends on; injected
// so tests can substitute a fake.
type PaymentProvider interface {
	Fetch(ctx context.Context, orderNumber string) (*model.PaymentCheck, error)
}

// HealthChecker reports storage connectivity.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// FulfillmentFacade aggregates the order-lifecycle operations exposed to
// HTTP handlers and the reconciliation worker.
type FulfillmentFacade struct {
	checkout       *usecase.CheckoutUseCase
	orders         *usecase.OrderUseCase
	webhooks       *usecase.WebhookUseCase
	payments       PaymentProvider
	notifier       notify.Sink
	health         HealthChecker
	reconcileAfter time.Duration
	logger         *slog.Logger
}

// NewFulfillmentFacade constructs the facade.
func NewFulfillmentFacade(
	checkout *usecase.CheckoutUseCase,
	orders *usecase.OrderUseCase,
	webhooks *usecase.WebhookUseCase,
	payments PaymentProvider,
	notifier notify.Sink,
	health HealthChecker,
	cfg *config.Config,
	logger *slog.Logger,
) *FulfillmentFacade {
	return &FulfillmentFacade{
		checkout:       checkout,
		orders:         orders,
		webhooks:       webhooks,
		payments:       payments,
		notifier:       notifier,
		health:         health,
		reconcileAfter: cfg.ReconcileAfter,
		logger:         logger,
	}
}

func (f *FulfillmentFacade) CreateOrder(ctx context.Context, in usecase.CheckoutInput) (*model.Order, error) {
	return f.checkout.CreateOrder(ctx, in)
}

func (f *FulfillmentFacade) Order(ctx context.Context, number string, identity model.Identity) (*model.Order, error) {
	return f.orders.Get(ctx, number, identity)
}

func (f *FulfillmentFacade) Orders(ctx context.Context, identity model.Identity) ([]model.Order, error) {
	return f.orders.ListByOwner(ctx, identity)
}

func (f *FulfillmentFacade) CancelOrder(ctx context.Context, number string, identity model.Identity, reason string) (*model.Order, error) {
	order, err := f.orders.Cancel(ctx, number, identity, reason)
	if err != nil {
		return nil, err
	}
	if err := f.notifier.OrderCancelled(ctx, order); err != nil {
		f.logger.Error("cancel notification failed", slog.String("order", order.Number), slog.String("error", err.Error()))
	}
	return order, nil
}

// HandleWebhook verifies and applies one gateway event; confirmation
// notifications go out only when the event actually changed state.
func (f *FulfillmentFacade) HandleWebhook(ctx context.Context, body []byte, signature string) (*usecase.WebhookResult, error) {
	result, err := f.webhooks.HandleEvent(ctx, body, signature)
	if err != nil {
		return nil, err
	}
	if result.Applied && result.OrderNumber != "" && model.PaymentEventType(result.EventType) == model.PaymentEventConfirmed {
		f.notifyConfirmed(ctx, result.OrderNumber)
	}
	return result, nil
}

func (f *FulfillmentFacade) SetOrderStatus(ctx context.Context, number string, to model.OrderStatus, actor string, comment *string) (*model.Order, error) {
	return f.orders.AdminSetStatus(ctx, number, to, actor, comment)
}

func (f *FulfillmentFacade) AdjustInventory(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error {
	return f.orders.AdminAdjustInventory(ctx, productID, variantID, delta, note)
}

// PendingPayments feeds the reconciler with unpaid orders old enough to poll.
func (f *FulfillmentFacade) PendingPayments(ctx context.Context, limit int) ([]model.Order, error) {
	return f.orders.PendingPaymentBatch(ctx, f.reconcileAfter, limit)
}

func (f *FulfillmentFacade) CheckPayment(ctx context.Context, orderNumber string) (*model.PaymentCheck, error) {
	return f.payments.Fetch(ctx, orderNumber)
}

func (f *FulfillmentFacade) SettlePayment(ctx context.Context, check *model.PaymentCheck) (bool, error) {
	applied, err := f.orders.SettlePayment(ctx, check)
	if err != nil {
		return false, err
	}
	if applied && check.Status == model.GatewayStatusPaid {
		f.notifyConfirmed(ctx, check.OrderNumber)
	}
	return applied, nil
}

func (f *FulfillmentFacade) HealthCheck(ctx context.Context) error {
	return f.health.HealthCheck(ctx)
}

func (f *FulfillmentFacade) notifyConfirmed(ctx context.Context, number string) {
	order, err := f.orders.AdminGet(ctx, number)
	if err != nil {
		f.logger.Error("load order for notification failed", slog.String("order", number), slog.String("error", err.Error()))
		return
	}
	if err := f.notifier.OrderConfirmed(ctx, order); err != nil {
		f.logger.Error("confirmation notification failed", slog.String("order", number), slog.String("error", err.Error()))
	}
}
