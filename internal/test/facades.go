package test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/usecase"
)

// OrderFacadeStub provides controllable behaviour for order endpoints.
type OrderFacadeStub struct {
	CreateFn func(context.Context, usecase.CheckoutInput) (*model.Order, error)
	OrderFn  func(context.Context, string, model.Identity) (*model.Order, error)
	OrdersFn func(context.Context, model.Identity) ([]model.Order, error)
	CancelFn func(context.Context, string, model.Identity, string) (*model.Order, error)
}

// CreateOrder delegates to the override or returns a default pending order.
func (s OrderFacadeStub) CreateOrder(ctx context.Context, in usecase.CheckoutInput) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	return defaultOrder("ORD-20260115-0001"), nil
}

// Order returns the configured order view.
func (s OrderFacadeStub) Order(ctx context.Context, number string, identity model.Identity) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, number, identity)
	}
	return defaultOrder(number), nil
}

// Orders returns predefined orders for the given owner.
func (s OrderFacadeStub) Orders(ctx context.Context, identity model.Identity) ([]model.Order, error) {
	if s.OrdersFn != nil {
		return s.OrdersFn(ctx, identity)
	}
	return []model.Order{*defaultOrder("ORD-20260115-0001")}, nil
}

// CancelOrder delegates to the override or returns a cancelled order.
func (s OrderFacadeStub) CancelOrder(ctx context.Context, number string, identity model.Identity, reason string) (*model.Order, error) {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, number, identity, reason)
	}
	order := defaultOrder(number)
	order.Status = model.OrderStatusCancelled
	return order, nil
}

// WebhookFacadeStub simulates gateway event handling.
type WebhookFacadeStub struct {
	HandleFn func(context.Context, []byte, string) (*usecase.WebhookResult, error)
}

// HandleWebhook delegates to the override or acknowledges as applied.
func (s WebhookFacadeStub) HandleWebhook(ctx context.Context, body []byte, signature string) (*usecase.WebhookResult, error) {
	if s.HandleFn != nil {
		return s.HandleFn(ctx, body, signature)
	}
	return &usecase.WebhookResult{EventID: "evt-1", Applied: true}, nil
}

// AdminFacadeStub simulates back-office operations.
type AdminFacadeStub struct {
	SetStatusFn func(context.Context, string, model.OrderStatus, string, *string) (*model.Order, error)
	AdjustFn    func(context.Context, int64, *int64, int64, string) error
}

// SetOrderStatus delegates to the override or echoes the transition.
func (s AdminFacadeStub) SetOrderStatus(ctx context.Context, number string, to model.OrderStatus, actor string, comment *string) (*model.Order, error) {
	if s.SetStatusFn != nil {
		return s.SetStatusFn(ctx, number, to, actor, comment)
	}
	order := defaultOrder(number)
	order.Status = to
	return order, nil
}

// AdjustInventory executes the configured adjustment handler.
func (s AdminFacadeStub) AdjustInventory(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, productID, variantID, delta, note)
	}
	return nil
}

// HealthFacadeStub reports configured service health.
type HealthFacadeStub struct {
	Err error
}

// HealthCheck returns the configured error.
func (s HealthFacadeStub) HealthCheck(ctx context.Context) error {
	return s.Err
}

// FulfillmentFacadeStub aggregates facade stubs for HTTP layer tests.
type FulfillmentFacadeStub struct {
	OrderFacadeStub
	WebhookFacadeStub
	AdminFacadeStub
	HealthFacadeStub
}

// SettleCall stores information about SettlePayment invocations.
type SettleCall struct {
	OrderNumber string
	Status      model.GatewayStatus
}

// WorkerFacadeStub mimics reconciler interactions with the application facade.
type WorkerFacadeStub struct {
	Batches   [][]model.Order
	PendingFn func(context.Context, int) ([]model.Order, error)
	CheckFn   func(context.Context, string) (*model.PaymentCheck, error)
	SettleFn  func(context.Context, *model.PaymentCheck) (bool, error)
	Settled   []SettleCall

	mu             sync.Mutex
	batchCallCount int32
}

// Lock exposes internal mutex for external synchronization.
func (s *WorkerFacadeStub) Lock() { s.mu.Lock() }

// Unlock releases previously acquired lock.
func (s *WorkerFacadeStub) Unlock() { s.mu.Unlock() }

// PendingPayments returns batches from the configured queue.
func (s *WorkerFacadeStub) PendingPayments(ctx context.Context, limit int) ([]model.Order, error) {
	if s.PendingFn != nil {
		return s.PendingFn(ctx, limit)
	}
	call := atomic.AddInt32(&s.batchCallCount, 1)
	if int(call) <= len(s.Batches) {
		return s.Batches[call-1], nil
	}
	time.Sleep(10 * time.Millisecond)
	return nil, nil
}

// CheckPayment returns configured gateway verdicts.
func (s *WorkerFacadeStub) CheckPayment(ctx context.Context, orderNumber string) (*model.PaymentCheck, error) {
	if s.CheckFn != nil {
		return s.CheckFn(ctx, orderNumber)
	}
	return &model.PaymentCheck{OrderNumber: orderNumber, Status: model.GatewayStatusPaid}, nil
}

// SettlePayment records settlement requests.
func (s *WorkerFacadeStub) SettlePayment(ctx context.Context, check *model.PaymentCheck) (bool, error) {
	if s.SettleFn != nil {
		return s.SettleFn(ctx, check)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Settled = append(s.Settled, SettleCall{OrderNumber: check.OrderNumber, Status: check.Status})
	return true, nil
}

// PaymentProviderStub fetches gateway payment state for tests.
type PaymentProviderStub struct {
	FetchFn func(context.Context, string) (*model.PaymentCheck, error)
	Check   *model.PaymentCheck
	Err     error
}

// Fetch returns the configured response or a default paid verdict.
func (s PaymentProviderStub) Fetch(ctx context.Context, orderNumber string) (*model.PaymentCheck, error) {
	if s.FetchFn != nil {
		return s.FetchFn(ctx, orderNumber)
	}
	if s.Err != nil {
		return nil, s.Err
	}
	if s.Check != nil {
		return s.Check, nil
	}
	return &model.PaymentCheck{OrderNumber: orderNumber, Status: model.GatewayStatusPaid}, nil
}

// NotifyCall records one outbound notification.
type NotifyCall struct {
	Kind  string
	Order string
}

// NotifySinkStub records notification attempts.
type NotifySinkStub struct {
	ConfirmedErr error
	CancelledErr error

	mu    sync.Mutex
	Calls []NotifyCall
}

// OrderConfirmed records the confirmation notification.
func (s *NotifySinkStub) OrderConfirmed(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, NotifyCall{Kind: "confirmed", Order: order.Number})
	return s.ConfirmedErr
}

// OrderCancelled records the cancellation notification.
func (s *NotifySinkStub) OrderCancelled(ctx context.Context, order *model.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls = append(s.Calls, NotifyCall{Kind: "cancelled", Order: order.Number})
	return s.CancelledErr
}

func defaultOrder(number string) *model.Order {
	userID := int64(1)
	return &model.Order{
		ID:            1,
		Number:        number,
		UserID:        &userID,
		Subtotal:      decimal.RequireFromString("50.00"),
		Shipping:      model.Address{Name: "Jamie Doe", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		Billing:       model.Address{Name: "Jamie Doe", Line1: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
		Total:         decimal.RequireFromString("61.19"),
		Currency:      "USD",
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
		CreatedAt:     time.Unix(0, 0).UTC(),
	}
}
