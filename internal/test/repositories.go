package test

import (
	"context"
	"strings"
	"time"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
)

// CatalogRepositoryStub serves products and variants from in-memory maps.
type CatalogRepositoryStub struct {
	Products map[int64]*model.Product
	Variants map[int64]*model.Variant
	Err      error
}

// NewCatalogRepositoryStub constructs the stub with initialized maps.
func NewCatalogRepositoryStub() *CatalogRepositoryStub {
	return &CatalogRepositoryStub{
		Products: make(map[int64]*model.Product),
		Variants: make(map[int64]*model.Variant),
	}
}

// GetProduct returns a stored product or not found.
func (s *CatalogRepositoryStub) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if p, ok := s.Products[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// GetVariant returns a stored variant or not found.
func (s *CatalogRepositoryStub) GetVariant(ctx context.Context, id int64) (*model.Variant, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if v, ok := s.Variants[id]; ok {
		copied := *v
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// CouponRepositoryStub serves coupons keyed by lower-cased code.
type CouponRepositoryStub struct {
	Coupons   map[string]*model.Coupon
	OwnerUses map[int64]int64
	Err       error
}

// NewCouponRepositoryStub constructs the stub with initialized maps.
func NewCouponRepositoryStub() *CouponRepositoryStub {
	return &CouponRepositoryStub{
		Coupons:   make(map[string]*model.Coupon),
		OwnerUses: make(map[int64]int64),
	}
}

// GetByCode matches codes case-insensitively, mirroring storage behaviour.
func (s *CouponRepositoryStub) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if c, ok := s.Coupons[strings.ToLower(code)]; ok {
		copied := *c
		return &copied, nil
	}
	return nil, domainErrors.ErrNotFound
}

// UsageCountByOwner returns configured per-owner usage counts.
func (s *CouponRepositoryStub) UsageCountByOwner(ctx context.Context, couponID int64, identity model.Identity) (int64, error) {
	if s.Err != nil {
		return 0, s.Err
	}
	return s.OwnerUses[couponID], nil
}

// CartRepositoryStub stores cart lines keyed by cart identifier.
type CartRepositoryStub struct {
	Carts   map[string][]model.CartItem
	Cleared []string
	Err     error
}

// NewCartRepositoryStub constructs the stub with an initialized map.
func NewCartRepositoryStub() *CartRepositoryStub {
	return &CartRepositoryStub{Carts: make(map[string][]model.CartItem)}
}

// Items returns the stored lines for the cart.
func (s *CartRepositoryStub) Items(ctx context.Context, cartID string) ([]model.CartItem, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	items, ok := s.Carts[cartID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	return items, nil
}

// Clear records the cleared cart identifier.
func (s *CartRepositoryStub) Clear(ctx context.Context, cartID string) error {
	if s.Err != nil {
		return s.Err
	}
	s.Cleared = append(s.Cleared, cartID)
	return nil
}

// SettlementCall records one ConfirmPayment or FailPayment invocation.
type SettlementCall struct {
	EventID     string
	OrderNumber string
	PaymentRef  *string
}

// OrderRepositoryStub allows tests to customize order aggregate behaviour.
type OrderRepositoryStub struct {
	CreateFn          func(context.Context, repository.NewOrder) (*model.Order, error)
	GetByNumberFn     func(context.Context, string) (*model.Order, error)
	ListByOwnerFn     func(context.Context, model.Identity) ([]model.Order, error)
	ConfirmPaymentFn  func(context.Context, string, string, *string) (bool, error)
	FailPaymentFn     func(context.Context, string, string, *string) (bool, error)
	CreateFromEventFn func(context.Context, string, repository.NewOrder) (*model.Order, bool, error)
	CancelFn          func(context.Context, string, *string, string) (*model.Order, error)
	SetStatusFn       func(context.Context, string, model.OrderStatus, *string, *string) (*model.Order, error)
	SelectPendingFn   func(context.Context, time.Duration, int) ([]model.Order, error)
	HistoryFn         func(context.Context, int64) ([]model.StatusHistory, error)

	Created      []repository.NewOrder
	Orders       []model.Order
	Pending      []model.Order
	Confirmed    []SettlementCall
	Failed       []SettlementCall
	Cancelled    []string
	StatusCalls  []model.OrderStatus
	HistoryItems []model.StatusHistory
	NextNumber   string
}

// Create tracks invocations and returns a pending order built from the quote.
func (s *OrderRepositoryStub) Create(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	s.Created = append(s.Created, in)
	if s.CreateFn != nil {
		return s.CreateFn(ctx, in)
	}
	return s.buildOrder(in), nil
}

// GetByNumber returns a matching order from the stored slice.
func (s *OrderRepositoryStub) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	if s.GetByNumberFn != nil {
		return s.GetByNumberFn(ctx, number)
	}
	for i := range s.Orders {
		if s.Orders[i].Number == number {
			order := s.Orders[i]
			return &order, nil
		}
	}
	return nil, domainErrors.ErrNotFound
}

// ListByOwner returns the stored orders unfiltered.
func (s *OrderRepositoryStub) ListByOwner(ctx context.Context, identity model.Identity) ([]model.Order, error) {
	if s.ListByOwnerFn != nil {
		return s.ListByOwnerFn(ctx, identity)
	}
	return s.Orders, nil
}

// ConfirmPayment records the settlement call.
func (s *OrderRepositoryStub) ConfirmPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error) {
	s.Confirmed = append(s.Confirmed, SettlementCall{EventID: eventID, OrderNumber: orderNumber, PaymentRef: paymentRef})
	if s.ConfirmPaymentFn != nil {
		return s.ConfirmPaymentFn(ctx, eventID, orderNumber, paymentRef)
	}
	return true, nil
}

// FailPayment records the settlement call.
func (s *OrderRepositoryStub) FailPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error) {
	s.Failed = append(s.Failed, SettlementCall{EventID: eventID, OrderNumber: orderNumber, PaymentRef: paymentRef})
	if s.FailPaymentFn != nil {
		return s.FailPaymentFn(ctx, eventID, orderNumber, paymentRef)
	}
	return true, nil
}

// CreateFromEvent materializes an order marked paid.
func (s *OrderRepositoryStub) CreateFromEvent(ctx context.Context, eventID string, in repository.NewOrder) (*model.Order, bool, error) {
	if s.CreateFromEventFn != nil {
		return s.CreateFromEventFn(ctx, eventID, in)
	}
	s.Created = append(s.Created, in)
	return s.buildOrder(in), true, nil
}

// Cancel records the cancellation and flips the matching stored order.
func (s *OrderRepositoryStub) Cancel(ctx context.Context, number string, actor *string, reason string) (*model.Order, error) {
	s.Cancelled = append(s.Cancelled, number)
	if s.CancelFn != nil {
		return s.CancelFn(ctx, number, actor, reason)
	}
	order, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !order.Cancellable() {
		return nil, domainErrors.ErrOrderNotCancellable
	}
	now := time.Now()
	order.Status = model.OrderStatusCancelled
	order.CancelledAt = &now
	return order, nil
}

// SetStatus records the transition and applies it to the stored order.
func (s *OrderRepositoryStub) SetStatus(ctx context.Context, number string, to model.OrderStatus, actor *string, comment *string) (*model.Order, error) {
	s.StatusCalls = append(s.StatusCalls, to)
	if s.SetStatusFn != nil {
		return s.SetStatusFn(ctx, number, to, actor, comment)
	}
	order, err := s.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if !model.CanTransition(order.Status, to) {
		return nil, domainErrors.ErrIllegalTransition
	}
	order.Status = to
	return order, nil
}

// SelectPendingPayment returns the configured pending batch.
func (s *OrderRepositoryStub) SelectPendingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	if s.SelectPendingFn != nil {
		return s.SelectPendingFn(ctx, olderThan, limit)
	}
	if limit < len(s.Pending) {
		return s.Pending[:limit], nil
	}
	return s.Pending, nil
}

// History returns the configured history rows.
func (s *OrderRepositoryStub) History(ctx context.Context, orderID int64) ([]model.StatusHistory, error) {
	if s.HistoryFn != nil {
		return s.HistoryFn(ctx, orderID)
	}
	return s.HistoryItems, nil
}

func (s *OrderRepositoryStub) buildOrder(in repository.NewOrder) *model.Order {
	number := s.NextNumber
	if number == "" {
		number = "ORD-20260115-0001"
	}
	order := &model.Order{
		ID:             int64(len(s.Created)),
		Number:         number,
		UserID:         in.Identity.UserID,
		GuestEmail:     in.Identity.GuestEmail,
		Currency:       in.Quote.Currency,
		Subtotal:       in.Quote.Subtotal,
		DiscountAmount: in.Quote.Discount,
		ShippingAmount: in.Quote.Shipping,
		TaxAmount:      in.Quote.Tax,
		Total:          in.Quote.Total,
		PaymentStatus:  in.PaymentStatus,
		Status:         in.Status,
		Billing:        in.Billing,
		Shipping:       in.Shipping,
		CreatedAt:      time.Now(),
	}
	if in.Quote.Coupon != nil {
		code := in.Quote.Coupon.Code
		order.CouponCode = &code
	}
	for _, line := range in.Quote.Lines {
		order.Items = append(order.Items, model.OrderItem{
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal,
		})
	}
	return order
}

// AdjustmentCall records one manual stock correction.
type AdjustmentCall struct {
	ProductID int64
	VariantID *int64
	Delta     int64
	Note      string
}

// InventoryRepositoryStub records adjustments and serves movement history.
type InventoryRepositoryStub struct {
	AdjustFn    func(context.Context, int64, *int64, int64, string) error
	MovementsFn func(context.Context, string) ([]model.InventoryMovement, error)

	Adjustments []AdjustmentCall
	Movements   []model.InventoryMovement
}

// Adjust records the correction request.
func (s *InventoryRepositoryStub) Adjust(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error {
	if s.AdjustFn != nil {
		return s.AdjustFn(ctx, productID, variantID, delta, note)
	}
	s.Adjustments = append(s.Adjustments, AdjustmentCall{ProductID: productID, VariantID: variantID, Delta: delta, Note: note})
	return nil
}

// MovementsByReference returns configured movements.
func (s *InventoryRepositoryStub) MovementsByReference(ctx context.Context, reference string) ([]model.InventoryMovement, error) {
	if s.MovementsFn != nil {
		return s.MovementsFn(ctx, reference)
	}
	return s.Movements, nil
}
