package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
	"github.com/storekit/fulfillment/internal/pricing"
)

// CheckoutInput is the validated request to create an order.
type CheckoutInput struct {
	Identity       model.Identity
	Items          []model.CartItem
	CartID         *string
	Billing        model.Address
	Shipping       model.Address
	CouponCode     string
	CustomerNote   string
	ShippingMethod string
}

// CheckoutUseCase orchestrates order creation: catalog snapshot, pricing,
// then one atomic persistence step that re-validates stock and coupon
// capacity at commit time.
type CheckoutUseCase struct {
	catalog repository.CatalogRepository
	coupons repository.CouponRepository
	carts   repository.CartRepository
	orders  repository.OrderRepository
	engine  *pricing.Engine
}

// NewCheckoutUseCase constructs CheckoutUseCase.
func NewCheckoutUseCase(
	catalog repository.CatalogRepository,
	coupons repository.CouponRepository,
	carts repository.CartRepository,
	orders repository.OrderRepository,
	engine *pricing.Engine,
) *CheckoutUseCase {
	return &CheckoutUseCase{catalog: catalog, coupons: coupons, carts: carts, orders: orders, engine: engine}
}

// CreateOrder prices the cart and persists the order atomically. The quote's
// stock read is advisory only; the storage layer re-checks both stock and
// coupon capacity inside the transaction.
func (u *CheckoutUseCase) CreateOrder(ctx context.Context, in CheckoutInput) (*model.Order, error) {
	if !in.Identity.Valid() {
		return nil, fmt.Errorf("%w: exactly one of user id or guest email required", domainErrors.ErrValidation)
	}

	items := in.Items
	if len(items) == 0 && in.CartID != nil && *in.CartID != "" {
		var err error
		items, err = u.carts.Items(ctx, *in.CartID)
		if err != nil {
			return nil, err
		}
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", domainErrors.ErrValidation)
	}

	quote, err := u.Quote(ctx, items, in.Identity, in.CouponCode)
	if err != nil {
		return nil, err
	}

	return u.orders.Create(ctx, repository.NewOrder{
		Identity:       in.Identity,
		Quote:          quote,
		Billing:        in.Billing,
		Shipping:       in.Shipping,
		CustomerNote:   in.CustomerNote,
		ShippingMethod: in.ShippingMethod,
		CartID:         in.CartID,
		PaymentStatus:  model.PaymentStatusPending,
		Status:         model.OrderStatusPending,
	})
}

// Quote prices items for the given identity without side effects.
func (u *CheckoutUseCase) Quote(ctx context.Context, items []model.CartItem, identity model.Identity, couponCode string) (*model.PriceQuote, error) {
	snap, err := u.snapshot(ctx, items)
	if err != nil {
		return nil, err
	}

	var coupon *model.Coupon
	var ownerUses int64
	if code := strings.TrimSpace(couponCode); code != "" {
		coupon, err = u.coupons.GetByCode(ctx, code)
		if err != nil {
			if err == domainErrors.ErrNotFound {
				return nil, domainErrors.CouponError{Reason: domainErrors.CouponUnknownCode}
			}
			return nil, err
		}
		ownerUses, err = u.coupons.UsageCountByOwner(ctx, coupon.ID, identity)
		if err != nil {
			return nil, err
		}
	}

	return u.engine.Quote(items, snap, coupon, ownerUses, time.Now())
}

func (u *CheckoutUseCase) snapshot(ctx context.Context, items []model.CartItem) (pricing.Snapshot, error) {
	snap := pricing.Snapshot{
		Products: make(map[int64]*model.Product),
		Variants: make(map[int64]*model.Variant),
	}
	for _, item := range items {
		if _, ok := snap.Products[item.ProductID]; !ok {
			product, err := u.catalog.GetProduct(ctx, item.ProductID)
			if err != nil {
				return snap, err
			}
			snap.Products[item.ProductID] = product
		}
		if item.VariantID != nil {
			if _, ok := snap.Variants[*item.VariantID]; !ok {
				variant, err := u.catalog.GetVariant(ctx, *item.VariantID)
				if err != nil {
					return snap, err
				}
				snap.Variants[*item.VariantID] = variant
			}
		}
	}
	return snap, nil
}
