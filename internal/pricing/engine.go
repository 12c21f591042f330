package pricing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
)

// Policy holds jurisdiction/merchant pricing knobs. Values come from
// configuration; the engine never hardcodes a rate or threshold.
type Policy struct {
	Currency string
	// TaxRate is a fraction, e.g. 0.20 for 20%, applied to
	// (subtotal - discount + shipping).
	TaxRate decimal.Decimal
	// ShippingFee is the flat fee charged below the free-shipping threshold.
	ShippingFee decimal.Decimal
	// FreeShippingThreshold waives shipping when the discounted subtotal
	// reaches it (inclusive).
	FreeShippingThreshold decimal.Decimal
}

// Snapshot is the catalog read the caller took before quoting. The engine
// never touches storage.
type Snapshot struct {
	Products map[int64]*model.Product
	Variants map[int64]*model.Variant
}

// Engine computes price quotes. Pure: no side effects, no storage access.
type Engine struct {
	policy Policy
}

// New constructs an Engine with the given policy.
func New(policy Policy) *Engine {
	return &Engine{policy: policy}
}

// Policy returns the engine's pricing policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Quote prices a cart against a catalog snapshot and an optional coupon.
// ownerUses is the number of times the ordering identity has already used the
// coupon (zero when no coupon). Monetary components are carried at full
// precision and rounded half-up to 2 decimals once, at the end.
func (e *Engine) Quote(items []model.CartItem, snap Snapshot, coupon *model.Coupon, ownerUses int64, now time.Time) (*model.PriceQuote, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", domainErrors.ErrValidation)
	}

	lines := make([]model.QuoteLine, 0, len(items))
	subtotal := decimal.Zero

	for _, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: quantity must be positive", domainErrors.ErrValidation)
		}

		product, ok := snap.Products[item.ProductID]
		if !ok {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, domainErrors.ErrNotFound)
		}
		if !product.Active {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, domainErrors.ErrProductUnavailable)
		}

		unit := product.Price
		name := product.Name
		sku := product.SKU
		track, backorder, stock := product.TrackInventory, product.AllowBackorder, product.StockQuantity

		if item.VariantID != nil {
			variant, ok := snap.Variants[*item.VariantID]
			if !ok {
				return nil, fmt.Errorf("variant %d: %w", *item.VariantID, domainErrors.ErrNotFound)
			}
			if !variant.Active || variant.ProductID != product.ID {
				return nil, fmt.Errorf("variant %d: %w", *item.VariantID, domainErrors.ErrProductUnavailable)
			}
			unit = unit.Add(variant.PriceAdjustment)
			if variant.SKU != "" {
				sku = variant.SKU
			}
			if variant.Name != "" {
				name = fmt.Sprintf("%s (%s)", product.Name, variant.Name)
			}
			track, backorder, stock = variant.TrackInventory, variant.AllowBackorder, variant.StockQuantity
		}

		if !model.Sellable(track, backorder, stock, item.Quantity) {
			return nil, fmt.Errorf("product %d: %w", item.ProductID, domainErrors.ErrInsufficientStock)
		}

		lineSubtotal := unit.Mul(decimal.NewFromInt(item.Quantity))
		lines = append(lines, model.QuoteLine{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: name,
			SKU:         sku,
			UnitPrice:   unit,
			Quantity:    item.Quantity,
			Subtotal:    lineSubtotal,
		})
		subtotal = subtotal.Add(lineSubtotal)
	}

	discount := decimal.Zero
	if coupon != nil {
		if err := ValidateCoupon(coupon, subtotal, ownerUses, now); err != nil {
			return nil, err
		}
		discount = Discount(coupon, subtotal)
	}

	discounted := subtotal.Sub(discount)

	shipping := e.policy.ShippingFee
	if discounted.GreaterThanOrEqual(e.policy.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	tax := e.policy.TaxRate.Mul(discounted.Add(shipping))

	quote := &model.PriceQuote{
		Lines:    lines,
		Subtotal: subtotal.Round(2),
		Discount: discount.Round(2),
		Shipping: shipping.Round(2),
		Tax:      tax.Round(2),
		Currency: e.policy.Currency,
		Coupon:   coupon,
	}
	for i := range quote.Lines {
		quote.Lines[i].UnitPrice = quote.Lines[i].UnitPrice.Round(2)
		quote.Lines[i].Subtotal = quote.Lines[i].Subtotal.Round(2)
	}
	quote.Total = quote.Subtotal.Sub(quote.Discount).Add(quote.Shipping).Add(quote.Tax)
	return quote, nil
}

// ValidateCoupon applies the eligibility rules: active flag, validity
// window, global and per-user usage limits, minimum purchase.
func ValidateCoupon(coupon *model.Coupon, subtotal decimal.Decimal, ownerUses int64, now time.Time) error {
	if !coupon.Active {
		return domainErrors.CouponError{Reason: domainErrors.CouponInactive}
	}
	if coupon.ValidFrom != nil && now.Before(*coupon.ValidFrom) {
		return domainErrors.CouponError{Reason: domainErrors.CouponNotStarted}
	}
	if coupon.ValidUntil != nil && now.After(*coupon.ValidUntil) {
		return domainErrors.CouponError{Reason: domainErrors.CouponExpired}
	}
	if coupon.UsageLimit != nil && coupon.UsageCount >= *coupon.UsageLimit {
		return domainErrors.CouponError{Reason: domainErrors.CouponUsageLimitReached}
	}
	if coupon.PerUserLimit != nil && ownerUses >= *coupon.PerUserLimit {
		return domainErrors.CouponError{Reason: domainErrors.CouponPerUserLimitReached}
	}
	if coupon.MinPurchaseAmount != nil && subtotal.LessThan(*coupon.MinPurchaseAmount) {
		return domainErrors.CouponError{Reason: domainErrors.CouponMinPurchaseNotMet}
	}
	return nil
}

// Discount computes the coupon's discount for a subtotal. It never exceeds
// the subtotal and respects the per-coupon cap.
func Discount(coupon *model.Coupon, subtotal decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.DiscountType {
	case model.DiscountPercentage:
		discount = subtotal.Mul(coupon.DiscountValue).Div(decimal.NewFromInt(100))
		if coupon.MaxDiscountAmount != nil && discount.GreaterThan(*coupon.MaxDiscountAmount) {
			discount = *coupon.MaxDiscountAmount
		}
	case model.DiscountFixedAmount:
		discount = coupon.DiscountValue
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}
	return discount
}
