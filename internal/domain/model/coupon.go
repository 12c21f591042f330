package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DiscountType selects how a coupon value is applied.
type DiscountType string

const (
	DiscountPercentage  DiscountType = "percentage"
	DiscountFixedAmount DiscountType = "fixed_amount"
)

// Coupon is a discount code with eligibility and usage constraints.
// Codes are matched case-insensitively and stored lower-case.
type Coupon struct {
	ID                int64
	Code              string
	DiscountType      DiscountType
	DiscountValue     decimal.Decimal
	MinPurchaseAmount *decimal.Decimal
	MaxDiscountAmount *decimal.Decimal
	UsageLimit        *int64
	PerUserLimit      *int64
	UsageCount        int64
	Active            bool
	ValidFrom         *time.Time
	ValidUntil        *time.Time
}

// CouponUsage records one application of a coupon to an order.
type CouponUsage struct {
	ID          int64
	CouponID    int64
	UserID      *int64
	GuestEmail  *string
	OrderNumber string
	UsedAt      time.Time
}
