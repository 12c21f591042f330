package errors

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("invalid input")
	ErrProductUnavailable  = errors.New("product unavailable")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCouponInvalid       = errors.New("coupon invalid")
	ErrCouponExhausted     = errors.New("coupon usage limit exhausted")
	ErrOrderNotCancellable = errors.New("order not cancellable")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrDuplicateEvent      = errors.New("event already processed")
	ErrInvalidSignature    = errors.New("invalid webhook signature")
	ErrForbidden           = errors.New("forbidden")
	ErrGatewayUnavailable  = errors.New("payment gateway unavailable")
)

// CouponReason narrows ErrCouponInvalid to the specific rejection rule.
type CouponReason string

const (
	CouponUnknownCode         CouponReason = "unknown_code"
	CouponInactive            CouponReason = "inactive"
	CouponNotStarted          CouponReason = "not_started"
	CouponExpired             CouponReason = "expired"
	CouponUsageLimitReached   CouponReason = "usage_limit_reached"
	CouponPerUserLimitReached CouponReason = "per_user_limit_reached"
	CouponMinPurchaseNotMet   CouponReason = "min_purchase_not_met"
)

// CouponError carries the rejection sub-reason while matching ErrCouponInvalid.
type CouponError struct {
	Reason CouponReason
}

func (e CouponError) Error() string {
	return fmt.Sprintf("coupon invalid: %s", e.Reason)
}

func (e CouponError) Unwrap() error {
	return ErrCouponInvalid
}
