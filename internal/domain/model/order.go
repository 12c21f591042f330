package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus describes the payment axis of an order.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// OrderStatus describes the fulfillment axis of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// StatusDomain names which axis a history entry belongs to.
type StatusDomain string

const (
	StatusDomainPayment     StatusDomain = "payment"
	StatusDomainFulfillment StatusDomain = "fulfillment"
)

// Address is an immutable snapshot taken at order-creation time.
type Address struct {
	Name       string
	Line1      string
	Line2      string
	City       string
	Region     string
	PostalCode string
	Country    string
}

// Order describes a purchase with snapshot pricing and addresses.
type Order struct {
	ID             int64
	Number         string
	UserID         *int64
	GuestEmail     *string
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	ShippingAmount decimal.Decimal
	TaxAmount      decimal.Decimal
	Total          decimal.Decimal
	Currency       string
	CouponCode     *string
	PaymentStatus  PaymentStatus
	Status         OrderStatus
	PaymentRef     *string
	CustomerNote   string
	ShippingMethod string
	Billing        Address
	Shipping       Address
	Items          []OrderItem
	CreatedAt      time.Time
	UpdatedAt      time.Time
	PaidAt         *time.Time
	CancelledAt    *time.Time
}

// OrderItem is a line snapshot; unit price is never re-read from the catalog.
type OrderItem struct {
	ID          int64
	OrderID     int64
	ProductID   int64
	VariantID   *int64
	ProductName string
	SKU         string
	UnitPrice   decimal.Decimal
	Quantity    int64
	Subtotal    decimal.Decimal
}

// StatusHistory is an append-only record of one status transition.
type StatusHistory struct {
	ID        int64
	OrderID   int64
	Domain    StatusDomain
	From      string
	To        string
	Actor     *string
	Comment   *string
	CreatedAt time.Time
}

var fulfillmentTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// CanTransition reports whether the fulfillment machine allows from -> to.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range fulfillmentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order may still be cancelled.
func (o *Order) Cancellable() bool {
	return o.Status == OrderStatusPending || o.Status == OrderStatusProcessing
}

// ValidOrderStatus reports whether s is a known fulfillment status.
func ValidOrderStatus(s OrderStatus) bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}
