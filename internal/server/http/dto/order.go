package dto

import "time"

// AddressPayload is the address snapshot accepted on checkout.
type AddressPayload struct {
	Name       string `json:"name" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" binding:"required"`
	Region     string `json:"region"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

// OrderItemPayload is one requested line.
type OrderItemPayload struct {
	ProductID int64  `json:"product_id" binding:"required"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int64  `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest is the checkout payload.
type CreateOrderRequest struct {
	Items           []OrderItemPayload `json:"items"`
	CartID          *string            `json:"cart_id"`
	BillingAddress  AddressPayload     `json:"billing_address" binding:"required"`
	ShippingAddress AddressPayload     `json:"shipping_address" binding:"required"`
	CouponCode      string             `json:"coupon_code"`
	CustomerNote    string             `json:"customer_note"`
	ShippingMethod  string             `json:"shipping_method"`
}

// CreateOrderResponse confirms a created order.
type CreateOrderResponse struct {
	OrderNumber string `json:"order_number"`
	TotalAmount string `json:"total_amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
}

// OrderItemResponse is a line snapshot in an order view.
type OrderItemResponse struct {
	ProductID   int64  `json:"product_id"`
	VariantID   *int64 `json:"variant_id,omitempty"`
	ProductName string `json:"product_name"`
	SKU         string `json:"sku"`
	UnitPrice   string `json:"unit_price"`
	Quantity    int64  `json:"quantity"`
	Subtotal    string `json:"subtotal"`
}

// OrderResponse is the full order view.
type OrderResponse struct {
	OrderNumber    string              `json:"order_number"`
	Subtotal       string              `json:"subtotal"`
	Discount       string              `json:"discount"`
	Shipping       string              `json:"shipping"`
	Tax            string              `json:"tax"`
	Total          string              `json:"total"`
	Currency       string              `json:"currency"`
	CouponCode     *string             `json:"coupon_code,omitempty"`
	PaymentStatus  string              `json:"payment_status"`
	Status         string              `json:"status"`
	ShippingMethod string              `json:"shipping_method,omitempty"`
	Items          []OrderItemResponse `json:"items,omitempty"`
	CreatedAt      time.Time           `json:"created_at"`
	PaidAt         *time.Time          `json:"paid_at,omitempty"`
	CancelledAt    *time.Time          `json:"cancelled_at,omitempty"`
}

// CancelOrderRequest carries the optional cancellation reason.
type CancelOrderRequest struct {
	Reason string `json:"reason"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
