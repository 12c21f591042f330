package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/storekit/fulfillment/internal/adapter/payment"
	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
)

// eventEnvelope is the outer shape of a gateway webhook payload.
type eventEnvelope struct {
	ID   string          `json:"id"`
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type eventData struct {
	OrderNumber string          `json:"order_number"`
	PaymentRef  *string         `json:"payment_ref"`
	UserID      *int64          `json:"user_id"`
	GuestEmail  *string         `json:"guest_email"`
	CouponCode  string          `json:"coupon_code"`
	Items       []eventLineItem `json:"items"`
}

type eventLineItem struct {
	ProductID int64  `json:"product_id"`
	VariantID *int64 `json:"variant_id"`
	Quantity  int64  `json:"quantity"`
}

// WebhookResult reports what an accepted event did.
type WebhookResult struct {
	EventID     string
	EventType   string
	Applied     bool
	OrderNumber string
}

// WebhookUseCase reconciles asynchronous payment-gateway events against
// existing or not-yet-existing orders. Processing is idempotent under
// at-least-once delivery: the external event id is the dedup key and all
// transitions are status-conditioned.
type WebhookUseCase struct {
	orders   repository.OrderRepository
	checkout *CheckoutUseCase
	verifier payment.Verifier
	logger   *slog.Logger
}

// NewWebhookUseCase constructs WebhookUseCase.
func NewWebhookUseCase(orders repository.OrderRepository, checkout *CheckoutUseCase, verifier payment.Verifier, logger *slog.Logger) *WebhookUseCase {
	return &WebhookUseCase{orders: orders, checkout: checkout, verifier: verifier, logger: logger}
}

// HandleEvent verifies, deduplicates, and applies one gateway event.
// Signature failures reject without any state change. Unknown event types
// and replays are acknowledged with Applied=false and no side effects.
func (u *WebhookUseCase) HandleEvent(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if err := u.verifier.Verify(body, signature); err != nil {
		u.logger.Warn("webhook signature rejected", slog.Int("body_bytes", len(body)))
		return nil, err
	}

	var envelope eventEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%w: malformed event payload", domainErrors.ErrValidation)
	}
	if envelope.ID == "" {
		return nil, fmt.Errorf("%w: event id required", domainErrors.ErrValidation)
	}

	result := &WebhookResult{EventID: envelope.ID, EventType: envelope.Type}

	switch model.PaymentEventType(envelope.Type) {
	case model.PaymentEventConfirmed:
		return u.handleConfirmed(ctx, envelope, result)
	case model.PaymentEventFailed:
		return u.handleFailed(ctx, envelope, result)
	default:
		// Forgiving boundary: acknowledge unhandled subtypes untouched.
		u.logger.Info("webhook event ignored", slog.String("type", envelope.Type), slog.String("event", envelope.ID))
		return result, nil
	}
}

func (u *WebhookUseCase) handleConfirmed(ctx context.Context, envelope eventEnvelope, result *WebhookResult) (*WebhookResult, error) {
	var data eventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed event data", domainErrors.ErrValidation)
	}

	// Shape (a): the order already exists, flip its payment state.
	if data.OrderNumber != "" {
		applied, err := u.orders.ConfirmPayment(ctx, envelope.ID, data.OrderNumber, data.PaymentRef)
		if err != nil {
			return nil, err
		}
		result.Applied = applied
		result.OrderNumber = data.OrderNumber
		return result, nil
	}

	// Shape (b): legacy flow, the event materializes the order now; the same
	// stock and coupon checks as direct checkout apply inside the transaction.
	if len(data.Items) == 0 {
		return nil, fmt.Errorf("%w: confirmed event needs an order number or line items", domainErrors.ErrValidation)
	}

	identity := model.Identity{UserID: data.UserID, GuestEmail: data.GuestEmail}
	if !identity.Valid() {
		return nil, fmt.Errorf("%w: event identity must carry user id or guest email", domainErrors.ErrValidation)
	}

	items := make([]model.CartItem, 0, len(data.Items))
	for _, line := range data.Items {
		items = append(items, model.CartItem{ProductID: line.ProductID, VariantID: line.VariantID, Quantity: line.Quantity})
	}

	quote, err := u.checkout.Quote(ctx, items, identity, data.CouponCode)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	actor := "payment-gateway"
	order, created, err := u.orders.CreateFromEvent(ctx, envelope.ID, repository.NewOrder{
		Identity:      identity,
		Quote:         quote,
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.OrderStatusProcessing,
		PaymentRef:    data.PaymentRef,
		PaidAt:        &now,
		Actor:         &actor,
	})
	if err != nil {
		return nil, err
	}
	result.Applied = created
	if order != nil {
		result.OrderNumber = order.Number
	}
	return result, nil
}

func (u *WebhookUseCase) handleFailed(ctx context.Context, envelope eventEnvelope, result *WebhookResult) (*WebhookResult, error) {
	var data eventData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, fmt.Errorf("%w: malformed event data", domainErrors.ErrValidation)
	}
	if data.OrderNumber == "" {
		return nil, fmt.Errorf("%w: failed event needs an order number", domainErrors.ErrValidation)
	}

	applied, err := u.orders.FailPayment(ctx, envelope.ID, data.OrderNumber, data.PaymentRef)
	if err != nil {
		return nil, err
	}
	result.Applied = applied
	result.OrderNumber = data.OrderNumber
	return result, nil
}
