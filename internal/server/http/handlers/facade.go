package handlers

import (
	"context"

	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/usecase"
)

// OrderFacade encapsulates owner-scoped order operations exposed via HTTP.
type OrderFacade interface {
	CreateOrder(ctx context.Context, in usecase.CheckoutInput) (*model.Order, error)
	Order(ctx context.Context, number string, identity model.Identity) (*model.Order, error)
	Orders(ctx context.Context, identity model.Identity) ([]model.Order, error)
	CancelOrder(ctx context.Context, number string, identity model.Identity, reason string) (*model.Order, error)
}

// WebhookFacade accepts gateway events.
type WebhookFacade interface {
	HandleWebhook(ctx context.Context, body []byte, signature string) (*usecase.WebhookResult, error)
}

// AdminFacade covers admin-only operations.
type AdminFacade interface {
	SetOrderStatus(ctx context.Context, number string, to model.OrderStatus, actor string, comment *string) (*model.Order, error)
	AdjustInventory(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error
}

// HealthFacade reports service health.
type HealthFacade interface {
	HealthCheck(ctx context.Context) error
}

// FulfillmentFacade aggregates the full set of operations used across handlers.
type FulfillmentFacade interface {
	OrderFacade
	WebhookFacade
	AdminFacade
	HealthFacade
}
