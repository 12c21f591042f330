package usecase

import (
	"go.uber.org/fx"

	"github.com/storekit/fulfillment/internal/config"
	"github.com/storekit/fulfillment/internal/pricing"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newEngine,
	NewCheckoutUseCase,
	NewWebhookUseCase,
	NewOrderUseCase,
)

func newEngine(cfg *config.Config) *pricing.Engine {
	return pricing.New(pricing.Policy{
		Currency:              cfg.Currency,
		TaxRate:               cfg.TaxRate,
		ShippingFee:           cfg.ShippingFee,
		FreeShippingThreshold: cfg.FreeShippingThreshold,
	})
}
