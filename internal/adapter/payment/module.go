package payment

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/storekit/fulfillment/internal/config"
)

// Module exposes the gateway client and webhook verifier to the fx graph.
var Module = fx.Provide(newClient, newVerifier)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.PaymentGatewayAddress, p.Logger)
}

func newVerifier(cfg *config.Config) Verifier {
	return NewHMACVerifier(cfg.PaymentWebhookSecret)
}
