package notify

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/storekit/fulfillment/internal/config"
)

// Module exposes the notification sink implementation to the fx graph.
var Module = fx.Provide(newSink)

type sinkParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newSink(p sinkParams) (Sink, error) {
	if p.Config.NotifyAddress == "" {
		return NopSink{}, nil
	}
	return NewHTTPSink(p.Config.NotifyAddress, p.Logger)
}
