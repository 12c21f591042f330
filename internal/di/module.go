package di

import (
	"go.uber.org/fx"

	"github.com/storekit/fulfillment/internal/adapter/notify"
	"github.com/storekit/fulfillment/internal/adapter/payment"
	"github.com/storekit/fulfillment/internal/app"
	"github.com/storekit/fulfillment/internal/config"
	"github.com/storekit/fulfillment/internal/logger"
	"github.com/storekit/fulfillment/internal/server/http/handlers"
	"github.com/storekit/fulfillment/internal/server/http/router"
	"github.com/storekit/fulfillment/internal/storage/postgres"
	"github.com/storekit/fulfillment/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		postgres.Module,
		payment.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(func(client payment.Client) app.PaymentProvider { return client }),
		fx.Provide(func(s *postgres.Storage) app.HealthChecker { return s }),
		fx.Provide(func(f *app.FulfillmentFacade) handlers.FulfillmentFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
