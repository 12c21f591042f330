package di

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"

	"github.com/storekit/fulfillment/internal/adapter/payment"
	"github.com/storekit/fulfillment/internal/app"
	"github.com/storekit/fulfillment/internal/config"
	"github.com/storekit/fulfillment/internal/domain/repository"
	"github.com/storekit/fulfillment/internal/storage/postgres"
	"github.com/storekit/fulfillment/internal/test"
)

func TestModuleComposesGraphWithReplacements(t *testing.T) {
	cfg := &config.Config{
		RunAddress:            ":0",
		DatabaseURI:           "postgres://stub",
		PaymentGatewayAddress: "http://localhost",
		PaymentWebhookSecret:  "secret",
		Currency:              "USD",
		TaxRate:               decimal.RequireFromString("0.20"),
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
		ReconcileInterval:     time.Millisecond,
		ReconcileAfter:        time.Millisecond,
		ReconcileBatchSize:    1,
		WorkerPoolSize:        1,
		ShutdownTimeout:       time.Millisecond,
	}
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	catalogRepo := test.NewCatalogRepositoryStub()
	couponRepo := test.NewCouponRepositoryStub()
	cartRepo := test.NewCartRepositoryStub()
	orderRepo := &test.OrderRepositoryStub{}
	inventoryRepo := &test.InventoryRepositoryStub{}
	paymentStub := &test.PaymentProviderStub{}

	var facade *app.FulfillmentFacade
	fxApp := fx.New(
		fx.NopLogger,
		fx.Supply(context.Background()),
		Module(
			fx.Replace(cfg),
			fx.Replace(logger),
			fx.Replace(&postgres.Storage{}),
			fx.Replace(repository.CatalogRepository(catalogRepo)),
			fx.Replace(repository.CouponRepository(couponRepo)),
			fx.Replace(repository.CartRepository(cartRepo)),
			fx.Replace(repository.OrderRepository(orderRepo)),
			fx.Replace(repository.InventoryRepository(inventoryRepo)),
			fx.Replace(payment.Client(paymentStub)),
		),
		fx.Populate(&facade),
	)

	if err := fxApp.Err(); err != nil {
		t.Fatalf("fx app returned error: %v", err)
	}
	t.Cleanup(func() { _ = fxApp.Stop(context.Background()) })
	if facade == nil {
		t.Fatal("expected fulfillment facade instance")
	}
}
