package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress            string
	DatabaseURI           string
	PaymentGatewayAddress string
	PaymentWebhookSecret  string
	AdminAPIToken         string
	NotifyAddress         string

	// Pricing policy. Rates and thresholds are jurisdiction/merchant
	// decisions, never constants in the pricing engine.
	Currency              string
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal

	ReconcileInterval  time.Duration
	ReconcileAfter     time.Duration
	ReconcileBatchSize int
	WorkerPoolSize     int
	ShutdownTimeout    time.Duration
}

const (
	defaultRunAddress         = ":8080"
	defaultAdminToken         = "change-me-in-production"
	defaultCurrency           = "USD"
	defaultTaxRate            = "0.20"
	defaultShippingFee        = "5.99"
	defaultFreeShipping       = "50.00"
	defaultReconcileInterval  = 30 * time.Second
	defaultReconcileAfter     = 15 * time.Minute
	defaultReconcileBatchSize = 32
	defaultWorkerPoolSize     = 4
	defaultShutdownTimeout    = 10 * time.Second
)

// Load parses configuration from flags and environment variables.
func Load() (*Config, error) {
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:            getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:           getString(lookup, "DATABASE_URI", ""),
		PaymentGatewayAddress: getString(lookup, "PAYMENT_GATEWAY_ADDRESS", ""),
		PaymentWebhookSecret:  getString(lookup, "PAYMENT_WEBHOOK_SECRET", ""),
		AdminAPIToken:         getString(lookup, "ADMIN_API_TOKEN", defaultAdminToken),
		NotifyAddress:         getString(lookup, "NOTIFY_ADDRESS", ""),
		Currency:              getString(lookup, "CURRENCY", defaultCurrency),
		ReconcileInterval:     getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileAfter:        getDuration(lookup, "RECONCILE_AFTER", defaultReconcileAfter),
		ReconcileBatchSize:    getInt(lookup, "RECONCILE_BATCH_SIZE", defaultReconcileBatchSize),
		WorkerPoolSize:        getInt(lookup, "WORKER_POOL_SIZE", defaultWorkerPoolSize),
		ShutdownTimeout:       getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
	}

	var (
		taxRateStr           = getString(lookup, "TAX_RATE", defaultTaxRate)
		shippingFeeStr       = getString(lookup, "SHIPPING_FEE", defaultShippingFee)
		freeShippingStr      = getString(lookup, "FREE_SHIPPING_THRESHOLD", defaultFreeShipping)
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		reconcileAfterStr    = cfg.ReconcileAfter.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs := flag.NewFlagSet("fulfillment", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.PaymentGatewayAddress, "g", cfg.PaymentGatewayAddress, "Payment gateway base URL")
	fs.StringVar(&cfg.PaymentWebhookSecret, "webhook-secret", cfg.PaymentWebhookSecret, "Shared secret for webhook signatures")
	fs.StringVar(&cfg.AdminAPIToken, "admin-token", cfg.AdminAPIToken, "Bearer token for admin endpoints")
	fs.StringVar(&cfg.NotifyAddress, "notify", cfg.NotifyAddress, "Notification service base URL (optional)")
	fs.StringVar(&cfg.Currency, "currency", cfg.Currency, "Order currency code")
	fs.StringVar(&taxRateStr, "tax-rate", taxRateStr, "Tax rate as a fraction, e.g. 0.20")
	fs.StringVar(&shippingFeeStr, "shipping-fee", shippingFeeStr, "Flat shipping fee")
	fs.StringVar(&freeShippingStr, "free-shipping-threshold", freeShippingStr, "Discounted subtotal that waives shipping")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between payment reconciliation polls")
	fs.StringVar(&reconcileAfterStr, "reconcile-after", reconcileAfterStr, "Age before a pending payment is reconciled")
	fs.IntVar(&cfg.ReconcileBatchSize, "reconcile-batch", cfg.ReconcileBatchSize, "Maximum orders per reconciliation batch")
	fs.IntVar(&cfg.WorkerPoolSize, "worker-pool", cfg.WorkerPoolSize, "Number of concurrent reconciliation workers")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.TaxRate, err = decimal.NewFromString(taxRateStr); err != nil {
		return nil, fmt.Errorf("invalid tax rate: %w", err)
	}
	if cfg.ShippingFee, err = decimal.NewFromString(shippingFeeStr); err != nil {
		return nil, fmt.Errorf("invalid shipping fee: %w", err)
	}
	if cfg.FreeShippingThreshold, err = decimal.NewFromString(freeShippingStr); err != nil {
		return nil, fmt.Errorf("invalid free shipping threshold: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}
	if cfg.ReconcileAfter, err = time.ParseDuration(reconcileAfterStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile age: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if secretFile, ok := lookup("PAYMENT_WEBHOOK_SECRET_FILE"); ok && secretFile != "" {
		content, err := os.ReadFile(secretFile)
		if err != nil {
			return nil, fmt.Errorf("read webhook secret file: %w", err)
		}
		cfg.PaymentWebhookSecret = string(content)
	}

	if cfg.TaxRate.IsNegative() || cfg.ShippingFee.IsNegative() || cfg.FreeShippingThreshold.IsNegative() {
		return nil, fmt.Errorf("pricing policy values must be non-negative")
	}

	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = defaultReconcileBatchSize
	}
	if cfg.WorkerPoolSize <= 0 {
		cfg.WorkerPoolSize = defaultWorkerPoolSize
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.ReconcileAfter <= 0 {
		cfg.ReconcileAfter = defaultReconcileAfter
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}
	if cfg.PaymentGatewayAddress == "" {
		return nil, fmt.Errorf("payment gateway address must be provided")
	}
	if cfg.PaymentWebhookSecret == "" {
		return nil, fmt.Errorf("payment webhook secret must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
