package worker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/storekit/fulfillment/internal/adapter/payment"
	"github.com/storekit/fulfillment/internal/domain/model"
)

// FulfillmentFacade exposes the subset of application functionality required
// by the reconciler.
type FulfillmentFacade interface {
	PendingPayments(ctx context.Context, limit int) ([]model.Order, error)
	CheckPayment(ctx context.Context, orderNumber string) (*model.PaymentCheck, error)
	SettlePayment(ctx context.Context, check *model.PaymentCheck) (bool, error)
}

// Reconciler polls the payment gateway for stale pending-payment orders and
// applies the verdicts concurrently. It backstops lost webhooks; every
// settlement goes through the same dedup and status-conditioned transitions
// as the webhook path, so the two sources commute.
type Reconciler struct {
	facade       FulfillmentFacade
	pollInterval time.Duration
	batchSize    int
	workers      int
	logger       *slog.Logger

	jobs   chan model.Order
	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewReconciler constructs the reconciliation worker pool.
func NewReconciler(facade FulfillmentFacade, pollInterval time.Duration, batchSize, workers int, logger *slog.Logger) *Reconciler {
	if workers <= 0 {
		workers = 1
	}
	if batchSize <= 0 {
		batchSize = 1
	}
	return &Reconciler{
		facade:       facade,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		workers:      workers,
		logger:       logger,
		jobs:         make(chan model.Order, batchSize*workers),
	}
}

// Start launches background processing.
func (r *Reconciler) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel

	for i := 0; i < r.workers; i++ {
		r.wg.Add(1)
		go r.worker(runCtx)
	}

	r.wg.Add(1)
	go r.dispatch(runCtx)
}

// Stop waits for all workers to finish.
func (r *Reconciler) Stop() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
		r.cancel = nil
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Reconciler) dispatch(ctx context.Context) {
	defer r.wg.Done()
	defer close(r.jobs)
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.fetchAndDispatch(ctx)
		}
	}
}

func (r *Reconciler) fetchAndDispatch(ctx context.Context) {
	orders, err := r.facade.PendingPayments(ctx, r.batchSize)
	if err != nil {
		r.logger.Error("fetch pending payments failed", slog.String("error", err.Error()))
		return
	}
	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		case r.jobs <- order:
		}
	}
}

func (r *Reconciler) worker(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case order, ok := <-r.jobs:
			if !ok {
				return
			}
			r.handleOrder(ctx, order)
		}
	}
}

func (r *Reconciler) handleOrder(ctx context.Context, order model.Order) {
	check, err := r.facade.CheckPayment(ctx, order.Number)
	if err != nil {
		var rateLimited payment.TooManyRequestsError
		switch {
		case errors.As(err, &rateLimited):
			r.logger.Warn("gateway rate limited", slog.Duration("retry_after", rateLimited.RetryAfter))
			time.Sleep(rateLimited.RetryAfter)
		case errors.Is(err, payment.ErrPaymentUnknown):
			// Gateway hasn't seen the order yet; the next poll retries.
		default:
			r.logger.Error("gateway check failed", slog.String("order", order.Number), slog.String("error", err.Error()))
		}
		return
	}

	applied, err := r.facade.SettlePayment(ctx, check)
	if err != nil {
		r.logger.Error("settle payment failed", slog.String("order", order.Number), slog.String("error", err.Error()))
		return
	}
	if applied {
		r.logger.Info("payment reconciled",
			slog.String("order", order.Number),
			slog.String("status", string(check.Status)),
		)
	}
}
