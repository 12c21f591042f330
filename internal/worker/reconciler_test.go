package worker

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/storekit/fulfillment/internal/adapter/payment"
	"github.com/storekit/fulfillment/internal/domain/model"
	testhelpers "github.com/storekit/fulfillment/internal/test"
)

func TestNewReconcilerDefaults(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	rec := NewReconciler(&testhelpers.WorkerFacadeStub{}, time.Second, 0, 0, logger)
	if rec.batchSize != 1 {
		t.Fatalf("expected batch size default to 1, got %d", rec.batchSize)
	}
	if rec.workers != 1 {
		t.Fatalf("expected workers default to 1, got %d", rec.workers)
	}
}

func TestReconcilerSettlesPendingOrders(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	facade := &testhelpers.WorkerFacadeStub{Batches: [][]model.Order{{{ID: 1, Number: "ORD-20260115-0001"}}}}
	rec := NewReconciler(facade, 10*time.Millisecond, 1, 1, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx)

	deadline := time.After(500 * time.Millisecond)
	for {
		facade.Lock()
		settled := len(facade.Settled) > 0
		facade.Unlock()
		if settled {
			break
		}
		select {
		case <-deadline:
			t.Fatal("timeout waiting for settlement")
		case <-time.After(10 * time.Millisecond):
		}
	}

	rec.Stop()
	facade.Lock()
	defer facade.Unlock()
	if len(facade.Settled) == 0 {
		t.Fatalf("expected settlement")
	}
	if facade.Settled[0].OrderNumber != "ORD-20260115-0001" {
		t.Fatalf("unexpected order %s", facade.Settled[0].OrderNumber)
	}
	if facade.Settled[0].Status != model.GatewayStatusPaid {
		t.Fatalf("expected paid status, got %v", facade.Settled[0].Status)
	}
}

func TestReconcilerHandlesRateLimiting(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	attempts := int32(0)
	facade := &testhelpers.WorkerFacadeStub{
		Batches: [][]model.Order{{{ID: 1, Number: "ORD-20260115-0002"}}, {{ID: 1, Number: "ORD-20260115-0002"}}},
		CheckFn: func(ctx context.Context, number string) (*model.PaymentCheck, error) {
			if atomic.AddInt32(&attempts, 1) == 1 {
				return nil, payment.TooManyRequestsError{RetryAfter: 10 * time.Millisecond}
			}
			return &model.PaymentCheck{OrderNumber: number, Status: model.GatewayStatusPaid}, nil
		},
	}

	rec := NewReconciler(facade, 5*time.Millisecond, 1, 1, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx)

	deadline := time.After(time.Second)
	for {
		facade.Lock()
		if len(facade.Settled) > 0 {
			facade.Unlock()
			break
		}
		facade.Unlock()
		select {
		case <-deadline:
			t.Fatal("timeout waiting for retry")
		case <-time.After(10 * time.Millisecond):
		}
	}
	rec.Stop()
}

func TestReconcilerSkipsUnknownPayments(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	checked := int32(0)
	facade := &testhelpers.WorkerFacadeStub{
		Batches: [][]model.Order{{{ID: 1, Number: "ORD-20260115-0003"}}},
		CheckFn: func(ctx context.Context, number string) (*model.PaymentCheck, error) {
			atomic.AddInt32(&checked, 1)
			return nil, payment.ErrPaymentUnknown
		},
	}

	rec := NewReconciler(facade, 5*time.Millisecond, 1, 1, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	rec.Start(ctx)

	deadline := time.After(time.Second)
	for atomic.LoadInt32(&checked) == 0 {
		select {
		case <-deadline:
			t.Fatal("timeout waiting for gateway check")
		case <-time.After(10 * time.Millisecond):
		}
	}
	rec.Stop()

	facade.Lock()
	defer facade.Unlock()
	if len(facade.Settled) != 0 {
		t.Fatalf("unknown payments must not settle, got %v", facade.Settled)
	}
}
