package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/test"
	"github.com/storekit/fulfillment/internal/usecase"
)

func ownedOrder(number string, userID int64) model.Order {
	return model.Order{
		Number:        number,
		UserID:        &userID,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
	}
}

func TestOrderUseCaseGetEnforcesOwnership(t *testing.T) {
	orders := &test.OrderRepositoryStub{Orders: []model.Order{ownedOrder("ORD-20260115-0001", 7)}}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	if _, err := uc.Get(context.Background(), "ORD-20260115-0001", userIdentity(8)); err != domainErrors.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}

	order, err := uc.Get(context.Background(), "ORD-20260115-0001", userIdentity(7))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Number != "ORD-20260115-0001" {
		t.Fatalf("unexpected order %s", order.Number)
	}
}

func TestOrderUseCaseGetGuestOwnership(t *testing.T) {
	email := "jamie@example.com"
	orders := &test.OrderRepositoryStub{Orders: []model.Order{{Number: "ORD-20260115-0002", GuestEmail: &email, Status: model.OrderStatusPending}}}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	other := "mallory@example.com"
	if _, err := uc.Get(context.Background(), "ORD-20260115-0002", model.Identity{GuestEmail: &other}); err != domainErrors.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := uc.Get(context.Background(), "ORD-20260115-0002", model.Identity{GuestEmail: &email}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestOrderUseCaseListRequiresIdentity(t *testing.T) {
	uc := usecase.NewOrderUseCase(&test.OrderRepositoryStub{}, &test.InventoryRepositoryStub{})

	if _, err := uc.ListByOwner(context.Background(), model.Identity{}); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestOrderUseCaseCancelRecordsActor(t *testing.T) {
	var gotActor *string
	var gotReason string
	orders := &test.OrderRepositoryStub{
		Orders: []model.Order{ownedOrder("ORD-20260115-0003", 7)},
		CancelFn: func(ctx context.Context, number string, actor *string, reason string) (*model.Order, error) {
			gotActor = actor
			gotReason = reason
			return &model.Order{Number: number, Status: model.OrderStatusCancelled}, nil
		},
	}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	order, err := uc.Cancel(context.Background(), "ORD-20260115-0003", userIdentity(7), "changed my mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("unexpected status %s", order.Status)
	}
	if gotActor == nil || *gotActor != "user:7" {
		t.Fatalf("unexpected actor %v", gotActor)
	}
	if gotReason != "changed my mind" {
		t.Fatalf("unexpected reason %q", gotReason)
	}
}

func TestOrderUseCaseCancelForbiddenForStranger(t *testing.T) {
	orders := &test.OrderRepositoryStub{Orders: []model.Order{ownedOrder("ORD-20260115-0004", 7)}}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	if _, err := uc.Cancel(context.Background(), "ORD-20260115-0004", userIdentity(8), ""); err != domainErrors.ErrForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if len(orders.Cancelled) != 0 {
		t.Fatal("cancel should not reach the repository")
	}
}

func TestAdminSetStatusRejectsUnknownStatus(t *testing.T) {
	uc := usecase.NewOrderUseCase(&test.OrderRepositoryStub{}, &test.InventoryRepositoryStub{})

	if _, err := uc.AdminSetStatus(context.Background(), "ORD-20260115-0005", "lost", "admin:ops", nil); !errors.Is(err, domainErrors.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestAdminSetStatusCancelledReleasesStock(t *testing.T) {
	var gotActor *string
	var gotReason string
	orders := &test.OrderRepositoryStub{
		CancelFn: func(ctx context.Context, number string, actor *string, reason string) (*model.Order, error) {
			gotActor = actor
			gotReason = reason
			return &model.Order{Number: number, Status: model.OrderStatusCancelled}, nil
		},
	}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	comment := "fraud review"
	if _, err := uc.AdminSetStatus(context.Background(), "ORD-20260115-0006", model.OrderStatusCancelled, "admin:ops", &comment); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(orders.Cancelled) != 1 {
		t.Fatal("expected cancellation to route through Cancel")
	}
	if len(orders.StatusCalls) != 0 {
		t.Fatal("cancelled must not go through SetStatus")
	}
	if gotActor == nil || *gotActor != "admin:ops" {
		t.Fatalf("unexpected actor %v", gotActor)
	}
	if gotReason != "fraud review" {
		t.Fatalf("unexpected reason %q", gotReason)
	}
}

func TestAdminSetStatusTransition(t *testing.T) {
	order := ownedOrder("ORD-20260115-0007", 7)
	order.Status = model.OrderStatusProcessing
	orders := &test.OrderRepositoryStub{Orders: []model.Order{order}}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	updated, err := uc.AdminSetStatus(context.Background(), "ORD-20260115-0007", model.OrderStatusShipped, "admin:ops", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Status != model.OrderStatusShipped {
		t.Fatalf("unexpected status %s", updated.Status)
	}
	if len(orders.StatusCalls) != 1 || orders.StatusCalls[0] != model.OrderStatusShipped {
		t.Fatalf("unexpected status calls %v", orders.StatusCalls)
	}
}

func TestAdminAdjustInventory(t *testing.T) {
	inventory := &test.InventoryRepositoryStub{}
	uc := usecase.NewOrderUseCase(&test.OrderRepositoryStub{}, inventory)

	variantID := int64(5)
	if err := uc.AdminAdjustInventory(context.Background(), 1, &variantID, -3, "stocktake"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(inventory.Adjustments) != 1 {
		t.Fatalf("expected one adjustment, got %d", len(inventory.Adjustments))
	}
	call := inventory.Adjustments[0]
	if call.ProductID != 1 || call.VariantID == nil || *call.VariantID != 5 || call.Delta != -3 || call.Note != "stocktake" {
		t.Fatalf("unexpected adjustment %+v", call)
	}
}

func TestPendingPaymentBatch(t *testing.T) {
	orders := &test.OrderRepositoryStub{Pending: []model.Order{
		ownedOrder("ORD-20260115-0008", 7),
		ownedOrder("ORD-20260115-0009", 7),
	}}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	batch, err := uc.PendingPaymentBatch(context.Background(), 15*time.Minute, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != 1 {
		t.Fatalf("expected batch of one, got %d", len(batch))
	}
}

func TestSettlePaymentPaid(t *testing.T) {
	orders := &test.OrderRepositoryStub{}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	ref := "pay_123"
	applied, err := uc.SettlePayment(context.Background(), &model.PaymentCheck{
		OrderNumber: "ORD-20260115-0010",
		Status:      model.GatewayStatusPaid,
		PaymentRef:  &ref,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected settlement to apply")
	}
	if len(orders.Confirmed) != 1 {
		t.Fatalf("expected one confirm call, got %d", len(orders.Confirmed))
	}
	call := orders.Confirmed[0]
	if call.EventID != "reconcile:paid:ORD-20260115-0010" {
		t.Fatalf("unexpected event id %s", call.EventID)
	}
	if call.PaymentRef == nil || *call.PaymentRef != "pay_123" {
		t.Fatalf("unexpected payment ref %v", call.PaymentRef)
	}
}

func TestSettlePaymentFailed(t *testing.T) {
	orders := &test.OrderRepositoryStub{}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	applied, err := uc.SettlePayment(context.Background(), &model.PaymentCheck{
		OrderNumber: "ORD-20260115-0011",
		Status:      model.GatewayStatusFailed,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !applied {
		t.Fatal("expected settlement to apply")
	}
	if len(orders.Failed) != 1 || orders.Failed[0].EventID != "reconcile:failed:ORD-20260115-0011" {
		t.Fatalf("unexpected fail calls %v", orders.Failed)
	}
}

func TestSettlePaymentStillPending(t *testing.T) {
	orders := &test.OrderRepositoryStub{}
	uc := usecase.NewOrderUseCase(orders, &test.InventoryRepositoryStub{})

	applied, err := uc.SettlePayment(context.Background(), &model.PaymentCheck{
		OrderNumber: "ORD-20260115-0012",
		Status:      model.GatewayStatusPending,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("pending checks must not settle anything")
	}
	if len(orders.Confirmed) != 0 || len(orders.Failed) != 0 {
		t.Fatal("no settlement calls expected")
	}
}
