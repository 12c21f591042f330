package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmockv3 "github.com/pashagolub/pgxmock/v3"
	"github.com/shopspring/decimal"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
)

var orderRowColumns = []string{
	"id", "number", "user_id", "guest_email", "subtotal", "discount_amount", "shipping_amount", "tax_amount", "total",
	"currency", "coupon_code", "payment_status", "status", "payment_ref", "customer_note", "shipping_method",
	"billing_name", "billing_line1", "billing_line2", "billing_city", "billing_region", "billing_postal_code", "billing_country",
	"shipping_name", "shipping_line1", "shipping_line2", "shipping_city", "shipping_region", "shipping_postal_code", "shipping_country",
	"created_at", "updated_at", "paid_at", "cancelled_at",
}

func addOrderRow(rows *pgxmockv3.Rows, id int64, number string, paymentStatus model.PaymentStatus, status model.OrderStatus, now time.Time) *pgxmockv3.Rows {
	return rows.AddRow(
		id, number, nil, nil, "50.00", "0.00", "5.99", "11.20", "67.19",
		"USD", nil, paymentStatus, status, nil, "", "",
		"", "", "", "", "", "", "",
		"", "", "", "", "", "", "",
		now, now, nil, nil,
	)
}

func quoteFixture() *model.PriceQuote {
	return &model.PriceQuote{
		Lines: []model.QuoteLine{{
			ProductID:   1,
			ProductName: "Widget",
			SKU:         "WID-1",
			UnitPrice:   decimal.RequireFromString("25.00"),
			Quantity:    2,
			Subtotal:    decimal.RequireFromString("50.00"),
		}},
		Subtotal: decimal.RequireFromString("50.00"),
		Discount: decimal.Zero,
		Shipping: decimal.RequireFromString("5.99"),
		Tax:      decimal.RequireFromString("11.20"),
		Total:    decimal.RequireFromString("67.19"),
		Currency: "USD",
	}
}

func TestOrderRepositoryCreate(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	userID := int64(7)
	in := repository.NewOrder{
		Identity:      model.Identity{UserID: &userID},
		Quote:         quoteFixture(),
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WillReturnRows(pgxmockv3.NewRows([]string{"value"}).AddRow(int64(7)))
	mock.ExpectExec("UPDATE products SET stock_quantity").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO inventory_movements").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectCommit()

	order, err := repo.Create(context.Background(), in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	wantNumber := fmt.Sprintf("ORD-%s-0007", time.Now().UTC().Format("20060102"))
	if order.Number != wantNumber {
		t.Fatalf("unexpected number: %s, want %s", order.Number, wantNumber)
	}
	if order.ID != 42 || len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("unexpected order: %+v", order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCreateInsufficientStock(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	userID := int64(7)
	in := repository.NewOrder{
		Identity:      model.Identity{UserID: &userID},
		Quote:         quoteFixture(),
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WillReturnRows(pgxmockv3.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE products SET stock_quantity").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1)).
		WillReturnRows(pgxmockv3.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	if _, err := repo.Create(context.Background(), in); !errors.Is(err, domainErrors.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCreateUnknownProduct(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	guest := "guest@example.com"
	in := repository.NewOrder{
		Identity:      model.Identity{GuestEmail: &guest},
		Quote:         quoteFixture(),
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WillReturnRows(pgxmockv3.NewRows([]string{"value"}).AddRow(int64(1)))
	mock.ExpectExec("UPDATE products SET stock_quantity").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(1)).
		WillReturnRows(pgxmockv3.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectRollback()

	if _, err := repo.Create(context.Background(), in); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCreateCouponExhausted(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	userID := int64(7)
	quote := quoteFixture()
	quote.Coupon = &model.Coupon{ID: 3, Code: "save10", DiscountType: model.DiscountPercentage}
	in := repository.NewOrder{
		Identity:      model.Identity{UserID: &userID},
		Quote:         quote,
		PaymentStatus: model.PaymentStatusPending,
		Status:        model.OrderStatusPending,
	}

	now := time.Now()
	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO order_counters").
		WillReturnRows(pgxmockv3.NewRows([]string{"value"}).AddRow(int64(2)))
	mock.ExpectExec("UPDATE products SET stock_quantity").
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO inventory_movements").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("INSERT INTO orders").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(42), now, now))
	mock.ExpectQuery("INSERT INTO order_items").
		WillReturnRows(pgxmockv3.NewRows([]string{"id"}).AddRow(int64(1)))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE coupons SET usage_count").
		WithArgs(int64(3)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 0))
	mock.ExpectRollback()

	if _, err := repo.Create(context.Background(), in); !errors.Is(err, domainErrors.ErrCouponExhausted) {
		t.Fatalf("expected coupon exhausted, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestConfirmPaymentApplied(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-1", "payment_confirmed", (*string)(nil)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, payment_status, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "payment_status", "status"}).
			AddRow(int64(42), model.PaymentStatusPending, model.OrderStatusPending))
	mock.ExpectExec("UPDATE orders SET payment_status").
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE orders SET status='processing'").
		WithArgs(int64(42)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := repo.ConfirmPayment(context.Background(), "evt-1", "ORD-20260115-0001", nil)
	if err != nil || !applied {
		t.Fatalf("unexpected result: applied=%v err=%v", applied, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestConfirmPaymentDuplicateEvent(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-1", "payment_confirmed", (*string)(nil)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 0))
	mock.ExpectCommit()

	applied, err := repo.ConfirmPayment(context.Background(), "evt-1", "ORD-20260115-0001", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected replay to be a no-op")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestConfirmPaymentAlreadySettled(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-2", "payment_confirmed", (*string)(nil)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, payment_status, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "payment_status", "status"}).
			AddRow(int64(42), model.PaymentStatusPaid, model.OrderStatusProcessing))
	mock.ExpectCommit()

	applied, err := repo.ConfirmPayment(context.Background(), "evt-2", "ORD-20260115-0001", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if applied {
		t.Fatal("expected settled order to be left alone")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestConfirmPaymentUnknownOrder(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-3", "payment_confirmed", (*string)(nil)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, payment_status, status FROM orders WHERE number=").
		WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	mock.ExpectRollback()

	if _, err := repo.ConfirmPayment(context.Background(), "evt-3", "missing", nil); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestFailPaymentApplied(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	ref := "pay_123"
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-4", "payment_failed", &ref).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectQuery("SELECT id, payment_status, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0002").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "payment_status", "status"}).
			AddRow(int64(43), model.PaymentStatusPending, model.OrderStatusPending))
	mock.ExpectExec("UPDATE orders SET payment_status").
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectCommit()

	applied, err := repo.FailPayment(context.Background(), "evt-4", "ORD-20260115-0002", &ref)
	if err != nil || !applied {
		t.Fatalf("unexpected result: applied=%v err=%v", applied, err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryGetByNumber(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(addOrderRow(pgxmockv3.NewRows(orderRowColumns), 42, "ORD-20260115-0001", model.PaymentStatusPending, model.OrderStatusPending, now))
	mock.ExpectQuery("SELECT id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal").
		WithArgs(int64(42)).
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "product_id", "variant_id", "product_name", "sku", "unit_price", "quantity", "subtotal"}).
			AddRow(int64(1), int64(42), int64(1), nil, "Widget", "WID-1", "25.00", int64(2), "50.00"))

	order, err := repo.GetByNumber(context.Background(), "ORD-20260115-0001")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.ID != 42 || len(order.Items) != 1 || order.Items[0].SKU != "WID-1" {
		t.Fatalf("unexpected order: %+v", order)
	}

	mock.ExpectQuery("FROM orders WHERE number=").
		WithArgs("missing").WillReturnError(pgx.ErrNoRows)
	if _, err := repo.GetByNumber(context.Background(), "missing"); !errors.Is(err, domainErrors.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryListByOwner(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	userID := int64(7)
	rows := pgxmockv3.NewRows(orderRowColumns)
	addOrderRow(rows, 1, "ORD-20260115-0001", model.PaymentStatusPaid, model.OrderStatusProcessing, now)
	addOrderRow(rows, 2, "ORD-20260115-0002", model.PaymentStatusPending, model.OrderStatusPending, now)
	mock.ExpectQuery("FROM orders").
		WithArgs(&userID, (*string)(nil)).
		WillReturnRows(rows)

	orders, err := repo.ListByOwner(context.Background(), model.Identity{UserID: &userID})
	if err != nil || len(orders) != 2 {
		t.Fatalf("unexpected result: %v err=%v", orders, err)
	}

	mock.ExpectQuery("FROM orders").
		WithArgs(&userID, (*string)(nil)).
		WillReturnError(errors.New("query"))
	if _, err := repo.ListByOwner(context.Background(), model.Identity{UserID: &userID}); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCancel(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	actor := "user:7"
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "status"}).AddRow(int64(42), model.OrderStatusPending))
	mock.ExpectQuery("SELECT product_id, variant_id, quantity FROM order_items").
		WithArgs(int64(42)).
		WillReturnRows(pgxmockv3.NewRows([]string{"product_id", "variant_id", "quantity"}).
			AddRow(int64(1), nil, int64(2)))
	mock.ExpectExec("UPDATE products SET stock_quantity").
		WithArgs(int64(2), int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO inventory_movements").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectExec("UPDATE orders SET status='cancelled'").
		WithArgs(int64(42)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(addOrderRow(pgxmockv3.NewRows(orderRowColumns), 42, "ORD-20260115-0001", model.PaymentStatusPending, model.OrderStatusCancelled, now))
	mock.ExpectQuery("SELECT id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal").
		WithArgs(int64(42)).
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "product_id", "variant_id", "product_name", "sku", "unit_price", "quantity", "subtotal"}))

	order, err := repo.Cancel(context.Background(), "ORD-20260115-0001", &actor, "changed my mind")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusCancelled {
		t.Fatalf("unexpected status: %s", order.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryCancelShippedRejected(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "status"}).AddRow(int64(42), model.OrderStatusShipped))
	mock.ExpectRollback()

	if _, err := repo.Cancel(context.Background(), "ORD-20260115-0001", nil, ""); !errors.Is(err, domainErrors.ErrOrderNotCancellable) {
		t.Fatalf("expected not cancellable, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositorySetStatus(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	actor := "admin"

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "status"}).AddRow(int64(42), model.OrderStatusProcessing))
	mock.ExpectExec("UPDATE orders SET status=").
		WithArgs(model.OrderStatusShipped, int64(42)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("INSERT INTO order_status_history").
		WillReturnResult(pgxmockv3.NewResult("INSERT", 1))
	mock.ExpectCommit()

	mock.ExpectQuery("FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(addOrderRow(pgxmockv3.NewRows(orderRowColumns), 42, "ORD-20260115-0001", model.PaymentStatusPaid, model.OrderStatusShipped, now))
	mock.ExpectQuery("SELECT id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal").
		WithArgs(int64(42)).
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "product_id", "variant_id", "product_name", "sku", "unit_price", "quantity", "subtotal"}))

	order, err := repo.SetStatus(context.Background(), "ORD-20260115-0001", model.OrderStatusShipped, &actor, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if order.Status != model.OrderStatusShipped {
		t.Fatalf("unexpected status: %s", order.Status)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositorySetStatusRejectsCancelled(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	// Cancellation must go through Cancel so reserved stock is released.
	if _, err := repo.SetStatus(context.Background(), "ORD-20260115-0001", model.OrderStatusCancelled, nil, nil); !errors.Is(err, domainErrors.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}
}

func TestOrderRepositorySetStatusIllegalTransition(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id, status FROM orders WHERE number=").
		WithArgs("ORD-20260115-0001").
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "status"}).AddRow(int64(42), model.OrderStatusDelivered))
	mock.ExpectRollback()

	if _, err := repo.SetStatus(context.Background(), "ORD-20260115-0001", model.OrderStatusShipped, nil, nil); !errors.Is(err, domainErrors.ErrIllegalTransition) {
		t.Fatalf("expected illegal transition, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestSelectPendingPayment(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	rows := pgxmockv3.NewRows(orderRowColumns)
	addOrderRow(rows, 1, "ORD-20260115-0001", model.PaymentStatusPending, model.OrderStatusPending, now)
	addOrderRow(rows, 2, "ORD-20260115-0002", model.PaymentStatusPending, model.OrderStatusPending, now)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").
		WithArgs("900 seconds", 5).
		WillReturnRows(rows)
	mock.ExpectExec("UPDATE orders SET updated_at=NOW").
		WithArgs(int64(1)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE orders SET updated_at=NOW").
		WithArgs(int64(2)).
		WillReturnResult(pgxmockv3.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	orders, err := repo.SelectPendingPayment(context.Background(), 15*time.Minute, 5)
	if err != nil || len(orders) != 2 {
		t.Fatalf("unexpected result: %v err=%v", orders, err)
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM orders").
		WithArgs("900 seconds", 5).
		WillReturnError(errors.New("query"))
	mock.ExpectRollback()
	if _, err := repo.SelectPendingPayment(context.Background(), 15*time.Minute, 5); err == nil {
		t.Fatal("expected error")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestOrderRepositoryHistory(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	now := time.Now()
	mock.ExpectQuery("SELECT id, order_id, domain, from_status, to_status, actor, comment, created_at").
		WithArgs(int64(42)).
		WillReturnRows(pgxmockv3.NewRows([]string{"id", "order_id", "domain", "from_status", "to_status", "actor", "comment", "created_at"}).
			AddRow(int64(1), int64(42), model.StatusDomainFulfillment, "", "pending", nil, nil, now).
			AddRow(int64(2), int64(42), model.StatusDomainPayment, "pending", "paid", nil, nil, now))

	history, err := repo.History(context.Background(), 42)
	if err != nil || len(history) != 2 {
		t.Fatalf("unexpected result: %v err=%v", history, err)
	}
	if history[1].Domain != model.StatusDomainPayment || history[1].To != "paid" {
		t.Fatalf("unexpected entry: %+v", history[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}

func TestCreateFromEventDeduplicates(t *testing.T) {
	storage, mock := newMockStorage(t)
	defer mock.Close()
	repo := &orderRepository{storage: storage}

	userID := int64(7)
	paidAt := time.Now()
	in := repository.NewOrder{
		Identity:      model.Identity{UserID: &userID},
		Quote:         quoteFixture(),
		PaymentStatus: model.PaymentStatusPaid,
		Status:        model.OrderStatusProcessing,
		PaidAt:        &paidAt,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO webhook_events").
		WithArgs("evt-9", "payment_confirmed", (*string)(nil)).
		WillReturnResult(pgxmockv3.NewResult("INSERT", 0))
	mock.ExpectCommit()

	order, created, err := repo.CreateFromEvent(context.Background(), "evt-9", in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if created || order != nil {
		t.Fatalf("expected replay to be a no-op, got created=%v order=%+v", created, order)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations not met: %v", err)
	}
}
