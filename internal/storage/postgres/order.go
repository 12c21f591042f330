package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
	"github.com/storekit/fulfillment/internal/domain/repository"
)

type orderRepository struct {
	storage *Storage
}

const orderColumns = `id, number, user_id, guest_email, subtotal, discount_amount, shipping_amount, tax_amount, total,
       currency, coupon_code, payment_status, status, payment_ref, customer_note, shipping_method,
       billing_name, billing_line1, billing_line2, billing_city, billing_region, billing_postal_code, billing_country,
       shipping_name, shipping_line1, shipping_line2, shipping_city, shipping_region, shipping_postal_code, shipping_country,
       created_at, updated_at, paid_at, cancelled_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(
		&o.ID, &o.Number, &o.UserID, &o.GuestEmail,
		&o.Subtotal, &o.DiscountAmount, &o.ShippingAmount, &o.TaxAmount, &o.Total,
		&o.Currency, &o.CouponCode, &o.PaymentStatus, &o.Status, &o.PaymentRef,
		&o.CustomerNote, &o.ShippingMethod,
		&o.Billing.Name, &o.Billing.Line1, &o.Billing.Line2, &o.Billing.City,
		&o.Billing.Region, &o.Billing.PostalCode, &o.Billing.Country,
		&o.Shipping.Name, &o.Shipping.Line1, &o.Shipping.Line2, &o.Shipping.City,
		&o.Shipping.Region, &o.Shipping.PostalCode, &o.Shipping.Country,
		&o.CreatedAt, &o.UpdatedAt, &o.PaidAt, &o.CancelledAt,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &o, nil
}

// nextOrderNumberTx allocates the next ORD-YYYYMMDD-NNNN number from an
// atomic per-day counter row; two concurrent allocations serialize on the
// upsert instead of reading the same count.
func nextOrderNumberTx(ctx context.Context, tx pgx.Tx, now time.Time) (string, error) {
	const query = `INSERT INTO order_counters (day, value) VALUES ($1, 1)
                   ON CONFLICT (day) DO UPDATE SET value = order_counters.value + 1
                   RETURNING value`
	day := now.UTC()
	var seq int64
	if err := tx.QueryRow(ctx, query, day.Format("2006-01-02")).Scan(&seq); err != nil {
		return "", fmt.Errorf("allocate order number: %w", err)
	}
	return fmt.Sprintf("ORD-%s-%04d", day.Format("20060102"), seq), nil
}

func appendHistoryTx(ctx context.Context, tx pgx.Tx, orderID int64, domain model.StatusDomain, from, to string, actor, comment *string) error {
	const query = `INSERT INTO order_status_history (order_id, domain, from_status, to_status, actor, comment)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := tx.Exec(ctx, query, orderID, domain, from, to, actor, comment)
	return err
}

// createTx persists an order: number allocation, per-line inventory
// reservation with a fresh conditional check, order/items/history inserts,
// coupon usage accounting, and cart cleanup, all on the caller's transaction.
func (r *orderRepository) createTx(ctx context.Context, tx pgx.Tx, in repository.NewOrder) (*model.Order, error) {
	now := time.Now()
	number, err := nextOrderNumberTx(ctx, tx, now)
	if err != nil {
		return nil, err
	}

	for _, line := range in.Quote.Lines {
		if err := reserveTx(ctx, tx, line.ProductID, line.VariantID, line.Quantity, number); err != nil {
			return nil, err
		}
	}

	var couponCode *string
	if in.Quote.Coupon != nil {
		couponCode = &in.Quote.Coupon.Code
	}

	const insertOrder = `INSERT INTO orders (
            number, user_id, guest_email, subtotal, discount_amount, shipping_amount, tax_amount, total,
            currency, coupon_code, payment_status, status, payment_ref, customer_note, shipping_method,
            billing_name, billing_line1, billing_line2, billing_city, billing_region, billing_postal_code, billing_country,
            shipping_name, shipping_line1, shipping_line2, shipping_city, shipping_region, shipping_postal_code, shipping_country,
            paid_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30)
        RETURNING id, created_at, updated_at`

	order := &model.Order{
		Number:         number,
		UserID:         in.Identity.UserID,
		GuestEmail:     in.Identity.GuestEmail,
		Subtotal:       in.Quote.Subtotal,
		DiscountAmount: in.Quote.Discount,
		ShippingAmount: in.Quote.Shipping,
		TaxAmount:      in.Quote.Tax,
		Total:          in.Quote.Total,
		Currency:       in.Quote.Currency,
		CouponCode:     couponCode,
		PaymentStatus:  in.PaymentStatus,
		Status:         in.Status,
		PaymentRef:     in.PaymentRef,
		CustomerNote:   in.CustomerNote,
		ShippingMethod: in.ShippingMethod,
		Billing:        in.Billing,
		Shipping:       in.Shipping,
		PaidAt:         in.PaidAt,
	}

	err = tx.QueryRow(ctx, insertOrder,
		order.Number, order.UserID, order.GuestEmail,
		order.Subtotal, order.DiscountAmount, order.ShippingAmount, order.TaxAmount, order.Total,
		order.Currency, order.CouponCode, order.PaymentStatus, order.Status, order.PaymentRef,
		order.CustomerNote, order.ShippingMethod,
		order.Billing.Name, order.Billing.Line1, order.Billing.Line2, order.Billing.City,
		order.Billing.Region, order.Billing.PostalCode, order.Billing.Country,
		order.Shipping.Name, order.Shipping.Line1, order.Shipping.Line2, order.Shipping.City,
		order.Shipping.Region, order.Shipping.PostalCode, order.Shipping.Country,
		order.PaidAt,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	const insertItem = `INSERT INTO order_items (order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal)
                        VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id`
	for _, line := range in.Quote.Lines {
		item := model.OrderItem{
			OrderID:     order.ID,
			ProductID:   line.ProductID,
			VariantID:   line.VariantID,
			ProductName: line.ProductName,
			SKU:         line.SKU,
			UnitPrice:   line.UnitPrice,
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal,
		}
		if err := tx.QueryRow(ctx, insertItem,
			item.OrderID, item.ProductID, item.VariantID, item.ProductName,
			item.SKU, item.UnitPrice, item.Quantity, item.Subtotal,
		).Scan(&item.ID); err != nil {
			return nil, fmt.Errorf("insert order item: %w", err)
		}
		order.Items = append(order.Items, item)
	}

	if err := appendHistoryTx(ctx, tx, order.ID, model.StatusDomainFulfillment, "", string(order.Status), in.Actor, nil); err != nil {
		return nil, err
	}
	if order.PaymentStatus != model.PaymentStatusPending {
		if err := appendHistoryTx(ctx, tx, order.ID, model.StatusDomainPayment, string(model.PaymentStatusPending), string(order.PaymentStatus), in.Actor, nil); err != nil {
			return nil, err
		}
	}

	if in.Quote.Coupon != nil {
		if err := applyCouponTx(ctx, tx, in.Quote.Coupon, in.Identity, number); err != nil {
			return nil, err
		}
	}

	if in.CartID != nil && *in.CartID != "" {
		if _, err := tx.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, *in.CartID); err != nil {
			return nil, fmt.Errorf("clear cart: %w", err)
		}
	}

	return order, nil
}

// applyCouponTx increments the coupon counter under its usage limit and
// re-checks the per-user limit while holding the coupon row lock, so two
// racing orders cannot both take the last use.
func applyCouponTx(ctx context.Context, tx pgx.Tx, coupon *model.Coupon, identity model.Identity, orderNumber string) error {
	const increment = `UPDATE coupons SET usage_count = usage_count + 1
                       WHERE id=$1 AND active AND (usage_limit IS NULL OR usage_count < usage_limit)`
	tag, err := tx.Exec(ctx, increment, coupon.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrCouponExhausted
	}

	if coupon.PerUserLimit != nil {
		const countUses = `SELECT COUNT(*) FROM coupon_usages
                           WHERE coupon_id=$1 AND ((user_id IS NOT NULL AND user_id=$2) OR (guest_email IS NOT NULL AND guest_email=$3))`
		var uses int64
		if err := tx.QueryRow(ctx, countUses, coupon.ID, identity.UserID, identity.GuestEmail).Scan(&uses); err != nil {
			return err
		}
		if uses >= *coupon.PerUserLimit {
			return domainErrors.CouponError{Reason: domainErrors.CouponPerUserLimitReached}
		}
	}

	const insertUsage = `INSERT INTO coupon_usages (coupon_id, user_id, guest_email, order_number) VALUES ($1,$2,$3,$4)`
	if _, err := tx.Exec(ctx, insertUsage, coupon.ID, identity.UserID, identity.GuestEmail, orderNumber); err != nil {
		return err
	}
	return nil
}

func (r *orderRepository) Create(ctx context.Context, in repository.NewOrder) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var err error
		order, err = r.createTx(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) GetByNumber(ctx context.Context, number string) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE number=$1`, number))
	if err != nil {
		return nil, err
	}

	const itemsQuery = `SELECT id, order_id, product_id, variant_id, product_name, sku, unit_price, quantity, subtotal
                        FROM order_items WHERE order_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, itemsQuery, order.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var item model.OrderItem
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.VariantID,
			&item.ProductName, &item.SKU, &item.UnitPrice, &item.Quantity, &item.Subtotal); err != nil {
			return nil, err
		}
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) ListByOwner(ctx context.Context, identity model.Identity) ([]model.Order, error) {
	const query = `SELECT ` + orderColumns + ` FROM orders
                   WHERE (user_id IS NOT NULL AND user_id=$1) OR (guest_email IS NOT NULL AND guest_email=$2)
                   ORDER BY created_at DESC`
	rows, err := r.storage.pool.Query(ctx, query, identity.UserID, identity.GuestEmail)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// recordEventTx inserts the dedup row for an external event; false means the
// event was already processed.
func recordEventTx(ctx context.Context, tx pgx.Tx, eventID, eventType string, paymentRef *string) (bool, error) {
	const query = `INSERT INTO webhook_events (event_id, event_type, payment_ref) VALUES ($1,$2,$3)
                   ON CONFLICT (event_id) DO NOTHING`
	tag, err := tx.Exec(ctx, query, eventID, eventType, paymentRef)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *orderRepository) ConfirmPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error) {
	return r.settlePayment(ctx, eventID, string(model.PaymentEventConfirmed), orderNumber, paymentRef, model.PaymentStatusPaid)
}

func (r *orderRepository) FailPayment(ctx context.Context, eventID, orderNumber string, paymentRef *string) (bool, error) {
	return r.settlePayment(ctx, eventID, string(model.PaymentEventFailed), orderNumber, paymentRef, model.PaymentStatusFailed)
}

func (r *orderRepository) settlePayment(ctx context.Context, eventID, eventType, orderNumber string, paymentRef *string, to model.PaymentStatus) (bool, error) {
	applied := false
	actor := "payment-gateway"
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		fresh, err := recordEventTx(ctx, tx, eventID, eventType, paymentRef)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}

		const lockQuery = `SELECT id, payment_status, status FROM orders WHERE number=$1 FOR UPDATE`
		var orderID int64
		var paymentStatus model.PaymentStatus
		var status model.OrderStatus
		if err := tx.QueryRow(ctx, lockQuery, orderNumber).Scan(&orderID, &paymentStatus, &status); err != nil {
			return mapNotFound(err)
		}
		if paymentStatus != model.PaymentStatusPending {
			// Late or racing event; the first writer won.
			return nil
		}

		if to == model.PaymentStatusPaid {
			const update = `UPDATE orders SET payment_status=$1, paid_at=NOW(),
                                   payment_ref=COALESCE($2, payment_ref), updated_at=NOW()
                            WHERE id=$3 AND payment_status='pending'`
			if _, err := tx.Exec(ctx, update, to, paymentRef, orderID); err != nil {
				return err
			}
		} else {
			const update = `UPDATE orders SET payment_status=$1,
                                   payment_ref=COALESCE($2, payment_ref), updated_at=NOW()
                            WHERE id=$3 AND payment_status='pending'`
			if _, err := tx.Exec(ctx, update, to, paymentRef, orderID); err != nil {
				return err
			}
		}
		if err := appendHistoryTx(ctx, tx, orderID, model.StatusDomainPayment, string(paymentStatus), string(to), &actor, nil); err != nil {
			return err
		}

		if to == model.PaymentStatusPaid && status == model.OrderStatusPending {
			const advance = `UPDATE orders SET status='processing', updated_at=NOW() WHERE id=$1 AND status='pending'`
			if _, err := tx.Exec(ctx, advance, orderID); err != nil {
				return err
			}
			if err := appendHistoryTx(ctx, tx, orderID, model.StatusDomainFulfillment,
				string(model.OrderStatusPending), string(model.OrderStatusProcessing), &actor, nil); err != nil {
				return err
			}
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

func (r *orderRepository) CreateFromEvent(ctx context.Context, eventID string, in repository.NewOrder) (*model.Order, bool, error) {
	var order *model.Order
	created := false
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		fresh, err := recordEventTx(ctx, tx, eventID, string(model.PaymentEventConfirmed), in.PaymentRef)
		if err != nil {
			return err
		}
		if !fresh {
			return nil
		}
		order, err = r.createTx(ctx, tx, in)
		if err != nil {
			return err
		}
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

func (r *orderRepository) Cancel(ctx context.Context, number string, actor *string, reason string) (*model.Order, error) {
	var order *model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const lockQuery = `SELECT id, status FROM orders WHERE number=$1 FOR UPDATE`
		var orderID int64
		var status model.OrderStatus
		if err := tx.QueryRow(ctx, lockQuery, number).Scan(&orderID, &status); err != nil {
			return mapNotFound(err)
		}
		if status != model.OrderStatusPending && status != model.OrderStatusProcessing {
			return domainErrors.ErrOrderNotCancellable
		}

		const itemsQuery = `SELECT product_id, variant_id, quantity FROM order_items WHERE order_id=$1`
		rows, err := tx.Query(ctx, itemsQuery, orderID)
		if err != nil {
			return err
		}
		type reservedLine struct {
			productID int64
			variantID *int64
			quantity  int64
		}
		var lines []reservedLine
		for rows.Next() {
			var line reservedLine
			if err := rows.Scan(&line.productID, &line.variantID, &line.quantity); err != nil {
				rows.Close()
				return err
			}
			lines = append(lines, line)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		var note *string
		if reason != "" {
			note = &reason
		}
		for _, line := range lines {
			if err := releaseTx(ctx, tx, line.productID, line.variantID, line.quantity, model.MovementReturn, number, note); err != nil {
				return err
			}
		}

		const update = `UPDATE orders SET status='cancelled', cancelled_at=NOW(), updated_at=NOW() WHERE id=$1`
		if _, err := tx.Exec(ctx, update, orderID); err != nil {
			return err
		}
		if err := appendHistoryTx(ctx, tx, orderID, model.StatusDomainFulfillment,
			string(status), string(model.OrderStatusCancelled), actor, note); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	order, err = r.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (r *orderRepository) SetStatus(ctx context.Context, number string, to model.OrderStatus, actor *string, comment *string) (*model.Order, error) {
	// Cancellation goes through Cancel so reserved stock is released.
	if to == model.OrderStatusCancelled {
		return nil, domainErrors.ErrIllegalTransition
	}
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		const lockQuery = `SELECT id, status FROM orders WHERE number=$1 FOR UPDATE`
		var orderID int64
		var from model.OrderStatus
		if err := tx.QueryRow(ctx, lockQuery, number).Scan(&orderID, &from); err != nil {
			return mapNotFound(err)
		}
		if !model.CanTransition(from, to) {
			return domainErrors.ErrIllegalTransition
		}
		const update = `UPDATE orders SET status=$1, updated_at=NOW() WHERE id=$2`
		if _, err := tx.Exec(ctx, update, to, orderID); err != nil {
			return err
		}
		return appendHistoryTx(ctx, tx, orderID, model.StatusDomainFulfillment, string(from), string(to), actor, comment)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByNumber(ctx, number)
}

func (r *orderRepository) SelectPendingPayment(ctx context.Context, olderThan time.Duration, limit int) ([]model.Order, error) {
	const selectQuery = `SELECT ` + orderColumns + ` FROM orders
                         WHERE payment_status='pending' AND updated_at < NOW() - $1::interval
                         ORDER BY created_at
                         LIMIT $2
                         FOR UPDATE SKIP LOCKED`

	var orders []model.Order
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		interval := fmt.Sprintf("%d seconds", int64(olderThan.Seconds()))
		rows, err := tx.Query(ctx, selectQuery, interval, limit)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			order, err := scanOrder(rows)
			if err != nil {
				return err
			}
			orders = append(orders, *order)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		for _, order := range orders {
			if _, err := tx.Exec(ctx, `UPDATE orders SET updated_at=NOW() WHERE id=$1`, order.ID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *orderRepository) History(ctx context.Context, orderID int64) ([]model.StatusHistory, error) {
	const query = `SELECT id, order_id, domain, from_status, to_status, actor, comment, created_at
                   FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.StatusHistory
	for rows.Next() {
		var h model.StatusHistory
		if err := rows.Scan(&h.ID, &h.OrderID, &h.Domain, &h.From, &h.To, &h.Actor, &h.Comment, &h.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
