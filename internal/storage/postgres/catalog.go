package postgres

import (
	"context"
	"strings"

	"github.com/storekit/fulfillment/internal/domain/model"
)

type catalogRepository struct {
	storage *Storage
}

func (r *catalogRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	const query = `SELECT id, name, sku, price, currency, stock_quantity, track_inventory, allow_backorder, active
                   FROM products WHERE id=$1`
	var p model.Product
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.Name, &p.SKU, &p.Price, &p.Currency,
		&p.StockQuantity, &p.TrackInventory, &p.AllowBackorder, &p.Active,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &p, nil
}

func (r *catalogRepository) GetVariant(ctx context.Context, id int64) (*model.Variant, error) {
	const query = `SELECT id, product_id, name, sku, price_adjustment, stock_quantity, track_inventory, allow_backorder, active
                   FROM product_variants WHERE id=$1`
	var v model.Variant
	err := r.storage.pool.QueryRow(ctx, query, id).Scan(
		&v.ID, &v.ProductID, &v.Name, &v.SKU, &v.PriceAdjustment,
		&v.StockQuantity, &v.TrackInventory, &v.AllowBackorder, &v.Active,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &v, nil
}

type couponRepository struct {
	storage *Storage
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*model.Coupon, error) {
	const query = `SELECT id, code, discount_type, discount_value, min_purchase_amount, max_discount_amount,
                          usage_limit, per_user_limit, usage_count, active, valid_from, valid_until
                   FROM coupons WHERE code=$1`
	var c model.Coupon
	err := r.storage.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(code))).Scan(
		&c.ID, &c.Code, &c.DiscountType, &c.DiscountValue, &c.MinPurchaseAmount, &c.MaxDiscountAmount,
		&c.UsageLimit, &c.PerUserLimit, &c.UsageCount, &c.Active, &c.ValidFrom, &c.ValidUntil,
	)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &c, nil
}

func (r *couponRepository) UsageCountByOwner(ctx context.Context, couponID int64, identity model.Identity) (int64, error) {
	const query = `SELECT COUNT(*) FROM coupon_usages
                   WHERE coupon_id=$1 AND ((user_id IS NOT NULL AND user_id=$2) OR (guest_email IS NOT NULL AND guest_email=$3))`
	var count int64
	err := r.storage.pool.QueryRow(ctx, query, couponID, identity.UserID, identity.GuestEmail).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

type cartRepository struct {
	storage *Storage
}

func (r *cartRepository) Items(ctx context.Context, cartID string) ([]model.CartItem, error) {
	const query = `SELECT product_id, variant_id, quantity FROM cart_items WHERE cart_id=$1 ORDER BY id`
	rows, err := r.storage.pool.Query(ctx, query, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.CartItem
	for rows.Next() {
		var item model.CartItem
		if err := rows.Scan(&item.ProductID, &item.VariantID, &item.Quantity); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *cartRepository) Clear(ctx context.Context, cartID string) error {
	_, err := r.storage.pool.Exec(ctx, `DELETE FROM cart_items WHERE cart_id=$1`, cartID)
	return err
}
