package repository

import (
	"context"

	"github.com/storekit/fulfillment/internal/domain/model"
)

// CatalogRepository gives read-only access to products and variants.
// Price and stock truth is owned by the catalog collaborator.
type CatalogRepository interface {
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	GetVariant(ctx context.Context, id int64) (*model.Variant, error)
}

// CouponRepository reads coupon records; counters are mutated only through
// OrderRepository.CreateOrder to keep the increment inside the order
// transaction.
type CouponRepository interface {
	GetByCode(ctx context.Context, code string) (*model.Coupon, error)
	UsageCountByOwner(ctx context.Context, couponID int64, identity model.Identity) (int64, error)
}

// CartRepository is the read/clear surface over the cart collaborator.
type CartRepository interface {
	Items(ctx context.Context, cartID string) ([]model.CartItem, error)
	Clear(ctx context.Context, cartID string) error
}
