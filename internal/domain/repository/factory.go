package repository

// Factory describes access to different domain repositories.
type Factory interface {
	Catalog() CatalogRepository
	Coupons() CouponRepository
	Carts() CartRepository
	Orders() OrderRepository
	Inventory() InventoryRepository
}
