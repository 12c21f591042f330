package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	domainErrors "github.com/storekit/fulfillment/internal/domain/errors"
	"github.com/storekit/fulfillment/internal/domain/model"
)

type inventoryRepository struct {
	storage *Storage
}

// reserveTx atomically decrements stock at the referenced level (variant when
// present, product otherwise). The decrement and the availability check are
// one guarded UPDATE, so a stale earlier read can never oversell. Every
// decrement is paired with a 'sale' movement row.
func reserveTx(ctx context.Context, tx pgx.Tx, productID int64, variantID *int64, quantity int64, orderNumber string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: reserve quantity must be positive", domainErrors.ErrValidation)
	}

	if variantID != nil {
		const update = `UPDATE product_variants SET stock_quantity = stock_quantity - $1
                        WHERE id=$2 AND (NOT track_inventory OR allow_backorder OR stock_quantity >= $1)`
		res, err := tx.Exec(ctx, update, quantity, *variantID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM product_variants WHERE id=$1)`, *variantID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domainErrors.ErrNotFound
			}
			return domainErrors.ErrInsufficientStock
		}
	} else {
		const update = `UPDATE products SET stock_quantity = stock_quantity - $1, updated_at=NOW()
                        WHERE id=$2 AND (NOT track_inventory OR allow_backorder OR stock_quantity >= $1)`
		res, err := tx.Exec(ctx, update, quantity, productID)
		if err != nil {
			return err
		}
		if res.RowsAffected() == 0 {
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE id=$1)`, productID).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				return domainErrors.ErrNotFound
			}
			return domainErrors.ErrInsufficientStock
		}
	}

	return insertMovementTx(ctx, tx, productID, variantID, model.MovementSale, -quantity, &orderNumber, nil)
}

// releaseTx returns quantity units to stock with a paired movement row.
func releaseTx(ctx context.Context, tx pgx.Tx, productID int64, variantID *int64, quantity int64, movementType model.MovementType, reference string, note *string) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: release quantity must be positive", domainErrors.ErrValidation)
	}

	if variantID != nil {
		const update = `UPDATE product_variants SET stock_quantity = stock_quantity + $1 WHERE id=$2`
		if _, err := tx.Exec(ctx, update, quantity, *variantID); err != nil {
			return err
		}
	} else {
		const update = `UPDATE products SET stock_quantity = stock_quantity + $1, updated_at=NOW() WHERE id=$2`
		if _, err := tx.Exec(ctx, update, quantity, productID); err != nil {
			return err
		}
	}

	ref := reference
	return insertMovementTx(ctx, tx, productID, variantID, movementType, quantity, &ref, note)
}

func insertMovementTx(ctx context.Context, tx pgx.Tx, productID int64, variantID *int64, movementType model.MovementType, quantity int64, reference, note *string) error {
	const query = `INSERT INTO inventory_movements (id, product_id, variant_id, movement_type, quantity, reference, note)
                   VALUES ($1,$2,$3,$4,$5,$6,$7)`
	_, err := tx.Exec(ctx, query, uuid.NewString(), productID, variantID, movementType, quantity, reference, note)
	return err
}

// Adjust applies a manual correction. Negative deltas respect the same
// non-negative guard as reservations.
func (r *inventoryRepository) Adjust(ctx context.Context, productID int64, variantID *int64, delta int64, note string) error {
	if delta == 0 {
		return fmt.Errorf("%w: adjustment delta must be non-zero", domainErrors.ErrValidation)
	}

	return r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var notePtr *string
		if note != "" {
			notePtr = &note
		}

		if delta > 0 {
			if variantID != nil {
				if _, err := tx.Exec(ctx, `UPDATE product_variants SET stock_quantity = stock_quantity + $1 WHERE id=$2`, delta, *variantID); err != nil {
					return err
				}
			} else {
				if _, err := tx.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity + $1, updated_at=NOW() WHERE id=$2`, delta, productID); err != nil {
					return err
				}
			}
			return insertMovementTx(ctx, tx, productID, variantID, model.MovementAdjustment, delta, nil, notePtr)
		}

		down := -delta
		var affected int64
		if variantID != nil {
			res, err := tx.Exec(ctx, `UPDATE product_variants SET stock_quantity = stock_quantity - $1 WHERE id=$2 AND stock_quantity >= $1`, down, *variantID)
			if err != nil {
				return err
			}
			affected = res.RowsAffected()
		} else {
			res, err := tx.Exec(ctx, `UPDATE products SET stock_quantity = stock_quantity - $1, updated_at=NOW() WHERE id=$2 AND stock_quantity >= $1`, down, productID)
			if err != nil {
				return err
			}
			affected = res.RowsAffected()
		}
		if affected == 0 {
			return domainErrors.ErrInsufficientStock
		}
		return insertMovementTx(ctx, tx, productID, variantID, model.MovementAdjustment, delta, nil, notePtr)
	})
}

func (r *inventoryRepository) MovementsByReference(ctx context.Context, reference string) ([]model.InventoryMovement, error) {
	const query = `SELECT id, product_id, variant_id, movement_type, quantity, reference, note, created_at
                   FROM inventory_movements WHERE reference=$1 ORDER BY created_at, id`
	rows, err := r.storage.pool.Query(ctx, query, reference)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []model.InventoryMovement
	for rows.Next() {
		var m model.InventoryMovement
		if err := rows.Scan(&m.ID, &m.ProductID, &m.VariantID, &m.Type, &m.Quantity, &m.Reference, &m.Note, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
