package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// Reservation records a committed stock decrement for a single product.
// It exists for the lifetime of the enclosing transaction: committing the
// transaction commits the reservation, rolling back releases it.
type Reservation struct {
	ProductID int64
	Quantity  int
}

// ReserveStock atomically checks and decrements a product's quantity on
// hand. The SELECT ... FOR UPDATE serializes concurrent reservations on
// the same product row, so no caller can observe a stale quantity between
// the check and the decrement.
func ReserveStock(ctx context.Context, tx pgx.Tx, productID int64, qty int) (Reservation, error) {
	if qty <= 0 {
		return Reservation{}, fmt.Errorf("catalog: reserve stock: quantity must be positive, got %d", qty)
	}

	var name string
	var available int
	err := tx.QueryRow(ctx,
		`SELECT name, stock_quantity FROM products WHERE id = $1 AND is_active FOR UPDATE`,
		productID,
	).Scan(&name, &available)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Reservation{}, ErrProductNotFound
		}
		return Reservation{}, fmt.Errorf("catalog: lock stock row: %w", err)
	}

	if available < qty {
		return Reservation{}, &InsufficientStockError{
			ProductID:   productID,
			ProductName: name,
			Requested:   qty,
			Available:   available,
		}
	}

	tag, err := tx.Exec(ctx,
		`UPDATE products SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		 WHERE id = $1 AND stock_quantity >= $2`,
		productID, qty,
	)
	if err != nil {
		return Reservation{}, fmt.Errorf("catalog: decrement stock: %w", err)
	}
	if tag.RowsAffected() != 1 {
		// The row is locked, so this only fires if the guard raced a
		// concurrent writer outside the lock. Treat it as a conflict.
		return Reservation{}, &InsufficientStockError{
			ProductID:   productID,
			ProductName: name,
			Requested:   qty,
			Available:   available,
		}
	}

	return Reservation{ProductID: productID, Quantity: qty}, nil
}
