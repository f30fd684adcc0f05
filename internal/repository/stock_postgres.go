package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type pgStockLedger struct {
	q querier
}

// Reserve debits stock with a single conditional update. The guarded WHERE
// clause is the compare-and-swap: the row lock taken by UPDATE serializes
// concurrent reservations, so both can never pass a stale read of stock.
func (l *pgStockLedger) Reserve(ctx context.Context, productID int64, qty int) (int, error) {
	query := `UPDATE products SET stock = stock - $2 WHERE id = $1 AND stock >= $2 RETURNING stock`

	var remaining int
	err := l.q.QueryRowContext(ctx, query, productID, qty).Scan(&remaining)
	if errors.Is(err, sql.ErrNoRows) {
		// Either the product is missing or the guard rejected the debit.
		var exists bool
		e2 := l.q.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, productID).Scan(&exists)
		if e2 != nil {
			return 0, fmt.Errorf("check product exists: %w", e2)
		}
		if !exists {
			return 0, ErrProductNotFound
		}
		return 0, ErrInsufficientStock
	}
	if err != nil {
		return 0, fmt.Errorf("reserve stock: %w", err)
	}
	return remaining, nil
}

func (l *pgStockLedger) Release(ctx context.Context, productID int64, qty int) error {
	res, err := l.q.ExecContext(ctx,
		`UPDATE products SET stock = stock + $2 WHERE id = $1`, productID, qty)
	if err != nil {
		return fmt.Errorf("release stock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("release stock rows affected: %w", err)
	}
	if affected == 0 {
		return ErrProductNotFound
	}
	return nil
}
