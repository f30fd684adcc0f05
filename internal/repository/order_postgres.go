package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

type pgOrderRepo struct {
	q querier
}

func (r *pgOrderRepo) Create(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (order_number, user_id, address_id, status, total_amount)
	          VALUES ($1, $2, $3, $4, $5) RETURNING id, created_at, updated_at`

	err := r.q.QueryRowContext(ctx, query,
		order.OrderNumber,
		order.UserID,
		order.AddressID,
		order.Status,
		order.TotalAmount,
	).Scan(&order.ID, &order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for i := range order.Lines {
		order.Lines[i].OrderID = order.ID
		if err := r.InsertLine(ctx, &order.Lines[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *pgOrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	query := `SELECT id, order_number, user_id, address_id, status, total_amount, created_at, updated_at
	          FROM orders WHERE id = $1`

	var order domain.Order
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&order.ID,
		&order.OrderNumber,
		&order.UserID,
		&order.AddressID,
		&order.Status,
		&order.TotalAmount,
		&order.CreatedAt,
		&order.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order by id: %w", err)
	}

	lines, err := r.ListLines(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines
	return &order, nil
}

func (r *pgOrderRepo) List(ctx context.Context) ([]*domain.Order, error) {
	return r.list(ctx,
		`SELECT id, order_number, user_id, address_id, status, total_amount, created_at, updated_at
		 FROM orders ORDER BY created_at DESC`)
}

func (r *pgOrderRepo) ListByUserID(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return r.list(ctx,
		`SELECT id, order_number, user_id, address_id, status, total_amount, created_at, updated_at
		 FROM orders WHERE user_id = $1 ORDER BY created_at DESC`, userID)
}

func (r *pgOrderRepo) list(ctx context.Context, query string, args ...any) ([]*domain.Order, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var order domain.Order
		if err := rows.Scan(
			&order.ID,
			&order.OrderNumber,
			&order.UserID,
			&order.AddressID,
			&order.Status,
			&order.TotalAmount,
			&order.CreatedAt,
			&order.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, &order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	for _, order := range orders {
		lines, err := r.ListLines(ctx, order.ID)
		if err != nil {
			return nil, err
		}
		order.Lines = lines
	}
	return orders, nil
}

func (r *pgOrderRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update order status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order status rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgOrderRepo) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE orders SET total_amount = $2, updated_at = NOW() WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("update order total: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order total rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgOrderRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

func (r *pgOrderRepo) GetLine(ctx context.Context, orderID, productID int64) (*domain.OrderLine, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, price_per_unit, total_price, added_at
	          FROM order_lines WHERE order_id = $1 AND product_id = $2`

	var line domain.OrderLine
	err := r.q.QueryRowContext(ctx, query, orderID, productID).Scan(
		&line.ID,
		&line.OrderID,
		&line.ProductID,
		&line.ProductName,
		&line.Quantity,
		&line.PricePerUnit.Decimal,
		&line.TotalPrice,
		&line.AddedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order line: %w", err)
	}
	return &line, nil
}

func (r *pgOrderRepo) ListLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	query := `SELECT id, order_id, product_id, product_name, quantity, price_per_unit, total_price, added_at
	          FROM order_lines WHERE order_id = $1 ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID,
			&line.OrderID,
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.PricePerUnit.Decimal,
			&line.TotalPrice,
			&line.AddedAt,
		); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func (r *pgOrderRepo) InsertLine(ctx context.Context, line *domain.OrderLine) error {
	query := `INSERT INTO order_lines (order_id, product_id, product_name, quantity, price_per_unit, total_price)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, added_at`

	err := r.q.QueryRowContext(ctx, query,
		line.OrderID,
		line.ProductID,
		line.ProductName,
		line.Quantity,
		line.PricePerUnit.Decimal,
		line.TotalPrice,
	).Scan(&line.ID, &line.AddedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateLine
		}
		return fmt.Errorf("insert order line: %w", err)
	}
	return nil
}

func (r *pgOrderRepo) UpdateLine(ctx context.Context, line *domain.OrderLine) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE order_lines SET quantity = $2, total_price = $3 WHERE id = $1`,
		line.ID, line.Quantity, line.TotalPrice)
	if err != nil {
		return fmt.Errorf("update order line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order line rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderLineNotFound
	}
	return nil
}

func (r *pgOrderRepo) DeleteLine(ctx context.Context, lineID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM order_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete order line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order line rows affected: %w", err)
	}
	if affected == 0 {
		return ErrOrderLineNotFound
	}
	return nil
}
