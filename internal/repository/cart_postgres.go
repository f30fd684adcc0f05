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

type pgCartRepo struct {
	q querier
}

func (r *pgCartRepo) GetByID(ctx context.Context, id int64) (*domain.Cart, error) {
	query := `SELECT id, user_id, total_price, created_at, updated_at FROM carts WHERE id = $1`

	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, query, id).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by id: %w", err)
	}

	if err := r.loadLines(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *pgCartRepo) GetByUserID(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `SELECT id, user_id, total_price, created_at, updated_at FROM carts WHERE user_id = $1`

	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query cart by user id: %w", err)
	}

	if err := r.loadLines(ctx, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (r *pgCartRepo) Create(ctx context.Context, userID int64) (*domain.Cart, error) {
	query := `INSERT INTO carts (user_id, total_price) VALUES ($1, 0)
	          RETURNING id, user_id, total_price, created_at, updated_at`

	var cart domain.Cart
	err := r.q.QueryRowContext(ctx, query, userID).Scan(
		&cart.ID,
		&cart.UserID,
		&cart.TotalPrice,
		&cart.CreatedAt,
		&cart.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert cart: %w", err)
	}
	return &cart, nil
}

func (r *pgCartRepo) List(ctx context.Context) ([]*domain.Cart, error) {
	query := `SELECT id, user_id, total_price, created_at, updated_at FROM carts ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query carts: %w", err)
	}
	defer rows.Close()

	var carts []*domain.Cart
	for rows.Next() {
		var cart domain.Cart
		if err := rows.Scan(&cart.ID, &cart.UserID, &cart.TotalPrice, &cart.CreatedAt, &cart.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan cart: %w", err)
		}
		carts = append(carts, &cart)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate carts: %w", err)
	}

	for _, cart := range carts {
		if err := r.loadLines(ctx, cart); err != nil {
			return nil, err
		}
	}
	return carts, nil
}

func (r *pgCartRepo) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM carts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *pgCartRepo) UpdateTotal(ctx context.Context, id int64, total decimal.Decimal) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE carts SET total_price = $2, updated_at = NOW() WHERE id = $1`, id, total)
	if err != nil {
		return fmt.Errorf("update cart total: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart total rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartNotFound
	}
	return nil
}

func (r *pgCartRepo) GetLine(ctx context.Context, cartID, productID int64) (*domain.CartLine, error) {
	query := `SELECT id, cart_id, product_id, product_name, quantity, price_per_unit, total_price, added_at
	          FROM cart_lines WHERE cart_id = $1 AND product_id = $2`
	return r.scanLine(r.q.QueryRowContext(ctx, query, cartID, productID))
}

func (r *pgCartRepo) GetLineByID(ctx context.Context, lineID int64) (*domain.CartLine, error) {
	query := `SELECT id, cart_id, product_id, product_name, quantity, price_per_unit, total_price, added_at
	          FROM cart_lines WHERE id = $1`
	return r.scanLine(r.q.QueryRowContext(ctx, query, lineID))
}

func (r *pgCartRepo) InsertLine(ctx context.Context, line *domain.CartLine) error {
	query := `INSERT INTO cart_lines (cart_id, product_id, product_name, quantity, price_per_unit, total_price)
	          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, added_at`

	err := r.q.QueryRowContext(ctx, query,
		line.CartID,
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
		return fmt.Errorf("insert cart line: %w", err)
	}
	return nil
}

func (r *pgCartRepo) UpdateLine(ctx context.Context, line *domain.CartLine) error {
	res, err := r.q.ExecContext(ctx,
		`UPDATE cart_lines SET quantity = $2, price_per_unit = $3, total_price = $4 WHERE id = $1`,
		line.ID, line.Quantity, line.PricePerUnit.Decimal, line.TotalPrice)
	if err != nil {
		return fmt.Errorf("update cart line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update cart line rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *pgCartRepo) DeleteLine(ctx context.Context, lineID int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE id = $1`, lineID)
	if err != nil {
		return fmt.Errorf("delete cart line: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete cart line rows affected: %w", err)
	}
	if affected == 0 {
		return ErrCartLineNotFound
	}
	return nil
}

func (r *pgCartRepo) DeleteLines(ctx context.Context, cartID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx, `DELETE FROM cart_lines WHERE cart_id = $1`, cartID)
	if err != nil {
		return 0, fmt.Errorf("delete cart lines: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete cart lines rows affected: %w", err)
	}
	return affected, nil
}

func (r *pgCartRepo) loadLines(ctx context.Context, cart *domain.Cart) error {
	query := `SELECT id, cart_id, product_id, product_name, quantity, price_per_unit, total_price, added_at
	          FROM cart_lines WHERE cart_id = $1 ORDER BY id`

	rows, err := r.q.QueryContext(ctx, query, cart.ID)
	if err != nil {
		return fmt.Errorf("query cart lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.CartLine
		if err := rows.Scan(
			&line.ID,
			&line.CartID,
			&line.ProductID,
			&line.ProductName,
			&line.Quantity,
			&line.PricePerUnit.Decimal,
			&line.TotalPrice,
			&line.AddedAt,
		); err != nil {
			return fmt.Errorf("scan cart line: %w", err)
		}
		cart.Lines = append(cart.Lines, line)
	}
	return rows.Err()
}

func (r *pgCartRepo) scanLine(row *sql.Row) (*domain.CartLine, error) {
	var line domain.CartLine
	err := row.Scan(
		&line.ID,
		&line.CartID,
		&line.ProductID,
		&line.ProductName,
		&line.Quantity,
		&line.PricePerUnit.Decimal,
		&line.TotalPrice,
		&line.AddedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCartLineNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan cart line: %w", err)
	}
	return &line, nil
}
