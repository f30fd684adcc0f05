package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/theAriful7/E-CommerceBackend/internal/domain"
)

type pgCatalogRepo struct {
	q querier
}

func (r *pgCatalogRepo) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT id, name, price, stock FROM products WHERE id = $1`

	var p domain.Product
	err := r.q.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Price, &p.Stock)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query product: %w", err)
	}
	return &p, nil
}

func (r *pgCatalogRepo) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT id, full_name FROM users WHERE id = $1`

	var u domain.User
	err := r.q.QueryRowContext(ctx, query, id).Scan(&u.ID, &u.FullName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query user: %w", err)
	}
	return &u, nil
}

func (r *pgCatalogRepo) AddressExists(ctx context.Context, id int64) error {
	var exists bool
	err := r.q.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM addresses WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check address exists: %w", err)
	}
	if !exists {
		return ErrAddressNotFound
	}
	return nil
}
