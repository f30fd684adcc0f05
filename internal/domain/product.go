package domain

import "github.com/shopspring/decimal"

// Product is catalog data referenced by carts and orders. This core never
// creates or deletes products; it only reads them and moves their stock
// through the ledger.
type Product struct {
	ID    int64
	Name  string
	Price decimal.Decimal
	Stock int
}

// User is the already-resolved caller identity. Only existence and the
// display name are consumed here.
type User struct {
	ID       int64
	FullName string
}
