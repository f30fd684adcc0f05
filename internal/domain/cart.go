package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-user shopping cart. Lines are kept in insertion order and
// TotalPrice is re-derived after every line mutation, never computed lazily.
type Cart struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"user_id"`
	Lines      []CartLine      `json:"lines"`
	TotalPrice decimal.Decimal `json:"total_price"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// CartLine is one (cart, product) pairing. At most one line per product
// exists in a cart; re-adding the same product merges into the existing line.
type CartLine struct {
	ID           int64           `json:"id"`
	CartID       int64           `json:"cart_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit LivePrice       `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	AddedAt      time.Time       `json:"added_at"`
}

// RecomputeTotal re-derives the line total from the snapshotted unit price.
func (l *CartLine) RecomputeTotal() {
	l.TotalPrice = l.PricePerUnit.Times(l.Quantity)
}

// RecomputeTotal sums all current line totals into TotalPrice.
func (c *Cart) RecomputeTotal() {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].TotalPrice)
	}
	c.TotalPrice = total
}

// Line returns the line holding productID, or nil.
func (c *Cart) Line(productID int64) *CartLine {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return &c.Lines[i]
		}
	}
	return nil
}

// Units returns the total number of units across all lines.
func (c *Cart) Units() int {
	n := 0
	for i := range c.Lines {
		n += c.Lines[i].Quantity
	}
	return n
}
