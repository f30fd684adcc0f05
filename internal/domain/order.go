package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusShipped   OrderStatus = "SHIPPED"
	OrderStatusDelivered OrderStatus = "DELIVERED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Valid reports whether s is a known status value.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// Modifiable reports whether order lines may still be mutated.
func (s OrderStatus) Modifiable() bool {
	return s == OrderStatusPending
}

// CanTransitionTo encodes the status machine: PENDING -> SHIPPED,
// SHIPPED -> DELIVERED, and any non-cancelled state -> CANCELLED.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if !next.Valid() || next == s {
		return false
	}
	if next == OrderStatusCancelled {
		return s != OrderStatusCancelled
	}
	switch s {
	case OrderStatusPending:
		return next == OrderStatusShipped
	case OrderStatusShipped:
		return next == OrderStatusDelivered
	}
	return false
}

// Order is created at checkout (or from an explicit item list). Identity
// fields are immutable once created; only Status and the re-derived
// TotalAmount change afterwards.
type Order struct {
	ID          int64           `json:"id"`
	OrderNumber string          `json:"order_number"`
	UserID      int64           `json:"user_id"`
	AddressID   int64           `json:"address_id"`
	Status      OrderStatus     `json:"status"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       []OrderLine     `json:"lines"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// OrderLine is one (order, product) pairing with a frozen unit price.
// Every quantity change on an order line moves stock through the ledger.
type OrderLine struct {
	ID           int64           `json:"id"`
	OrderID      int64           `json:"order_id"`
	ProductID    int64           `json:"product_id"`
	ProductName  string          `json:"product_name"`
	Quantity     int             `json:"quantity"`
	PricePerUnit FrozenPrice     `json:"price_per_unit"`
	TotalPrice   decimal.Decimal `json:"total_price"`
	AddedAt      time.Time       `json:"added_at"`
}

func (l *OrderLine) RecomputeTotal() {
	l.TotalPrice = l.PricePerUnit.Times(l.Quantity)
}

// RecomputeTotal sums all current line totals into TotalAmount.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for i := range o.Lines {
		total = total.Add(o.Lines[i].TotalPrice)
	}
	o.TotalAmount = total
}

// Line returns the line holding productID, or nil.
func (o *Order) Line(productID int64) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ProductID == productID {
			return &o.Lines[i]
		}
	}
	return nil
}
