package domain

import "github.com/shopspring/decimal"

// LivePrice is the unit price snapshotted when a product enters a cart.
// It is only a display hint: callers may refresh it from the catalog,
// and checkout re-reads the current price instead of trusting it.
type LivePrice struct {
	decimal.Decimal
}

// FrozenPrice is the unit price captured when a line enters an order.
// Once written it never changes, even if the catalog price moves.
type FrozenPrice struct {
	decimal.Decimal
}

func NewLivePrice(d decimal.Decimal) LivePrice {
	return LivePrice{d}
}

func NewFrozenPrice(d decimal.Decimal) FrozenPrice {
	return FrozenPrice{d}
}

// Times returns the price multiplied by a whole quantity.
func (p LivePrice) Times(qty int) decimal.Decimal {
	return p.Decimal.Mul(decimal.NewFromInt(int64(qty)))
}

func (p FrozenPrice) Times(qty int) decimal.Decimal {
	return p.Decimal.Mul(decimal.NewFromInt(int64(qty)))
}
