package service

import "errors"

var (
	ErrInvalidQuantity    = errors.New("quantity must be greater than zero")
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrOrderNotModifiable = errors.New("order can no longer be modified")
	ErrIllegalTransition  = errors.New("illegal transition of order status")
)
