package service

import (
	"errors"

	"github.com/fjod/go_cart/storefront/internal/cart"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEmptyCart       = errors.New("cart is empty")

	// ErrInvalidQuantity is the cart store sentinel, re-exported so callers
	// need only this package.
	ErrInvalidQuantity = cart.ErrInvalidQuantity
)
