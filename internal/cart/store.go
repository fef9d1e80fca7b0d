// Package cart stores one line per product currently in the cart.
package cart

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

var ErrInvalidQuantity = errors.New("quantity must be at least 1")

// Store is the cart contract shared by every backend. Operations on absent
// product ids are no-ops, not errors.
type Store interface {
	// GetAll returns lines most recently added first.
	GetAll(ctx context.Context) ([]domain.CartLine, error)
	GetByProductID(ctx context.Context, productID int64) (domain.CartLine, bool, error)
	// Add merges into an existing line: quantities are summed, the new
	// portion replaces the stored one and the line moves to the front.
	Add(ctx context.Context, productID int64, quantity int, portion string) error
	// SetQuantity updates an existing line in place.
	SetQuantity(ctx context.Context, productID int64, quantity int) error
	Remove(ctx context.Context, productID int64) error
	Clear(ctx context.Context) error
	Count(ctx context.Context) (int, error)
	TotalQuantity(ctx context.Context) (int, error)

	// Subscribe calls fn with all lines now and after every committed mutation.
	Subscribe(ctx context.Context, fn func([]domain.CartLine)) (func(), error)
}

// Clock supplies addedAt timestamps.
type Clock func() time.Time

// SortLines orders lines by addedAt descending, breaking ties by product id.
func SortLines(lines []domain.CartLine) {
	sort.SliceStable(lines, func(i, j int) bool {
		if !lines[i].AddedAt.Equal(lines[j].AddedAt) {
			return lines[i].AddedAt.After(lines[j].AddedAt)
		}
		return lines[i].ProductID < lines[j].ProductID
	})
}

func validateQuantity(quantity int) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	return nil
}
