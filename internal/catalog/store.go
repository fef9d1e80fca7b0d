// Package catalog holds the authoritative product list.
package catalog

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Store is the catalog contract shared by every backend. Lookups that find
// nothing report ok=false or an empty slice; errors are reserved for
// failures of the backing store.
type Store interface {
	GetByID(ctx context.Context, id int64) (domain.Product, bool, error)
	GetAll(ctx context.Context) ([]domain.Product, error)
	Categories(ctx context.Context) ([]string, error)
	GetByCategory(ctx context.Context, category string) ([]domain.Product, error)
	GetByCategoryAndPriceRange(ctx context.Context, category string, r domain.PriceRange) ([]domain.Product, error)
	GetByCategoryAndPortion(ctx context.Context, category, portion string) ([]domain.Product, error)
	GetByCategoryPriceAndPortion(ctx context.Context, category string, r domain.PriceRange, portion string) ([]domain.Product, error)
	Search(ctx context.Context, query string) ([]domain.Product, error)

	Upsert(ctx context.Context, p domain.Product) error
	UpsertMany(ctx context.Context, products []domain.Product) error
	Delete(ctx context.Context, id int64) error

	// Subscribe calls fn with the full product list now and after every
	// committed mutation.
	Subscribe(ctx context.Context, fn func([]domain.Product)) (func(), error)
}
