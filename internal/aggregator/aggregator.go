// Package aggregator joins cart lines with catalog products.
package aggregator

import (
	"context"
	"fmt"
	"sync"

	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

// Aggregator owns no state; every call re-derives the cart from the stores.
type Aggregator struct {
	carts    cart.Store
	products catalog.Store
}

func New(carts cart.Store, products catalog.Store) *Aggregator {
	return &Aggregator{carts: carts, products: products}
}

// Materialize reads cart lines in store order and joins each with its
// product. Lines for products missing from the catalog are dropped.
func (a *Aggregator) Materialize(ctx context.Context) (domain.Cart, error) {
	lines, err := a.carts.GetAll(ctx)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("failed to read cart lines: %w", err)
	}

	var lookupErr error
	c := domain.Join(lines, func(id int64) (domain.Product, bool) {
		if lookupErr != nil {
			return domain.Product{}, false
		}
		p, ok, err := a.products.GetByID(ctx, id)
		if err != nil {
			lookupErr = err
			return domain.Product{}, false
		}
		return p, ok
	})
	if lookupErr != nil {
		return domain.Cart{}, fmt.Errorf("failed to resolve cart products: %w", lookupErr)
	}
	return c, nil
}

// Watch calls fn with a freshly joined cart whenever either store publishes
// a snapshot, starting once both have delivered their current state. Calls
// to fn are serialized. The returned function stops watching.
func (a *Aggregator) Watch(ctx context.Context, fn func(domain.Cart)) (func(), error) {
	w := &watcher{fn: fn}

	stopProducts, err := a.products.Subscribe(ctx, w.onProducts)
	if err != nil {
		return nil, fmt.Errorf("failed to watch catalog: %w", err)
	}
	stopLines, err := a.carts.Subscribe(ctx, w.onLines)
	if err != nil {
		stopProducts()
		return nil, fmt.Errorf("failed to watch cart: %w", err)
	}

	return func() {
		stopLines()
		stopProducts()
	}, nil
}

type watcher struct {
	mu       sync.Mutex
	lines    []domain.CartLine
	lookup   domain.ProductLookup
	hasLines bool
	fn       func(domain.Cart)
}

func (w *watcher) onProducts(products []domain.Product) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lookup = domain.LookupFrom(products)
	w.emitLocked()
}

func (w *watcher) onLines(lines []domain.CartLine) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.lines = lines
	w.hasLines = true
	w.emitLocked()
}

func (w *watcher) emitLocked() {
	if w.lookup == nil || !w.hasLines {
		return
	}
	w.fn(domain.Join(w.lines, w.lookup))
}
