// Package service implements the storefront use cases on top of the stores.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const cartCacheKey = "current"

// CartMaterializer produces the joined cart view.
type CartMaterializer interface {
	Materialize(ctx context.Context) (domain.Cart, error)
	Watch(ctx context.Context, fn func(domain.Cart)) (func(), error)
}

type CartSummary struct {
	Lines         int `json:"lines"`
	TotalQuantity int `json:"total_quantity"`
}

type CartService struct {
	carts    cart.Store
	products catalog.Store
	view     CartMaterializer
	cache    cache.CartCache
	logger   *zap.Logger

	sfg singleflight.Group // collapses concurrent cache misses of one generation
	gen atomic.Uint64      // bumped on every invalidation

	// fillMu orders cache writes against invalidations so a fill from an
	// older generation never lands after the invalidation that retired it.
	fillMu sync.Mutex

	mu        sync.Mutex
	stopWatch func()
}

func NewCartService(carts cart.Store, products catalog.Store, view CartMaterializer, c cache.CartCache, logger *zap.Logger) *CartService {
	if c == nil {
		c = cache.Nop{}
	}
	return &CartService{
		carts:    carts,
		products: products,
		view:     view,
		cache:    c,
		logger:   logger,
	}
}

// Start drops the cached cart whenever either store changes. Writes made
// through TrackCatalog are already invalidated synchronously; the watch
// covers writers that bypass it.
func (s *CartService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		return nil
	}
	stop, err := s.view.Watch(ctx, func(domain.Cart) {
		s.invalidateCache()
	})
	if err != nil {
		return fmt.Errorf("failed to watch cart: %w", err)
	}
	s.stopWatch = stop
	return nil
}

func (s *CartService) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopWatch != nil {
		s.stopWatch()
		s.stopWatch = nil
	}
}

// GetCart returns the materialized cart. Concurrent calls of the same
// generation share one read; a call made after a mutation returned never
// joins a read that started before it.
func (s *CartService) GetCart(ctx context.Context) (domain.Cart, error) {
	gen := s.gen.Load()
	v, err, _ := s.sfg.Do(cartCacheKey+":"+strconv.FormatUint(gen, 10), func() (interface{}, error) {
		cached, err := s.cache.Get(ctx, cartCacheKey)
		if err == nil {
			return *cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			logger.WithTrace(ctx, s.logger).Warn("cache get error", zap.Error(err)) // log cache error but continue
		}

		c, err := s.view.Materialize(ctx)
		if err != nil {
			return nil, err
		}

		go s.fillCache(gen, c)
		return c, nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return v.(domain.Cart), nil
}

// GetItem returns the materialized line for productID.
func (s *CartService) GetItem(ctx context.Context, productID int64) (domain.LineItem, bool, error) {
	c, err := s.GetCart(ctx)
	if err != nil {
		return domain.LineItem{}, false, err
	}
	for _, it := range c.Items {
		if it.Product.ID == productID {
			return it, true, nil
		}
	}
	return domain.LineItem{}, false, nil
}

// AddToCart merges quantity into the product's line. An empty portion
// falls back to the product's own detail.
func (s *CartService) AddToCart(ctx context.Context, productID int64, quantity int, portion string) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}

	p, ok, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to look up product %d: %w", productID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %d", ErrProductNotFound, productID)
	}
	if portion == "" {
		portion = p.Detail
	}

	if err := s.carts.Add(ctx, productID, quantity, portion); err != nil {
		logger.WithTrace(ctx, s.logger).Error("cart add error", zap.Int64("product_id", productID), zap.Error(err))
		return err
	}

	s.invalidateCache()
	return nil
}

// UpdateQuantity sets the line quantity; a quantity of zero or less
// removes the line.
func (s *CartService) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	var err error
	if quantity <= 0 {
		err = s.carts.Remove(ctx, productID)
	} else {
		err = s.carts.SetQuantity(ctx, productID, quantity)
	}
	if err != nil {
		logger.WithTrace(ctx, s.logger).Error("cart update quantity error", zap.Int64("product_id", productID), zap.Error(err))
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *CartService) RemoveItem(ctx context.Context, productID int64) error {
	if err := s.carts.Remove(ctx, productID); err != nil {
		logger.WithTrace(ctx, s.logger).Error("cart remove item error", zap.Int64("product_id", productID), zap.Error(err))
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *CartService) ClearCart(ctx context.Context) error {
	if err := s.carts.Clear(ctx); err != nil {
		logger.WithTrace(ctx, s.logger).Error("cart clear error", zap.Error(err))
		return err
	}

	s.invalidateCache()
	return nil
}

func (s *CartService) IsInCart(ctx context.Context, productID int64) (bool, error) {
	_, ok, err := s.carts.GetByProductID(ctx, productID)
	return ok, err
}

// Summary reports raw store counts. Lines whose product has left the
// catalog are still counted here.
func (s *CartService) Summary(ctx context.Context) (CartSummary, error) {
	lines, err := s.carts.Count(ctx)
	if err != nil {
		return CartSummary{}, err
	}
	qty, err := s.carts.TotalQuantity(ctx)
	if err != nil {
		return CartSummary{}, err
	}
	return CartSummary{Lines: lines, TotalQuantity: qty}, nil
}

// fillCache stores c unless an invalidation happened after it was read.
func (s *CartService) fillCache(gen uint64, c domain.Cart) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	if s.gen.Load() != gen {
		return
	}
	if err := s.cache.Set(ctx, cartCacheKey, &c); err != nil {
		s.logger.Warn("cache set error", zap.Error(err))
	}
}

func (s *CartService) invalidateCache() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	s.fillMu.Lock()
	defer s.fillMu.Unlock()
	s.gen.Add(1)
	s.deleteCached(ctx)
}

// TrackCatalog wraps products so every successful write invalidates the
// cached cart before it returns. Catalog writers in the process (the feed
// consumer, CatalogService) go through the wrapper.
func (s *CartService) TrackCatalog(products catalog.Store) catalog.Store {
	return &trackedCatalog{Store: products, carts: s}
}

type trackedCatalog struct {
	catalog.Store
	carts *CartService
}

func (c *trackedCatalog) Upsert(ctx context.Context, p domain.Product) error {
	if err := c.Store.Upsert(ctx, p); err != nil {
		return err
	}
	c.carts.invalidateCache()
	return nil
}

func (c *trackedCatalog) UpsertMany(ctx context.Context, products []domain.Product) error {
	if err := c.Store.UpsertMany(ctx, products); err != nil {
		return err
	}
	c.carts.invalidateCache()
	return nil
}

func (c *trackedCatalog) Delete(ctx context.Context, id int64) error {
	if err := c.Store.Delete(ctx, id); err != nil {
		return err
	}
	c.carts.invalidateCache()
	return nil
}

func (s *CartService) deleteCached(ctx context.Context) {
	if err := s.cache.Delete(ctx, cartCacheKey); err != nil {
		s.logger.Warn("cache invalidate error", zap.Error(err))
	}
}
