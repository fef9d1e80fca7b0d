package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/fjod/go_cart/storefront/internal/aggregator"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type mockCache struct {
	m       sync.RWMutex
	data    map[string]domain.Cart
	getErr  error
	deletes int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string]domain.Cart)}
}

func (m *mockCache) Get(_ context.Context, key string) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	c, ok := m.data[key]
	if !ok {
		return nil, cache.ErrCacheMiss
	}
	return &c, nil
}

func (m *mockCache) Set(_ context.Context, key string, c *domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.data[key] = *c
	return nil
}

func (m *mockCache) Delete(_ context.Context, key string) error {
	m.m.Lock()
	defer m.m.Unlock()
	m.deletes++
	delete(m.data, key)
	return nil
}

func (m *mockCache) has(key string) bool {
	m.m.RLock()
	defer m.m.RUnlock()
	_, ok := m.data[key]
	return ok
}

func (m *mockCache) deleteCount() int {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.deletes
}

func (m *mockCache) put(key string, c domain.Cart) {
	m.m.Lock()
	defer m.m.Unlock()
	m.data[key] = c
}

// countingView wraps the aggregator and counts Materialize calls. When gate
// is set each call takes its snapshot, signals entered and then waits for
// gate to close before returning it.
type countingView struct {
	*aggregator.Aggregator
	calls   atomic.Int32
	gate    chan struct{}
	entered chan struct{}
	err     error
}

func (v *countingView) Materialize(ctx context.Context) (domain.Cart, error) {
	v.calls.Add(1)
	var (
		c   domain.Cart
		err error
	)
	if v.err != nil {
		err = v.err
	} else {
		c, err = v.Aggregator.Materialize(ctx)
	}
	if v.gate != nil {
		select {
		case v.entered <- struct{}{}:
		default:
		}
		<-v.gate
	}
	return c, err
}

// failingCatalog fails every lookup.
type failingCatalog struct {
	catalog.Store
}

func (failingCatalog) GetByID(context.Context, int64) (domain.Product, bool, error) {
	return domain.Product{}, false, errors.New("catalog offline")
}

type fixture struct {
	products *catalog.MemoryStore
	carts    *cart.MemoryStore
	view     *countingView
	cache    *mockCache
	svc      *CartService
}

func discardLogger() *zap.Logger {
	return zap.NewNop()
}

func testProducts() []domain.Product {
	return []domain.Product{
		{ID: 1, Name: "Apple", Detail: "1kg", Price: decimal.NewFromFloat(5.0), Category: "Fruits"},
		{ID: 2, Name: "Banana", Detail: "500g", Price: decimal.NewFromFloat(3.0), Category: "Fruits"},
		{ID: 3, Name: "Carrot", Detail: "1kg", Price: decimal.NewFromFloat(1.0), Category: "Vegetables"},
		{ID: 4, Name: "Mixed Nuts", Detail: "1kg or 500g", Price: decimal.NewFromFloat(9.0), Category: "Fruits"},
	}
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	products := catalog.NewMemoryStore()
	carts := cart.NewMemoryStore()
	t.Cleanup(func() {
		products.Close()
		carts.Close()
	})
	require.NoError(t, products.UpsertMany(context.Background(), testProducts()))

	view := &countingView{Aggregator: aggregator.New(carts, products)}
	c := newMockCache()
	return &fixture{
		products: products,
		carts:    carts,
		view:     view,
		cache:    c,
		svc:      NewCartService(carts, products, view, c, discardLogger()),
	}
}
