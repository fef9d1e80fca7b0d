package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type mockPublisher struct {
	m      sync.Mutex
	orders []*domain.Order
	err    error
}

func (p *mockPublisher) PublishOrderPlaced(_ context.Context, o *domain.Order) error {
	p.m.Lock()
	defer p.m.Unlock()
	if p.err != nil {
		return p.err
	}
	p.orders = append(p.orders, o)
	return nil
}

type failingRepo struct {
	orders.Repository
}

func (failingRepo) CreateOrder(context.Context, *domain.Order) error {
	return errors.New("db unavailable")
}

func newCheckout(t *testing.T) (*CheckoutService, *fixture, *orders.MemoryRepository, *mockPublisher) {
	f := newFixture(t)
	repo := orders.NewMemoryRepository()
	pub := &mockPublisher{}
	s := NewCheckoutService(f.view, f.svc, repo, pub, discardLogger())
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC) }
	return s, f, repo, pub
}

func TestCheckout_EmptyCart(t *testing.T) {
	s, _, _, pub := newCheckout(t)

	_, err := s.Checkout(context.Background())
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Empty(t, pub.orders)
}

func TestCheckout_PlacesOrder(t *testing.T) {
	s, f, repo, pub := newCheckout(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 1, 2, "Medium"))
	require.NoError(t, f.svc.AddToCart(ctx, 2, 1, ""))

	order, err := s.Checkout(ctx)
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, order.ID)
	assert.True(t, decimal.NewFromFloat(13.0).Equal(order.TotalAmount))
	assert.Equal(t, 3, order.TotalItems)
	assert.Equal(t, domain.DefaultCurrency, order.Currency)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), order.CreatedAt)
	require.Len(t, order.Items, 2)

	stored, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, stored.ID)

	n, err := f.carts.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.Len(t, pub.orders, 1)
	assert.Equal(t, order.ID, pub.orders[0].ID)

	got, err := s.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)

	list, err := s.ListOrders(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestCheckout_IgnoresCachedCart(t *testing.T) {
	s, f, _, _ := newCheckout(t)
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 1, 1, ""))
	f.cache.put(cartCacheKey, domain.Cart{Items: []domain.LineItem{}})

	order, err := s.Checkout(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, order.TotalItems)
}

func TestCheckout_PublishFailureKeepsOrder(t *testing.T) {
	s, f, repo, pub := newCheckout(t)
	pub.err = errors.New("kafka down")
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 3, 4, ""))

	order, err := s.Checkout(ctx)
	require.NoError(t, err)

	_, err = repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
}

func TestCheckout_PublishFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	core, logs := observer.New(zapcore.ErrorLevel)
	pub := &mockPublisher{err: errors.New("kafka down")}
	s := NewCheckoutService(f.view, f.svc, orders.NewMemoryRepository(), pub, zap.New(core))
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 1, 1, ""))

	order, err := s.Checkout(ctx)
	require.NoError(t, err)

	entries := logs.FilterMessage("failed to publish order event").All()
	require.Len(t, entries, 1)
	assert.Equal(t, order.ID.String(), entries[0].ContextMap()["order_id"])
	assert.Equal(t, "kafka down", entries[0].ContextMap()["error"])
}

func TestCheckout_RepositoryFailureKeepsCart(t *testing.T) {
	f := newFixture(t)
	pub := &mockPublisher{}
	s := NewCheckoutService(f.view, f.svc, failingRepo{}, pub, discardLogger())
	ctx := context.Background()
	require.NoError(t, f.svc.AddToCart(ctx, 1, 1, ""))

	_, err := s.Checkout(ctx)
	require.Error(t, err)

	n, err := f.carts.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Empty(t, pub.orders)
}

func TestGetOrder_NotFound(t *testing.T) {
	s, _, _, _ := newCheckout(t)

	_, err := s.GetOrder(context.Background(), uuid.New())
	assert.ErrorIs(t, err, orders.ErrOrderNotFound)
}
