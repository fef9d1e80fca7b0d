package orders

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOrder(createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		TotalAmount: decimal.RequireFromString("7.47"),
		TotalItems:  3,
		Currency:    domain.DefaultCurrency,
		Status:      domain.OrderStatusConfirmed,
		CreatedAt:   createdAt,
		Items: []domain.OrderItem{
			{
				ProductID:   1,
				ProductName: "Organic Bananas",
				Portion:     "7pcs",
				Quantity:    3,
				UnitPrice:   decimal.RequireFromString("2.49"),
				Subtotal:    decimal.RequireFromString("7.47"),
			},
		},
	}
}

func TestMemoryRepository_CreateAndGet(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	order := newTestOrder(time.Now())

	require.NoError(t, repo.CreateOrder(ctx, order))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, got.ID)
	assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
	assert.Len(t, got.Items, 1)
}

func TestMemoryRepository_Duplicate(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	order := newTestOrder(time.Now())

	require.NoError(t, repo.CreateOrder(ctx, order))
	err := repo.CreateOrder(ctx, order)
	assert.ErrorIs(t, err, ErrDuplicateOrder)
}

func TestMemoryRepository_NotFound(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestMemoryRepository_ListNewestFirst(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	older := newTestOrder(base)
	newer := newTestOrder(base.Add(time.Hour))
	require.NoError(t, repo.CreateOrder(ctx, older))
	require.NoError(t, repo.CreateOrder(ctx, newer))

	orders, err := repo.ListOrders(ctx, 0)
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, newer.ID, orders[0].ID)
	assert.Equal(t, older.ID, orders[1].ID)

	limited, err := repo.ListOrders(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
