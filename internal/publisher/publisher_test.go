package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testOrder() *domain.Order {
	return &domain.Order{
		ID:          uuid.New(),
		TotalAmount: decimal.RequireFromString("4.5"),
		TotalItems:  2,
		Currency:    domain.DefaultCurrency,
		Status:      domain.OrderStatusConfirmed,
		CreatedAt:   time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
		Items: []domain.OrderItem{
			{ProductID: 7, ProductName: "Whole Milk", Quantity: 2,
				UnitPrice: decimal.RequireFromString("2.25"), Subtotal: decimal.RequireFromString("4.5")},
		},
	}
}

func TestPublishOrderPlaced(t *testing.T) {
	w := &mockWriter{}
	p := NewOrderPublisher(w)
	order := testOrder()

	require.NoError(t, p.PublishOrderPlaced(context.Background(), order))
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, order.ID.String(), string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, EventOrderPlaced, string(msg.Headers[0].Value))

	var event OrderPlacedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, order.ID.String(), event.OrderID)
	assert.Equal(t, "4.50", event.TotalAmount)
	assert.Equal(t, 2, event.TotalItems)
	assert.Equal(t, "USD", event.Currency)
	require.Len(t, event.Items, 1)
	assert.Equal(t, "Whole Milk", event.Items[0].ProductName)
}

func TestPublishOrderPlaced_WriterError(t *testing.T) {
	w := &mockWriter{err: errors.New("broker unavailable")}
	p := NewOrderPublisher(w)

	err := p.PublishOrderPlaced(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker unavailable")
}

func TestClose(t *testing.T) {
	w := &mockWriter{}
	require.NoError(t, NewOrderPublisher(w).Close())
	assert.True(t, w.closed)
}
