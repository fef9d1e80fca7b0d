// Package publisher emits order events to Kafka.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const EventOrderPlaced = "order.placed"

// MessageWriter is the subset of *kafka.Writer used here.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OrderPlacedEvent struct {
	OrderID     string             `json:"order_id"`
	Items       []domain.OrderItem `json:"items"`
	TotalAmount string             `json:"total_amount"`
	TotalItems  int                `json:"total_items"`
	Currency    string             `json:"currency"`
	PlacedAt    time.Time          `json:"placed_at"`
}

type OrderPublisher struct {
	writer  MessageWriter
	timeout time.Duration
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

func NewOrderPublisher(w MessageWriter) *OrderPublisher {
	return &OrderPublisher{writer: w, timeout: 5 * time.Second}
}

func (p *OrderPublisher) PublishOrderPlaced(ctx context.Context, order *domain.Order) error {
	payload, err := json.Marshal(OrderPlacedEvent{
		OrderID:     order.ID.String(),
		Items:       order.Items,
		TotalAmount: order.TotalAmount.StringFixed(2),
		TotalItems:  order.TotalItems,
		Currency:    order.Currency,
		PlacedAt:    order.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.ID.String()), // order id keeps events for one order on a partition
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventOrderPlaced)},
		},
	}

	writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	if err := p.writer.WriteMessages(writeCtx, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", order.ID, err)
	}
	return nil
}

func (p *OrderPublisher) Close() error {
	return p.writer.Close()
}

// Nop discards events. Used when no brokers are configured.
type Nop struct{}

func (Nop) PublishOrderPlaced(context.Context, *domain.Order) error { return nil }
