package poller

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"gotest.tools/v3/assert"
)

func setupKafka(t *testing.T) (string, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	kafkaContainer, err := kafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err)

	brokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers, "broker address should not be empty")

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate kafka container: %v", err)
		}
	}

	return brokers[0], cleanup
}

func createTopic(t *testing.T, brokerAddr, topic string) {
	conn, err := kafkaGo.Dial("tcp", brokerAddr)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)

	controllerConn, err := kafkaGo.Dial("tcp", fmt.Sprintf("%s:%d", controller.Host, controller.Port))
	require.NoError(t, err)
	defer controllerConn.Close()

	err = controllerConn.CreateTopics(kafkaGo.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		t.Logf("topic creation error (may already exist): %v", err)
	}
}

func TestPoller_KafkaFeed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	broker, cleanupKafka := setupKafka(t)
	defer cleanupKafka()
	const topic = "catalog-feed"
	createTopic(t, broker, topic)

	store := catalog.NewMemoryStore()
	defer store.Close()

	feed := publisher.NewKafkaWriter(topic, broker)
	err := feed.WriteMessages(ctx,
		kafkaGo.Message{Value: []byte(`not json`)},
		kafkaGo.Message{Value: []byte(`[
			{"id": 42, "name": "Greek Yogurt", "detail": "500g", "price": "3.99", "category": "Dairy & Eggs"},
			{"id": 43, "name": "Sourdough", "detail": "1 loaf", "price": "4.50", "category": "Bakery & Snacks"}
		]`)},
		kafkaGo.Message{Value: []byte(`{"id": 42, "name": "Greek Yogurt", "detail": "1kg", "price": "6.49", "category": "Dairy & Eggs"}`)},
	)
	require.NoError(t, err)
	require.NoError(t, feed.Close())

	p := NewPoller(store, NewKafkaReader(topic, "storefront-test", broker), discardLogger())
	defer p.Close()
	go p.Run(ctx)

	require.Eventually(t, func() bool {
		got, ok, _ := store.GetByID(ctx, 42)
		return ok && got.Detail == "1kg"
	}, 30*time.Second, 500*time.Millisecond)

	all, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, len(all))
	assert.Equal(t, "6.49", all[0].Price.StringFixed(2))
	assert.Equal(t, "Sourdough", all[1].Name)
}
