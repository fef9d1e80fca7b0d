// Package poller applies catalog updates consumed from a Kafka topic.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// MessageReader is the subset of *kafka.Reader used by the poller.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Poller struct {
	products catalog.Store
	reader   MessageReader
	logger   *zap.Logger
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6, // 10MB
	})
}

func NewPoller(products catalog.Store, reader MessageReader, logger *zap.Logger) *Poller {
	return &Poller{products: products, reader: reader, logger: logger}
}

// Run consumes until ctx is cancelled or the reader is closed.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			// io.EOF means the reader was closed.
			if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
				return
			}
			p.logger.Error("error reading catalog message", zap.Error(err))
			continue
		}
		if err := p.apply(ctx, m); err != nil {
			p.logger.Warn("skipping catalog message",
				zap.Int("partition", m.Partition), zap.Int64("offset", m.Offset), zap.Error(err))
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Error("error closing catalog reader", zap.Error(err))
	}
}

func (p *Poller) apply(ctx context.Context, m kafka.Message) error {
	products, err := DecodeProducts(m.Value)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}
	if err := p.products.UpsertMany(ctx, products); err != nil {
		return fmt.Errorf("upsert %d products: %w", len(products), err)
	}
	p.logger.Info("catalog updated from feed", zap.Int("products", len(products)), zap.Int64("offset", m.Offset))
	return nil
}

// DecodeProducts accepts a single JSON product or an array of products.
func DecodeProducts(value []byte) ([]domain.Product, error) {
	trimmed := bytes.TrimSpace(value)
	if len(trimmed) == 0 {
		return nil, errors.New("empty message")
	}

	if trimmed[0] == '[' {
		var products []domain.Product
		if err := json.Unmarshal(trimmed, &products); err != nil {
			return nil, fmt.Errorf("decode product list: %w", err)
		}
		return products, nil
	}

	var product domain.Product
	if err := json.Unmarshal(trimmed, &product); err != nil {
		return nil, fmt.Errorf("decode product: %w", err)
	}
	return []domain.Product{product}, nil
}
