package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore keeps one document per cart line, keyed by product id.
type MongoStore struct {
	collection *mongo.Collection
	now        Clock

	writeMu sync.Mutex
	changes *notify.Broadcaster[[]domain.CartLine]
}

func NewMongoStore(db *mongo.Database, now Clock) *MongoStore {
	if now == nil {
		now = time.Now
	}
	return &MongoStore{
		collection: db.Collection("cart_lines"),
		now:        now,
		changes:    notify.NewBroadcaster[[]domain.CartLine](),
	}
}

func (m *MongoStore) CreateIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "added_at", Value: -1}, {Key: "_id", Value: 1}}},
	}

	if _, err := m.collection.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}
	return nil
}

func (m *MongoStore) GetAll(ctx context.Context) ([]domain.CartLine, error) {
	opts := options.Find().SetSort(bson.D{{Key: "added_at", Value: -1}, {Key: "_id", Value: 1}})

	cursor, err := m.collection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find cart lines: %w", err)
	}

	lines := make([]domain.CartLine, 0)
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("failed to decode cart lines: %w", err)
	}
	return lines, nil
}

func (m *MongoStore) GetByProductID(ctx context.Context, productID int64) (domain.CartLine, bool, error) {
	var line domain.CartLine
	err := m.collection.FindOne(ctx, bson.M{"_id": productID}).Decode(&line)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return domain.CartLine{}, false, nil
		}
		return domain.CartLine{}, false, fmt.Errorf("failed to get cart line: %w", err)
	}
	return line, true, nil
}

// Add merges with a single upsert: $inc creates the quantity on insert and
// sums it on update.
func (m *MongoStore) Add(ctx context.Context, productID int64, quantity int, portion string) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	update := bson.M{
		"$inc": bson.M{"quantity": quantity},
		"$set": bson.M{
			"portion":  portion,
			"added_at": m.now(),
		},
	}
	opts := options.Update().SetUpsert(true)

	return m.mutate(ctx, func() error {
		if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": productID}, update, opts); err != nil {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		return nil
	})
}

func (m *MongoStore) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	if err := validateQuantity(quantity); err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"quantity": quantity}}
	return m.mutate(ctx, func() error {
		if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": productID}, update); err != nil {
			return fmt.Errorf("failed to update cart line quantity: %w", err)
		}
		return nil
	})
}

func (m *MongoStore) Remove(ctx context.Context, productID int64) error {
	return m.mutate(ctx, func() error {
		if _, err := m.collection.DeleteOne(ctx, bson.M{"_id": productID}); err != nil {
			return fmt.Errorf("failed to remove cart line: %w", err)
		}
		return nil
	})
}

func (m *MongoStore) Clear(ctx context.Context) error {
	return m.mutate(ctx, func() error {
		if _, err := m.collection.DeleteMany(ctx, bson.M{}); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		return nil
	})
}

func (m *MongoStore) Count(ctx context.Context) (int, error) {
	n, err := m.collection.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count cart lines: %w", err)
	}
	return int(n), nil
}

func (m *MongoStore) TotalQuantity(ctx context.Context) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$quantity"}}},
		}}},
	}

	cursor, err := m.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to sum cart quantities: %w", err)
	}

	var result []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return 0, fmt.Errorf("failed to decode cart quantity sum: %w", err)
	}
	if len(result) == 0 {
		return 0, nil
	}
	return result[0].Total, nil
}

func (m *MongoStore) Subscribe(ctx context.Context, fn func([]domain.CartLine)) (func(), error) {
	if !m.changes.Primed() {
		if err := m.mutate(ctx, func() error { return nil }); err != nil {
			return nil, err
		}
	}
	return m.changes.Subscribe(fn), nil
}

func (m *MongoStore) Close() error {
	m.changes.Close()
	return nil
}

func (m *MongoStore) mutate(ctx context.Context, op func() error) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := op(); err != nil {
		return err
	}

	lines, err := m.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load cart snapshot: %w", err)
	}
	m.changes.Publish(lines)
	return nil
}
