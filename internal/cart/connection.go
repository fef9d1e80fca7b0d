package cart

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoOptions selects the cart database. A zero MaxPoolSize uses 20.
type MongoOptions struct {
	URI         string
	Database    string
	MaxPoolSize uint64
}

// OpenMongoStore connects, verifies the server is reachable and prepares the
// cart_lines indexes. The returned disconnect func releases the client and
// must be called after the store is closed.
func OpenMongoStore(ctx context.Context, o MongoOptions, now Clock) (*MongoStore, func(context.Context) error, error) {
	if o.MaxPoolSize == 0 {
		o.MaxPoolSize = 20
	}
	client, err := mongo.Connect(ctx, options.Client().
		ApplyURI(o.URI).
		SetConnectTimeout(10*time.Second).
		SetServerSelectionTimeout(5*time.Second).
		SetMaxPoolSize(o.MaxPoolSize))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("failed to ping MongoDB at %s: %w", o.URI, err)
	}

	store := NewMongoStore(client.Database(o.Database), now)
	if err := store.CreateIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, err
	}
	return store, client.Disconnect, nil
}
