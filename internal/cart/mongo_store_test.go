package cart

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
)

func setupTestMongo(t *testing.T) (*MongoStore, *tickingClock, func()) {
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	// Start MongoDB container
	mongoContainer, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)

	uri, err := mongoContainer.ConnectionString(ctx)
	require.NoError(t, err)

	clock := newTickingClock()
	store, disconnect, err := OpenMongoStore(ctx, MongoOptions{URI: uri, Database: "testdb"}, clock.Now)
	require.NoError(t, err)

	cleanup := func() {
		store.Close()
		disconnect(ctx)
		if err := mongoContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	}

	return store, clock, cleanup
}

func TestMongoStore_AddMerges(t *testing.T) {
	store, _, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, 2, "Medium"))
	require.NoError(t, store.Add(ctx, 1, 3, "Large"))

	line, ok, err := store.GetByProductID(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "Large", line.Portion)

	n, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestMongoStore_OrderingAndTotals(t *testing.T) {
	store, _, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, 2, ""))
	require.NoError(t, store.Add(ctx, 2, 1, ""))
	require.NoError(t, store.Add(ctx, 3, 4, ""))

	lines, err := store.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 2, 1}, lineIDs(lines))

	total, err := store.TotalQuantity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, total)
}

func TestMongoStore_SetQuantityRemoveClear(t *testing.T) {
	store, _, cleanup := setupTestMongo(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, store.Add(ctx, 1, 2, ""))
	require.NoError(t, store.Add(ctx, 2, 1, ""))

	require.NoError(t, store.SetQuantity(ctx, 1, 9))
	require.NoError(t, store.SetQuantity(ctx, 42, 9))
	line, ok, err := store.GetByProductID(ctx, 1)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 9, line.Quantity)

	_, ok, err = store.GetByProductID(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok, "set quantity never creates a line")

	require.NoError(t, store.Remove(ctx, 1))
	_, ok, err = store.GetByProductID(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx))
	total, err := store.TotalQuantity(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, total)
}

func TestMongoStore_ContextCancellation(t *testing.T) {
	store, _, cleanup := setupTestMongo(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Nanosecond)
	defer cancel()

	time.Sleep(10 * time.Millisecond) // Ensure context is cancelled

	_, err := store.GetAll(ctx)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "context")
}
