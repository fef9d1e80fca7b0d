package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/redis/go-redis/v9"
)

// entryVersion is bumped whenever the cached Cart layout changes. Entries
// written under another version read as misses.
const entryVersion = 1

type RedisOptions struct {
	Prefix    string
	TTL       time.Duration
	MaxJitter time.Duration
}

func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Prefix:    "storefront",
		TTL:       15 * time.Minute,
		MaxJitter: 5 * time.Minute,
	}
}

type RedisCache struct {
	client *redis.Client
	opts   RedisOptions
}

type entry struct {
	Version int          `json:"v"`
	Cart    *domain.Cart `json:"cart"`
}

func NewRedisCache(client *redis.Client, opts RedisOptions) *RedisCache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultRedisOptions().TTL
	}
	return &RedisCache{client: client, opts: opts}
}

func (r *RedisCache) Get(ctx context.Context, key string) (*domain.Cart, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err)
	}
	if e.Version != entryVersion || e.Cart == nil {
		return nil, ErrCacheMiss
	}
	return e.Cart, nil
}

// Set stores the cart with a jittered TTL so entries do not expire together.
func (r *RedisCache) Set(ctx context.Context, key string, cart *domain.Cart) error {
	data, err := json.Marshal(entry{Version: entryVersion, Cart: cart})
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.ttl()).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, r.key(key)).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisCache) ttl() time.Duration {
	if r.opts.MaxJitter <= 0 {
		return r.opts.TTL
	}
	return r.opts.TTL + rand.N(r.opts.MaxJitter)
}

func (r *RedisCache) key(key string) string {
	if r.opts.Prefix == "" {
		return "cart:" + key
	}
	return r.opts.Prefix + ":cart:" + key
}
