package cache

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/sony/gobreaker/v2"
)

// BreakerCache trips after repeated cache failures so an unavailable Redis
// stops adding latency to every request. Misses count as successes.
//
// A key whose invalidation failed is remembered as stale and reported as a
// miss until a later Delete or Set for it goes through.
type BreakerCache struct {
	next CartCache
	cb   *gobreaker.CircuitBreaker[*domain.Cart]

	mu    sync.Mutex
	stale map[string]struct{}
}

type BreakerSettings struct {
	Name             string
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
	OnStateChange    func(name string, from, to gobreaker.State)
}

func DefaultBreakerSettings() BreakerSettings {
	return BreakerSettings{
		Name:             "cart-cache",
		MaxFailures:      5,
		OpenTimeout:      30 * time.Second,
		HalfOpenRequests: 1,
	}
}

func NewBreakerCache(next CartCache, s BreakerSettings) *BreakerCache {
	settings := gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: s.HalfOpenRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
		OnStateChange: s.OnStateChange,
	}
	return &BreakerCache{
		next:  next,
		cb:    gobreaker.NewCircuitBreaker[*domain.Cart](settings),
		stale: make(map[string]struct{}),
	}
}

func (b *BreakerCache) Get(ctx context.Context, key string) (*domain.Cart, error) {
	if b.isStale(key) {
		_ = b.Delete(ctx, key)
		return nil, ErrCacheMiss
	}
	return b.cb.Execute(func() (*domain.Cart, error) {
		return b.next.Get(ctx, key)
	})
}

func (b *BreakerCache) Set(ctx context.Context, key string, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.next.Set(ctx, key, cart)
	})
	if err == nil {
		b.setStale(key, false)
	}
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, key string) error {
	_, err := b.cb.Execute(func() (*domain.Cart, error) {
		return nil, b.next.Delete(ctx, key)
	})
	b.setStale(key, err != nil)
	return err
}

func (b *BreakerCache) State() gobreaker.State {
	return b.cb.State()
}

func (b *BreakerCache) isStale(key string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.stale[key]
	return ok
}

func (b *BreakerCache) setStale(key string, stale bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if stale {
		b.stale[key] = struct{}{}
		return
	}
	delete(b.stale, key)
}
