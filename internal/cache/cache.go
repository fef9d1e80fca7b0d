package cache

import (
	"context"
	"errors"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// CartCache stores materialized carts. The service treats every error as a
// miss and falls back to the stores.
type CartCache interface {
	Get(ctx context.Context, key string) (*domain.Cart, error)
	Set(ctx context.Context, key string, cart *domain.Cart) error
	Delete(ctx context.Context, key string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop never stores anything. It is used when no Redis address is configured.
type Nop struct{}

func (Nop) Get(context.Context, string) (*domain.Cart, error) { return nil, ErrCacheMiss }
func (Nop) Set(context.Context, string, *domain.Cart) error   { return nil }
func (Nop) Delete(context.Context, string) error              { return nil }
