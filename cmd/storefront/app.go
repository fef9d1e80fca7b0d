package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fjod/go_cart/storefront/internal/aggregator"
	"github.com/fjod/go_cart/storefront/internal/cache"
	"github.com/fjod/go_cart/storefront/internal/cart"
	"github.com/fjod/go_cart/storefront/internal/catalog"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/orders"
	"github.com/fjod/go_cart/storefront/internal/poller"
	"github.com/fjod/go_cart/storefront/internal/publisher"
	"github.com/fjod/go_cart/storefront/internal/seed"
	"github.com/fjod/go_cart/storefront/internal/service"
	"github.com/fjod/go_cart/storefront/internal/sqlitedb"
	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"
)

type app struct {
	cart     *service.CartService
	catalog  *service.CatalogService
	checkout *service.CheckoutService

	closers []func()
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// close releases resources in reverse order of acquisition.
func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

type catalogStore interface {
	catalog.Store
	Close() error
}

type cartStore interface {
	cart.Store
	Close() error
}

func newApp(ctx context.Context, cfg *config.Config, lg *zap.Logger) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	var db *sql.DB
	if cfg.CatalogBackend == config.BackendSQLite {
		db, err = sqlitedb.OpenAndMigrate(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.onClose(func() { db.Close() })
	}

	products, err := newCatalogStore(cfg, db)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { products.Close() })

	if err := seedCatalog(ctx, products, cfg.SeedPath, lg); err != nil {
		return nil, err
	}

	carts, err := a.newCartStore(ctx, cfg, db, lg)
	if err != nil {
		return nil, err
	}
	a.onClose(func() { carts.Close() })

	cartCache := a.newCartCache(ctx, cfg, lg)
	view := aggregator.New(carts, products)

	a.cart = service.NewCartService(carts, products, view, cartCache, lg)
	if err := a.cart.Start(ctx); err != nil {
		return nil, err
	}
	a.onClose(a.cart.Close)
	tracked := a.cart.TrackCatalog(products)
	a.catalog = service.NewCatalogService(tracked, a.cart, lg)

	repo, err := a.newOrdersRepository(ctx, cfg, lg)
	if err != nil {
		return nil, err
	}
	a.checkout = service.NewCheckoutService(view, a.cart, repo, a.newPublisher(cfg), lg)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(tracked,
			poller.NewKafkaReader(cfg.CatalogTopic, cfg.CatalogGroup, cfg.KafkaBrokers...), lg)
		go p.Run(ctx)
		a.onClose(p.Close)
		lg.Info("catalog feed consumer started", zap.String("topic", cfg.CatalogTopic))
	}

	return a, nil
}

func newCatalogStore(cfg *config.Config, db *sql.DB) (catalogStore, error) {
	switch cfg.CatalogBackend {
	case config.BackendSQLite:
		return catalog.NewSQLiteStore(db), nil
	case config.BackendMemory:
		return catalog.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("unknown catalog backend %q", cfg.CatalogBackend)
}

func seedCatalog(ctx context.Context, products catalog.Store, path string, lg *zap.Logger) error {
	items, err := seed.Load(path)
	if err != nil {
		return fmt.Errorf("failed to load seed: %w", err)
	}
	if err := products.UpsertMany(ctx, items); err != nil {
		return fmt.Errorf("failed to seed catalog: %w", err)
	}
	lg.Info("catalog seeded", zap.Int("products", len(items)))
	return nil
}

func (a *app) newCartStore(ctx context.Context, cfg *config.Config, db *sql.DB, lg *zap.Logger) (cartStore, error) {
	switch cfg.CartBackend {
	case config.BackendSQLite:
		return cart.NewSQLiteStore(db, time.Now), nil
	case config.BackendMemory:
		return cart.NewMemoryStore(), nil
	case config.BackendMongo:
		store, disconnect, err := cart.OpenMongoStore(ctx, cart.MongoOptions{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDBName,
		}, time.Now)
		if err != nil {
			return nil, err
		}
		a.onClose(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := disconnect(ctx); err != nil {
				lg.Error("failed to disconnect MongoDB", zap.Error(err))
			}
		})
		return store, nil
	}
	return nil, fmt.Errorf("unknown cart backend %q", cfg.CartBackend)
}

func (a *app) newCartCache(ctx context.Context, cfg *config.Config, lg *zap.Logger) cache.CartCache {
	if cfg.RedisAddr == "" {
		return cache.Nop{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	a.onClose(func() { client.Close() })
	rc := cache.NewRedisCache(client, cache.DefaultRedisOptions())
	if err := rc.Ping(ctx); err != nil {
		lg.Warn("redis unreachable, cart reads fall back to the stores", zap.String("addr", cfg.RedisAddr), zap.Error(err))
	}
	settings := cache.DefaultBreakerSettings()
	settings.OnStateChange = func(name string, from, to gobreaker.State) {
		lg.Warn("cache breaker state changed", zap.String("name", name), zap.Stringer("from", from), zap.Stringer("to", to))
	}
	return cache.NewBreakerCache(rc, settings)
}

func (a *app) newOrdersRepository(ctx context.Context, cfg *config.Config, lg *zap.Logger) (orders.Repository, error) {
	if !cfg.OrdersDB.Enabled() {
		lg.Info("orders stored in memory")
		return orders.NewMemoryRepository(), nil
	}
	repo, err := orders.OpenPostgres(ctx, orders.Credentials{
		Host:     cfg.OrdersDB.Host,
		Port:     cfg.OrdersDB.Port,
		User:     cfg.OrdersDB.User,
		Password: cfg.OrdersDB.Password,
		DBName:   cfg.OrdersDB.Name,
	})
	if err != nil {
		return nil, err
	}
	a.onClose(func() { repo.Close() })
	return repo, nil
}

func (a *app) newPublisher(cfg *config.Config) service.OrderEventPublisher {
	if len(cfg.KafkaBrokers) == 0 {
		return publisher.Nop{}
	}
	p := publisher.NewOrderPublisher(publisher.NewKafkaWriter(cfg.OrdersTopic, cfg.KafkaBrokers...))
	a.onClose(func() { p.Close() })
	return p
}
