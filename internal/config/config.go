// Package config reads service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
)

type Config struct {
	HTTPPort        string
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	MaxBodyBytes    int64

	CatalogBackend string
	CartBackend    string
	SQLitePath     string
	MongoURI       string
	MongoDBName    string
	SeedPath       string

	RedisAddr     string
	RedisPassword string

	KafkaBrokers []string
	CatalogTopic string
	CatalogGroup string
	OrdersTopic  string

	OrdersDB OrdersDB

	LogLevel    string
	LogFormat   string
	TraceStdout bool
}

// OrdersDB selects Postgres for orders when Host is set.
type OrdersDB struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

func (o OrdersDB) Enabled() bool { return o.Host != "" }

func Load() (*Config, error) {
	var errs []error
	duration := func(key, def string) time.Duration {
		d, err := time.ParseDuration(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return d
	}
	integer := func(key, def string) int {
		n, err := strconv.Atoi(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return n
	}
	boolean := func(key, def string) bool {
		b, err := strconv.ParseBool(getEnv(key, def))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
		return b
	}

	cfg := &Config{
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		RequestTimeout:  duration("REQUEST_TIMEOUT", "30s"),
		ShutdownTimeout: duration("SHUTDOWN_TIMEOUT", "10s"),
		MaxBodyBytes:    1 << 20, // 1MB

		CatalogBackend: strings.ToLower(getEnv("CATALOG_BACKEND", BackendSQLite)),
		CartBackend:    strings.ToLower(getEnv("CART_BACKEND", BackendSQLite)),
		SQLitePath:     getEnv("SQLITE_PATH", "storefront.db"),
		MongoURI:       getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:    getEnv("MONGO_DB_NAME", "storefront"),
		SeedPath:       os.Getenv("SEED_PATH"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		CatalogTopic: getEnv("CATALOG_TOPIC", "catalog-feed"),
		CatalogGroup: getEnv("CATALOG_GROUP_ID", "storefront-catalog"),
		OrdersTopic:  getEnv("ORDERS_TOPIC", "orders"),

		OrdersDB: OrdersDB{
			Host:     os.Getenv("ORDERS_DB_HOST"),
			Port:     integer("ORDERS_DB_PORT", "5432"),
			User:     getEnv("ORDERS_DB_USER", "postgres"),
			Password: getEnv("ORDERS_DB_PASSWORD", "postgres"),
			Name:     getEnv("ORDERS_DB_NAME", "orders"),
		},

		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "json"),
		TraceStdout: boolean("TRACE_STDOUT", "false"),
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.CatalogBackend {
	case BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("CATALOG_BACKEND %q: want memory or sqlite", c.CatalogBackend)
	}

	switch c.CartBackend {
	case BackendMemory, BackendMongo:
	case BackendSQLite:
		// cart lines reference the products table
		if c.CatalogBackend != BackendSQLite {
			return errors.New("CART_BACKEND=sqlite requires CATALOG_BACKEND=sqlite")
		}
	default:
		return fmt.Errorf("CART_BACKEND %q: want memory, sqlite or mongo", c.CartBackend)
	}

	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT must be positive")
	}
	if c.ShutdownTimeout <= 0 {
		return errors.New("SHUTDOWN_TIMEOUT must be positive")
	}
	if c.OrdersDB.Enabled() && (c.OrdersDB.Port <= 0 || c.OrdersDB.Port > 65535) {
		return fmt.Errorf("ORDERS_DB_PORT %d out of range", c.OrdersDB.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
