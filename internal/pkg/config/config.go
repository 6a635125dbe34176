// Package config reads process configuration from the environment, after
// loading an optional .env file.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is the process configuration. Durations use time.ParseDuration syntax.
type Config struct {
	HTTPAddr        string
	ShutdownTimeout time.Duration
	LogLevel        string

	StoreDriver string
	SQLitePath  string
	DatabaseURL string

	CheckoutLogPath string

	RedisAddr         string
	AnalyticsCacheTTL time.Duration
	IdempotencyTTL    time.Duration

	RabbitMQURL      string
	RabbitMQExchange string
	// EventPublishTimeout bounds the post-commit follow-ups of one order,
	// including the wait for a broker confirm.
	EventPublishTimeout time.Duration

	TopItemsGroupBy string

	OTelEnabled     bool
	OTelServiceName string
	OTelEndpoint    string
	OTelEnvironment string
}

// Load reads envFile (missing files are ignored) and then the environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("config: load %s: %w", envFile, err)
		}
	}

	cfg := &Config{
		HTTPAddr:         getEnv("HTTP_ADDR", ":8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		StoreDriver:      getEnv("STORE_DRIVER", DriverSQLite),
		SQLitePath:       getEnv("SQLITE_PATH", "./data/storefront.db"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		CheckoutLogPath:  getEnv("CHECKOUT_LOG_PATH", "./data/checkout-log.db"),
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RabbitMQURL:      os.Getenv("RABBITMQ_URL"),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "storefront_orders"),
		TopItemsGroupBy:  getEnv("TOP_ITEMS_GROUP_BY", "name"),
		OTelServiceName:  getEnv("OTEL_SERVICE_NAME", "storefront-api"),
		OTelEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTelEnvironment:  getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", "local"),
	}
	if _, ok := os.LookupEnv("CHECKOUT_LOG_PATH"); ok {
		cfg.CheckoutLogPath = os.Getenv("CHECKOUT_LOG_PATH")
	}

	var err error
	if cfg.ShutdownTimeout, err = getDuration("SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	// Orders invalidate the cache immediately; the TTL only bounds staleness
	// from writes made outside this process, such as status changes.
	if cfg.AnalyticsCacheTTL, err = getDuration("ANALYTICS_CACHE_TTL", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.IdempotencyTTL, err = getDuration("IDEMPOTENCY_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.EventPublishTimeout, err = getDuration("EVENT_PUBLISH_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.OTelEnabled, err = getBool("OTEL_ENABLED", false); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverSQLite, DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: DATABASE_URL is required when STORE_DRIVER=%s", DriverPostgres)
		}
	default:
		return fmt.Errorf("config: unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.EventPublishTimeout <= 0 {
		return fmt.Errorf("config: EVENT_PUBLISH_TIMEOUT must be positive, got %s", c.EventPublishTimeout)
	}
	switch c.TopItemsGroupBy {
	case "name", "id":
	default:
		return fmt.Errorf("config: TOP_ITEMS_GROUP_BY must be name or id, got %q", c.TopItemsGroupBy)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return b, nil
}
