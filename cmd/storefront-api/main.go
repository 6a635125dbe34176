package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog"
	sagasqlite "github.com/Kyellog-silog/rustique-cafe/internal/coordinator/sagalog/sqlite"
	"github.com/Kyellog-silog/rustique-cafe/internal/pkg/cache"
	"github.com/Kyellog-silog/rustique-cafe/internal/pkg/config"
	"github.com/Kyellog-silog/rustique-cafe/internal/pkg/telemetry"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/analytics"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/catalog"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/checkout"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/core/ports"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/adapters/events"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/adapters/store/memory"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/adapters/store/postgres"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/adapters/store/sqlite"
	"github.com/Kyellog-silog/rustique-cafe/internal/storefront/infra/httpx"
)

const cacheNamespace = "storefront"

func main() {
	if err := run(); err != nil {
		slog.Error("storefront-api stopped", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(".env")
	if err != nil {
		return err
	}

	level, err := telemetry.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	telemetry.InitLogger(level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.OTelEnabled {
		shutdown, err := telemetry.SetupTracer(ctx, telemetry.TracerConfig{
			ServiceName: cfg.OTelServiceName,
			Endpoint:    cfg.OTelEndpoint,
			Environment: cfg.OTelEnvironment,
		})
		if err != nil {
			return fmt.Errorf("initialise tracer: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("tracer shutdown error", "error", err)
			}
		}()
	}

	store, storeHealth, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	health := []httpx.HealthCheck{{Name: "store", Check: storeHealth}}

	var checkoutLog *sagasqlite.Repository
	if cfg.CheckoutLogPath != "" {
		if checkoutLog, err = openCheckoutLog(cfg.CheckoutLogPath); err != nil {
			return err
		}
		defer checkoutLog.Close()
	}

	appCache := cache.NewNopCache(cacheNamespace)
	if cfg.RedisAddr != "" {
		appCache = cache.NewRedisCache(cfg.RedisAddr, cacheNamespace)
		defer cache.Close(appCache)
		if err := cache.Ping(ctx, appCache); err != nil {
			slog.Warn("redis unreachable at startup, continuing", "addr", cfg.RedisAddr, "error", err)
		}
		health = append(health, httpx.HealthCheck{Name: "cache", Check: func(ctx context.Context) error {
			return cache.Ping(ctx, appCache)
		}})
	}

	reports := analytics.NewCachedAggregator(
		analytics.NewAggregator(store, analytics.Options{GroupItemsBy: analytics.ParseGroupBy(cfg.TopItemsGroupBy)}),
		appCache,
		cfg.AnalyticsCacheTTL,
	)

	opts := []checkout.Option{checkout.WithInvalidator(reports)}
	if checkoutLog != nil {
		opts = append(opts, checkout.WithCheckoutLog(checkoutLog))
	}
	if cfg.RabbitMQURL != "" {
		publisher, err := events.Dial(cfg.RabbitMQURL, cfg.RabbitMQExchange)
		if err != nil {
			return err
		}
		defer publisher.Close()
		opts = append(opts, checkout.WithPublisher(publisher))
		health = append(health, httpx.HealthCheck{Name: "rabbitmq", Check: func(context.Context) error {
			return publisher.Ping()
		}})
	}
	opts = append(opts, checkout.WithFollowUpTimeout(cfg.EventPublishTimeout))
	writer := checkout.NewWriter(store, opts...)
	placer := checkout.NewIdempotentPlacer(writer, appCache, cfg.IdempotencyTTL)

	var reader sagalog.Reader
	if checkoutLog != nil {
		reader = checkoutLog
	}
	menu := catalog.NewService(store, reports)
	handler := httpx.NewHandler(placer, reports, store, menu, reader, health...)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(httpx.NewRouter(handler), "storefront-api"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("storefront api listening", "addr", cfg.HTTPAddr, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down", "timeout", cfg.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// storefrontStore is what every driver provides: orders plus the catalogue.
type storefrontStore interface {
	ports.OrderStore
	ports.CatalogStore
}

// openStore returns the configured store, a health check and a closer.
func openStore(ctx context.Context, cfg *config.Config) (storefrontStore, func(context.Context) error, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		s, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s.Ping, s.Close, nil

	case config.DriverMemory:
		slog.Warn("using the in-memory store; orders are lost on restart")
		return memory.New(), func(context.Context) error { return nil }, func() {}, nil

	default:
		if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
			return nil, nil, nil, fmt.Errorf("create sqlite dir: %w", err)
		}
		s, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return s, s.Ping, func() { _ = s.Close() }, nil
	}
}

func openCheckoutLog(path string) (*sagasqlite.Repository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create checkout log dir: %w", err)
	}
	return sagasqlite.Open(path)
}
