package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"regalia/internal/cache"
	"regalia/internal/config"
	"regalia/internal/handlers"
	"regalia/internal/middleware"
	"regalia/internal/query"
	"regalia/internal/repositories"
	"regalia/internal/services"
	"regalia/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(2)
	}
	slog.SetDefault(cfg.NewLogger())

	app, cleanup, err := NewApp(context.Background(), cfg)
	if err != nil {
		slog.Error("failed to start", "op", "main", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("starting server", "op", "main", "addr", cfg.AppPort)
		if err := app.Listen(cfg.AppPort); err != nil {
			slog.Error("server failed", "op", "main", "err", err)
			quit <- syscall.SIGTERM
		}
	}()

	<-quit
	slog.Info("shutting down server", "op", "main")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		slog.Error("error during shutdown", "op", "main", "err", err)
	}
	slog.Info("server gracefully stopped", "op", "main")
}

// NewApp wires the storefront API described by cfg. The returned function
// releases the database, cache and broker connections.
func NewApp(ctx context.Context, cfg config.Config) (*fiber.App, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				slog.Warn("failed to release resource", "op", "NewApp", "err", err)
			}
		}
	}
	fail := func(err error) (*fiber.App, func(), error) {
		cleanup()
		return nil, nil, err
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return fail(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fail(err)
	}
	closers = append(closers, sqlDB.Close)
	if err := repositories.Migrate(db); err != nil {
		return fail(fmt.Errorf("failed to migrate database: %w", err))
	}

	productRepo := repositories.NewGORMProductRepository(db)
	referenceRepo := repositories.NewGORMReferenceRepository(db)

	store, err := newCacheStore(ctx, cfg, &closers)
	if err != nil {
		return fail(err)
	}

	builder := query.NewBuilder(referenceRepo, query.WithLogeTypeFastPath(cfg.LogeTypeFastPath))
	catalog := services.NewCatalogService(productRepo, referenceRepo, builder, store)

	var publisher services.EventPublisher = services.EventPublisherFunc(catalog.HandleCatalogEvent)
	if cfg.RabbitMQURL != "" {
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{URL: cfg.RabbitMQURL, Exchange: cfg.RabbitMQExchange})
		if err != nil {
			return fail(err)
		}
		closers = append(closers, mqClient.Close)
		if err := mqClient.ConsumeCatalogEvents(catalog.HandleCatalogEvent); err != nil {
			return fail(err)
		}
		publisher = mqClient
	}
	indexer := services.NewProductIndexer(productRepo, referenceRepo, publisher)

	if cfg.SeedDemoData {
		if err := seedIfEmpty(ctx, productRepo, indexer); err != nil {
			return fail(err)
		}
	}

	app := fiber.New()
	app.Use(middleware.RequestLogger(os.Stdout))

	apiV1 := app.Group("/api/v1")
	handlers.NewProductHandler(catalog).RegisterRoutes(apiV1)

	app.Get("/health", func(c *fiber.Ctx) error {
		if err := sqlDB.PingContext(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "unhealthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":   "healthy",
			"time":     time.Now().Format(time.RFC3339),
			"database": cfg.DatabaseDriver,
			"cache":    cfg.CacheBackend,
			"events":   cfg.RabbitMQURL != "",
		})
	})

	return app, cleanup, nil
}

func openDatabase(cfg config.Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var dialector gorm.Dialector
	switch cfg.DatabaseDriver {
	case "postgres":
		dialector = postgres.Open(cfg.DatabaseDSN)
	case "sqlite":
		dialector = sqlite.Open(cfg.DatabaseDSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.DatabaseDriver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if cfg.DatabaseDriver == "sqlite" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		// sqlite allows a single writer.
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

func newCacheStore(ctx context.Context, cfg config.Config, closers *[]func() error) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "memory":
		return cache.NewMemoryStore(cfg.CacheTTL), nil
	case "redis":
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		*closers = append(*closers, client.Close)
		return cache.NewRedisStore(client, "regalia:listing", cfg.CacheTTL), nil
	case "none":
		return cache.Nop{}, nil
	}
	return nil, errors.New("unsupported cache backend " + cfg.CacheBackend)
}

func seedIfEmpty(ctx context.Context, products repositories.ProductRepository, indexer *services.ProductIndexer) error {
	n, err := products.Count(ctx, query.And{})
	if err != nil {
		return fmt.Errorf("failed to count products: %w", err)
	}
	if n > 0 {
		slog.Info("catalog already populated, skipping demo data", "op", "seedIfEmpty", "products", n)
		return nil
	}
	return services.SeedDemoCatalog(ctx, indexer)
}
