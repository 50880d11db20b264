package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/eaglebank/product-transactions/internal/command"
	"github.com/eaglebank/product-transactions/internal/config"
	"github.com/eaglebank/product-transactions/internal/query"
	"github.com/eaglebank/product-transactions/internal/repository"
	"github.com/eaglebank/product-transactions/internal/seed"
	"github.com/eaglebank/product-transactions/shared/cache"
	"github.com/eaglebank/product-transactions/shared/events"
	redisClient "github.com/eaglebank/product-transactions/shared/redis"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
)

// app holds the process-wide handles shared by every request.
type app struct {
	cfg   *config.Config
	log   zerolog.Logger
	store repository.TransactionStore
	redis *redisClient.Client

	queries  *query.TransactionQueryService
	commands *command.SeedCommandService
}

func newApp(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*app, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	log.Info().Str("driver", cfg.StoreDriver).Msg("Connected to transaction store")

	a := &app{
		cfg:   cfg,
		log:   log,
		store: repository.NewBoundedStore(store, cfg.MaxConcurrentQueries),
	}

	if cfg.RedisAddr != "" {
		a.redis, err = redisClient.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			_ = store.Close(ctx)
			return nil, err
		}
		log.Info().Str("addr", cfg.RedisAddr).Msg("Connected to Redis")
	}

	a.queries = query.NewTransactionQueryService(a.store, cfg.MonthMatchMode, query.NewViews(a.cacheBackend(), query.ViewOptions{
		TTL:    cfg.CacheTTL,
		Logger: log,
	}))

	var publisher command.EventPublisher
	if a.redis != nil {
		publisher = events.NewPublisher(a.redis.Client, 1000)
	}
	a.commands = command.NewSeedCommandService(seed.NewClient(cfg.SeedURL, cfg.SeedTimeout), a.store, a.queries, publisher)
	return a, nil
}

// cacheBackend picks Redis when available and process memory otherwise.
// It returns nil when caching is disabled.
func (a *app) cacheBackend() cache.Backend {
	if !a.cfg.CacheEnabled() {
		return nil
	}
	if a.redis != nil {
		return redisClient.NewCacheBackend(a.redis.Client)
	}
	return cache.NewLocalBackend(a.cfg.CacheTTL)
}

func (a *app) close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn().Err(err).Msg("Failed to close Redis client")
		}
	}
	if err := a.store.Close(ctx); err != nil {
		a.log.Warn().Err(err).Msg("Failed to close transaction store")
	}
}

func openStore(ctx context.Context, cfg *config.Config) (repository.TransactionStore, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		return repository.NewMongoStore(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection)
	case config.DriverPostgres:
		db, err := sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to open database: %w", err)
		}
		pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		store := repository.NewPostgresStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil
	case config.DriverMemory:
		return repository.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown STORE_DRIVER %q", config.ErrInvalidConfig, cfg.StoreDriver)
	}
}
