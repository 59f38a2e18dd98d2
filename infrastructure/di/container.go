// Package di builds the service graph with explicit construction. There is no
// code generation and no process-wide mutable state; the container owns every
// long-lived resource and closes them on shutdown.
package di

import (
	"context"
	"database/sql"
	"fmt"

	"chatbackend/application/ports"
	"chatbackend/application/services"
	"chatbackend/infrastructure/cache"
	"chatbackend/infrastructure/config"
	"chatbackend/infrastructure/persistence/postgres"
	apperrors "chatbackend/pkg/errors"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Container holds all constructed services
type Container struct {
	Config *config.Config
	Logger *zap.Logger

	DB          *sql.DB
	redisClient *redis.Client

	CacheStore  cache.Store
	Cache       *cache.Service
	CacheHealth *cache.HealthChecker

	UserRepository ports.UserRepository
	UserService    *services.UserService

	ErrorHandler *apperrors.ErrorHandler
}

// InitializeContainer constructs the full service graph
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, err := postgres.Open(ctx, cfg.DatabaseDSN())
	if err != nil {
		return nil, err
	}
	if err := postgres.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations error: %w", err)
	}

	c := &Container{
		Config: cfg,
		Logger: logger,
		DB:     db,
	}

	c.CacheStore = c.newCacheStore(ctx)
	c.Cache = cache.NewService(c.CacheStore, logger, cfg.CacheTTL)
	c.CacheHealth = cache.NewHealthChecker(c.Cache)

	c.UserRepository = postgres.NewUserRepository(db)
	c.UserService = services.NewUserService(c.UserRepository, logger)

	c.ErrorHandler = apperrors.NewErrorHandler(logger, cfg.IsDevelopment())

	return c, nil
}

// newCacheStore picks Redis when configured, falling back to the in-memory
// store for development. A failed Redis ping is logged but not fatal: the
// cache layer degrades to misses rather than blocking startup.
func (c *Container) newCacheStore(ctx context.Context) cache.Store {
	if c.Config.RedisHost == "" {
		c.Logger.Warn("no REDIS_HOST configured, using in-memory cache store")
		return cache.NewMemoryStore(c.Config.CacheMaxItems)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     c.Config.RedisAddr(),
		Password: c.Config.RedisPassword,
	})
	c.redisClient = client

	if err := client.Ping(ctx).Err(); err != nil {
		c.Logger.Warn("redis ping failed, cache will degrade to misses",
			zap.String("addr", c.Config.RedisAddr()),
			zap.Error(err),
		)
	}

	return cache.NewRedisStore(client, c.Config.CacheKeyPrefix)
}

// Shutdown releases the container's resources
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if closer, ok := c.CacheStore.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.redisClient != nil {
		if err := c.redisClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.DB != nil {
		if err := c.DB.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	_ = c.Logger.Sync()

	return firstErr
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zap.ParseAtomicLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	var zapCfg zap.Config
	if cfg.IsDevelopment() {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = level

	return zapCfg.Build()
}
