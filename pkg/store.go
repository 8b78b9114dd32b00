package pkg

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/highspring-tester/hat/internal/cache"
	"github.com/highspring-tester/hat/internal/config"
	"github.com/highspring-tester/hat/internal/repositories"
	"github.com/highspring-tester/hat/internal/repositories/mongodb"
	"github.com/highspring-tester/hat/internal/repositories/postgres"
)

// Store owns the repository manager of the configured driver and the optional Redis client.
type Store struct {
	Manager repositories.RepositoryManager
	Cache   *cache.CacheManager
	redis   *redis.Client
	timeout time.Duration
}

// OpenStore connects the driver named by STORE_DRIVER. Redis is optional: a
// connection failure is logged and the service runs uncached.
func OpenStore(cfg *config.Config, logger *slog.Logger) (*Store, error) {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		client, err := NewRedisClient(cfg)
		if err != nil {
			logger.Warn("Redis unavailable, continuing without cache", "error", err)
		} else {
			redisClient = client
		}
	}

	var manager repositories.RepositoryManager
	switch cfg.StoreDriver {
	case config.StoreDriverMongo:
		client, db, err := NewMongoDatabase(cfg)
		if err != nil {
			return nil, err
		}
		manager = mongodb.NewRepositoryManager(mongodb.RepositoryConfig{
			Client:      client,
			Database:    db,
			RedisClient: redisClient,
		})
	default:
		db, err := InitDatabase(cfg)
		if err != nil {
			return nil, err
		}
		manager = postgres.NewRepositoryManager(postgres.RepositoryConfig{
			DB:          db,
			RedisClient: redisClient,
		})
	}

	if err := manager.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize %s repositories: %w", cfg.StoreDriver, err)
	}

	logger.Info("Store ready", "driver", cfg.StoreDriver, "cache", redisClient != nil)
	return &Store{
		Manager: manager,
		Cache:   cache.NewCacheManager(redisClient),
		redis:   redisClient,
		timeout: cfg.Timeouts.Database,
	}, nil
}

// Repository returns the store's repositories with every call bounded by DB_TIMEOUT.
func (s *Store) Repository() repositories.Repository {
	return repositories.NewTimeoutRepository(s.Manager.GetRepository(), s.timeout)
}

// Close releases the store connections, Redis included.
func (s *Store) Close(ctx context.Context) error {
	return s.Manager.Shutdown(ctx)
}
