package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/highspring-tester/hat/internal/cache"
	"github.com/highspring-tester/hat/internal/repositories"
)

// MongoRepository implements repositories.Repository on a MongoDB database.
type MongoRepository struct {
	client       *mongo.Client
	db           *mongo.Database
	redisClient  *redis.Client
	cacheManager *cache.CacheManager

	candidate    repositories.CandidateRepository
	question     repositories.QuestionRepository
	sequence     repositories.SequenceRepository
	user         repositories.UserRepository
	notification repositories.NotificationRepository
}

type RepositoryConfig struct {
	Client      *mongo.Client
	Database    *mongo.Database
	RedisClient *redis.Client
}

func NewMongoRepository(config RepositoryConfig) repositories.Repository {
	cacheManager := cache.NewCacheManager(config.RedisClient)
	db := config.Database

	return &MongoRepository{
		client:       config.Client,
		db:           db,
		redisClient:  config.RedisClient,
		cacheManager: cacheManager,
		candidate:    NewCandidateMongo(db),
		question:     repositories.NewCachedQuestionRepository(NewQuestionMongo(db), cacheManager),
		sequence:     NewSequenceMongo(db),
		user:         NewUserMongo(db),
		notification: NewNotificationMongo(db),
	}
}

func (r *MongoRepository) Candidate() repositories.CandidateRepository {
	return r.candidate
}

func (r *MongoRepository) Question() repositories.QuestionRepository {
	return r.question
}

func (r *MongoRepository) Sequence() repositories.SequenceRepository {
	return r.sequence
}

func (r *MongoRepository) User() repositories.UserRepository {
	return r.user
}

func (r *MongoRepository) Notification() repositories.NotificationRepository {
	return r.notification
}

func (r *MongoRepository) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}
	if r.redisClient != nil {
		if err := r.cacheManager.HealthCheck(ctx); err != nil {
			return fmt.Errorf("cache ping failed: %w", err)
		}
	}
	return nil
}

func (r *MongoRepository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := r.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("failed to disconnect mongo: %w", err)
	}
	if r.redisClient != nil {
		if err := r.redisClient.Close(); err != nil {
			return fmt.Errorf("failed to close Redis: %w", err)
		}
	}
	return nil
}

// RepositoryManager implements the RepositoryManager interface
type RepositoryManager struct {
	config RepositoryConfig
	repo   repositories.Repository
}

func NewRepositoryManager(config RepositoryConfig) repositories.RepositoryManager {
	return &RepositoryManager{config: config}
}

// Initialize verifies connections, creates indexes and builds the repository
func (rm *RepositoryManager) Initialize() error {
	if rm.config.Client == nil || rm.config.Database == nil {
		return fmt.Errorf("mongo client and database are required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := rm.config.Client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("mongo connection failed: %w", err)
	}
	if rm.config.RedisClient != nil {
		if _, err := rm.config.RedisClient.Ping(ctx).Result(); err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
	}
	if err := EnsureIndexes(ctx, rm.config.Database); err != nil {
		return err
	}

	rm.repo = NewMongoRepository(rm.config)
	return nil
}

func (rm *RepositoryManager) GetRepository() repositories.Repository {
	return rm.repo
}

func (rm *RepositoryManager) HealthCheck(ctx context.Context) error {
	if rm.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return rm.repo.Ping(ctx)
}

func (rm *RepositoryManager) Shutdown(ctx context.Context) error {
	if rm.repo == nil {
		return nil
	}
	return rm.repo.Close()
}
