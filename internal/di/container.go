package di

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"docstore-gateway/internal/docstore"
	"docstore-gateway/internal/docstore/adapter/persistence"
	"docstore-gateway/internal/docstore/adapter/persistence/memory"
	"docstore-gateway/internal/docstore/adapter/persistence/mongodb"
	"docstore-gateway/internal/docstore/config"
	"docstore-gateway/internal/docstore/domain/repository"
	"docstore-gateway/internal/shared/logger"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

const appName = "docstore-gateway"

// Container represents a dependency injection container with proper lifecycle management
type Container struct {
	mu sync.RWMutex
	// Module instances
	DocstoreModule *docstore.DocstoreModule
	// Connections
	MongoClient *mongo.Client
	RedisClient *redis.Client
	NATSConn    *nats.Conn
	// Configuration
	Config *config.Config
	// Logger
	Logger logger.Logger
}

// NewContainer creates a new DI container
func NewContainer(cfg *config.Config, log logger.Logger) *Container {
	return &Container{
		Config: cfg,
		Logger: log,
	}
}

// Initialize opens the configured connections and builds the docstore module.
// On failure every connection opened so far is closed again.
func (c *Container) Initialize(ctx context.Context) (err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.Config == nil {
		return fmt.Errorf("configuration must be set before initialization")
	}
	if c.Logger == nil {
		c.Logger = logger.NewLogger()
	}
	defer func() {
		if err != nil {
			c.closeConnections(context.Background())
		}
	}()

	store, err := c.initStore(ctx)
	if err != nil {
		return err
	}

	sinks, err := c.initChangeFeed(ctx)
	if err != nil {
		return err
	}

	module, err := docstore.NewDocstoreModule(c.Config, store, c.Logger, sinks...)
	if err != nil {
		return fmt.Errorf("failed to create docstore module: %w", err)
	}
	c.DocstoreModule = module
	return nil
}

func (c *Container) initStore(ctx context.Context) (repository.DocumentStore, error) {
	storeCfg := c.Config.Store
	switch strings.ToLower(storeCfg.Driver) {
	case config.DriverMemory:
		c.Logger.Warn("Using in-memory document store; data is lost on restart")
		return memory.NewDocumentStore(), nil

	case config.DriverMongoDB:
		client, err := mongodb.Connect(ctx, mongodb.ClientOptions{
			URI:            storeCfg.URI,
			Username:       storeCfg.Username,
			Password:       storeCfg.Key,
			AuthSource:     storeCfg.AuthSource,
			AppName:        appName,
			ConnectTimeout: storeCfg.ConnectTimeout,
		})
		if err != nil {
			return nil, err
		}
		c.MongoClient = client
		c.Logger.Info("MongoDB connection established successfully")
		return mongodb.NewDocumentStore(client, c.Logger), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", storeCfg.Driver)
	}
}

func (c *Container) initChangeFeed(ctx context.Context) ([]persistence.ChangeFeedSink, error) {
	var sinks []persistence.ChangeFeedSink
	feedCfg := c.Config.ChangeFeed

	if feedCfg.Redis.Enabled {
		c.RedisClient = config.NewRedisClient(feedCfg.Redis)
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.RedisClient.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			c.Logger.Warnf("Redis change feed at %s is not reachable yet: %v", feedCfg.Redis.GetAddr(), err)
		}
		sinks = append(sinks, persistence.NewRedisChangeFeed(c.RedisClient, feedCfg.Redis.StreamMaxLength, c.Logger))
	}

	if feedCfg.NATS.Enabled {
		nc, err := config.ConnectNATS(feedCfg.NATS)
		if err != nil {
			return nil, err
		}
		c.NATSConn = nc
		sink, err := persistence.NewNATSChangeFeed(ctx, nc, feedCfg.NATS.StreamName, feedCfg.NATS.SubjectPrefix, c.Logger)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, sink)
	}

	return sinks, nil
}

// GetDocstoreModule returns the docstore module instance
func (c *Container) GetDocstoreModule() *docstore.DocstoreModule {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.DocstoreModule
}

// HealthCheck checks the store and the change feed sinks
func (c *Container) HealthCheck(ctx context.Context) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.DocstoreModule == nil {
		return fmt.Errorf("docstore module not initialized")
	}
	return c.DocstoreModule.HealthCheck(ctx)
}

// Cleanup stops the module and closes connections in reverse order of initialization
func (c *Container) Cleanup(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error

	if c.DocstoreModule != nil {
		c.DocstoreModule.Stop()
		c.DocstoreModule = nil
	}

	errs = append(errs, c.closeConnections(ctx)...)

	if len(errs) > 0 {
		return fmt.Errorf("cleanup errors: %v", errs)
	}
	return nil
}

func (c *Container) closeConnections(ctx context.Context) []error {
	var errs []error
	if c.NATSConn != nil {
		if err := c.NATSConn.Drain(); err != nil {
			c.NATSConn.Close()
		}
		c.NATSConn = nil
	}
	if c.RedisClient != nil {
		if err := c.RedisClient.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close redis client: %w", err))
		}
		c.RedisClient = nil
	}
	if c.MongoClient != nil {
		if err := c.MongoClient.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("failed to disconnect mongodb: %w", err))
		}
		c.MongoClient = nil
	}
	return errs
}

// Close gracefully shuts down all services in the container with timeout
func (c *Container) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := c.Cleanup(ctx); err != nil {
		if c.Logger != nil {
			c.Logger.Warnf("Cleanup errors occurred: %v", err)
		}
		return err
	}

	if c.Logger != nil {
		c.Logger.Info("DI container resources closed")
	}
	return nil
}
