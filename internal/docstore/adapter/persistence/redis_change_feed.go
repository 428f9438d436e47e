package persistence

import (
	"context"
	"encoding/json"
	"fmt"

	"docstore-gateway/internal/shared/eventbus"
	"docstore-gateway/internal/shared/logger"

	"github.com/redis/go-redis/v9"
)

// StreamClient is the subset of *redis.Client used by the Redis sink.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Ping(ctx context.Context) *redis.StatusCmd
}

// RedisChangeFeed appends change events to Redis Streams, one stream per
// database and collection.
type RedisChangeFeed struct {
	client    StreamClient
	maxLength int64
	logger    logger.Logger
}

// NewRedisChangeFeed creates a Redis Streams sink. maxLength caps each stream
// approximately; zero leaves streams uncapped.
func NewRedisChangeFeed(client StreamClient, maxLength int64, log logger.Logger) *RedisChangeFeed {
	return &RedisChangeFeed{
		client:    client,
		maxLength: maxLength,
		logger:    log.WithComponent("redis_change_feed"),
	}
}

// StreamName returns the stream key for a collection.
func StreamName(database, collection string) string {
	return fmt.Sprintf("changefeed:%s:%s", database, collection)
}

func (r *RedisChangeFeed) Name() string { return "redis" }

// Handle stores one change event in its collection stream
func (r *RedisChangeFeed) Handle(ctx context.Context, event eventbus.Event) error {
	change, err := changeEventFrom(event)
	if err != nil {
		return err
	}

	document, err := json.Marshal(change.Document)
	if err != nil {
		return fmt.Errorf("failed to serialize document: %w", err)
	}

	stream := StreamName(change.Database, change.Collection)
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"type":         string(change.Type),
			"id":           change.ID,
			"partitionKey": change.PartitionKey,
			"document":     string(document),
			"timestamp":    change.Timestamp.UnixNano(),
		},
	}
	if r.maxLength > 0 {
		args.MaxLen = r.maxLength
		args.Approx = true
	}

	entryID, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		r.logger.WithContext(ctx).WithFields(map[string]interface{}{
			"stream": stream,
			"type":   string(change.Type),
			"error":  err.Error(),
		}).Error("Failed to append change event")
		return err
	}

	r.logger.WithContext(ctx).WithFields(map[string]interface{}{
		"stream":   stream,
		"entry_id": entryID,
	}).Debug("Change event appended")
	return nil
}

func (r *RedisChangeFeed) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
