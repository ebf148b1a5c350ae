package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// DefaultStream is the Redis stream updates are appended to.
const DefaultStream = "mindspace:state"

// streamMaxLen caps the stream so an unattended consumer cannot grow it
// without bound.
const streamMaxLen = 1000

// RedisPublisher appends state updates to a Redis stream for external
// consumers.
type RedisPublisher struct {
	rdb    *redis.Client
	stream string
	logger *zap.Logger
}

// NewRedisPublisher connects to Redis and returns a stream publisher.
func NewRedisPublisher(redisURL, stream string, logger *zap.Logger) (*RedisPublisher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisPublisher{rdb: rdb, stream: stream, logger: logger}, nil
}

// Name implements Publisher.
func (p *RedisPublisher) Name() string {
	return "redis"
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, update *StateUpdate) error {
	data, err := json.Marshal(update)
	if err != nil {
		return err
	}

	_, err = p.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data": string(data),
		},
	}).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", p.stream, err)
	}

	p.logger.Debug("published state update",
		zap.String("stream", p.stream),
		zap.String("type", string(update.Type)))
	return nil
}

// Close shuts down the Redis connection.
func (p *RedisPublisher) Close() error {
	return p.rdb.Close()
}
