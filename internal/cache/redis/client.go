package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/matalai-travel/chat-backend/pkg/logger"
)

// Client caches finished replies for history-free requests. Cache
// failures are reported to the caller but never fail a request.
type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) GetReply(ctx context.Context, key string) (string, bool, error) {
	reply, err := c.client.Get(ctx, "reply:"+key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached reply: %w", err)
	}

	logger.Debug("Reply cache hit", zap.String("key", key))
	return reply, true, nil
}

func (c *Client) SetReply(ctx context.Context, key, reply string, ttl time.Duration) error {
	if err := c.client.Set(ctx, "reply:"+key, reply, ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache reply: %w", err)
	}

	logger.Debug("Reply cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}
