package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	config "github.com/avatarctic/catalog-service/configs"
)

// NewRedisClient creates a new Redis client and verifies it with a ping.
func NewRedisClient(cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(newOptions(cfg))

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := client.Ping(ctx).Result(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return client, nil
}

// NewLazyRedisClient creates a client without probing the server. The catalog
// treats the cache as optional, so the service may start while Redis is down.
func NewLazyRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(newOptions(cfg))
}

func newOptions(cfg *config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolTimeout:  cfg.PoolTimeout,
		MaxRetries:   cfg.MaxRetries,
	}
}

// ClientCloser adapts a redis client to the shutdown Closer contract.
type ClientCloser struct {
	Client *redis.Client
}

func (c ClientCloser) Name() string { return "redis" }

func (c ClientCloser) Close(_ context.Context) error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
