package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"seacert/internal/platform/config"
)

// Client is the shared connection used by the Lloyd's Register status
// cache. A nil *Client means caching is disabled and adapter lookups
// always go to the wire.
type Client struct {
	*redis.Client
}

// Connect dials Redis from config and verifies the connection before
// handing it out. An empty URL disables the cache rather than failing.
func Connect(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the cache connection is alive.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
