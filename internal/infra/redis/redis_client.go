package redis

import (
	"context"

	"github.com/go-redis/redis/v8"

	"subscription-billing/internal/config"
)

// Client wraps the go-redis client so infra consumers share one connection.
type Client struct {
	cli *redis.Client
}

func NewClient(ctx context.Context, cfg *config.RedisConfig) (*Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return &Client{cli: c}, nil
}

// NewClientFromRedis wraps an existing go-redis client (used by tests with
// miniredis).
func NewClientFromRedis(cli *redis.Client) *Client {
	return &Client{cli: cli}
}

func (c *Client) Ping(ctx context.Context) error { return c.cli.Ping(ctx).Err() }
func (c *Client) Close() error                   { return c.cli.Close() }
