package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"wires/internal/platform/config"
)

// Client is the connection the compliance job takes its lock through.
type Client struct {
	*redis.Client
}

// New connects and pings. A blank URL returns a nil client and no error;
// callers treat that as "run without a lock".
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	opts, err := options(cfg)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: rdb}, nil
}

func options(cfg config.RedisConfig) (*redis.Options, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}
	opts.MinIdleConns = cfg.MinIdleConns
	if cfg.DialTimeout > 0 {
		opts.DialTimeout = cfg.DialTimeout
	}
	if cfg.ReadTimeout > 0 {
		opts.ReadTimeout = cfg.ReadTimeout
	}
	if cfg.WriteTimeout > 0 {
		opts.WriteTimeout = cfg.WriteTimeout
	}
	return opts, nil
}

// Health pings the server; it backs the /healthz redis check.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// Locker returns a locker whose keys are prefixed with prefix.
func (c *Client) Locker(prefix string) *Locker {
	return NewLocker(c.Client, prefix)
}
