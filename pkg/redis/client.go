// Package redis holds the optional Redis connection and the JSON cache built on it.
package redis

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wonny/delaycast/pkg/config"
)

const (
	dialTimeout = 3 * time.Second
	ioTimeout   = 500 * time.Millisecond
)

// Client is the prediction cache connection. A disabled Client is a no-op.
// ⭐ SSOT: Redis 연결은 여기서만 관리
type Client struct {
	rdb *redis.Client
}

// New connects when REDIS_ENABLED is set and returns a disabled Client otherwise.
// An enabled Redis that does not answer PING is an error.
func New(cfg *config.Config) (*Client, error) {
	if !cfg.Redis.Enabled {
		return &Client{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	return Connect(ctx, options(cfg.Redis))
}

// Connect dials opts and verifies the connection with PING
func Connect(ctx context.Context, opts *redis.Options) (*Client, error) {
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis %s: ping: %w", opts.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// options keeps reads short: a slow cache must not slow down /predict
func options(rc config.RedisConfig) *redis.Options {
	return &redis.Options{
		Addr:         net.JoinHostPort(rc.Host, rc.Port),
		Password:     rc.Password,
		DB:           rc.DB,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
}

// Close closes the connection pool
func (c *Client) Close() error {
	if c.rdb == nil {
		return nil
	}
	return c.rdb.Close()
}

// Enabled reports whether the client is connected
func (c *Client) Enabled() bool {
	return c != nil && c.rdb != nil
}

// Ping checks the connection; a disabled client is always healthy
func (c *Client) Ping(ctx context.Context) error {
	if !c.Enabled() {
		return nil
	}
	return c.rdb.Ping(ctx).Err()
}

// Redis returns the underlying client, nil when disabled
func (c *Client) Redis() *redis.Client {
	return c.rdb
}
