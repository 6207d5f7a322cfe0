// Package redis implements the store contract on a Redis instance.
// Records map to plain string keys, the active set to a Redis set, so the
// membership operations are single SADD/SREM/SMEMBERS round trips.
package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/creatorhub/signet/internal/store"
)

// Config holds Redis connection configuration.
type Config struct {
	Addr         string
	Password     string
	DB           int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	EnableTLS    bool
}

// Client wraps a go-redis client behind the store contract.
type Client struct {
	rdb *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*Client, error) {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	if cfg.EnableTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// NewFromClient wraps an existing client. Used by tests with miniredis.
func NewFromClient(rdb *redis.Client) *Client {
	return &Client{rdb: rdb}
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Get retrieves the value stored under key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get %q: %w", key, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return val, nil
}

// Set stores value under key without expiry. Key records live until
// explicitly retired, never via TTL.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := c.rdb.Set(ctx, key, value, 0).Err(); err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// SetAdd adds member to the set under setKey.
func (c *Client) SetAdd(ctx context.Context, setKey, member string) error {
	if err := c.rdb.SAdd(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("sadd %q: %w", setKey, err)
	}
	return nil
}

// SetRemove removes member from the set under setKey.
func (c *Client) SetRemove(ctx context.Context, setKey, member string) error {
	if err := c.rdb.SRem(ctx, setKey, member).Err(); err != nil {
		return fmt.Errorf("srem %q: %w", setKey, err)
	}
	return nil
}

// SetMembers returns all members of the set under setKey.
func (c *Client) SetMembers(ctx context.Context, setKey string) ([]string, error) {
	members, err := c.rdb.SMembers(ctx, setKey).Result()
	if err != nil {
		return nil, fmt.Errorf("smembers %q: %w", setKey, err)
	}
	return members, nil
}
