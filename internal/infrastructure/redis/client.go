package redis

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/nerrad567/telemetry-core/internal/infrastructure/config"
)

const (
	defaultConnectTimeout = 5 * time.Second
	defaultPingTimeout    = 2 * time.Second
)

// ErrDisabled is returned by Connect when redis.enabled is false.
var ErrDisabled = errors.New("redis: disabled in configuration")

// Client wraps a go-redis client with the configured key prefix.
type Client struct {
	*goredis.Client
	keyPrefix string
}

// Connect dials Redis and verifies it with PING.
func Connect(cfg config.RedisConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := &goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
	if cfg.TLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	rdb := goredis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), defaultConnectTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close() //nolint:errcheck // already failing
		return nil, fmt.Errorf("redis: connecting to %s: %w", cfg.Addr, err)
	}

	return &Client{Client: rdb, keyPrefix: cfg.KeyPrefix}, nil
}

// KeyPrefix returns the namespace for keys written by this service.
func (c *Client) KeyPrefix() string {
	return c.keyPrefix
}

// HealthCheck pings the server.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	if err := c.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis health check failed: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (c *Client) Close() error {
	if c == nil || c.Client == nil {
		return nil
	}
	return c.Client.Close()
}
