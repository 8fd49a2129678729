// Package cache wraps the Redis key-value store used for memoized responses.
package cache

import (
	"context"
	"errors"
	"net"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/crut0i/weatherapp/internal/common"
)

var (
	// ErrCacheMiss is returned by Get when the key is absent.
	ErrCacheMiss = errors.New("cache: key not found")
)

// Store is the contract the response cache middleware and handlers consume.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// Key derives the cache key for a request. Query parameters are deliberately
// not part of the key: all requests to the same path share one slot.
func Key(method, path string) string {
	return "cache:" + method + ":" + path
}

// Client is a redis-backed Store. Transient failures are retried with linear
// backoff, re-establishing the connection before each retry.
type Client struct {
	mu       sync.Mutex
	rdb      *redis.Client
	addr     string
	password string

	maxAttempts int
	retryDelay  time.Duration
}

// New creates a Client. The connection is established lazily on first use.
func New(addr, password string) *Client {
	return &Client{
		addr:        addr,
		password:    password,
		maxAttempts: 3,
		retryDelay:  time.Second,
	}
}

func (c *Client) client() *redis.Client {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb == nil {
		c.rdb = redis.NewClient(&redis.Options{
			Addr:        c.addr,
			Password:    c.password,
			DB:          0,
			DialTimeout: 5 * time.Second,
			ReadTimeout: 5 * time.Second,
			// Retries are handled here, not inside go-redis.
			MaxRetries: -1,
		})
	}
	return c.rdb
}

func (c *Client) reconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb != nil {
		_ = c.rdb.Close()
		c.rdb = nil
	}
}

// Ping verifies connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.client().Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rdb == nil {
		return nil
	}
	err := c.rdb.Close()
	c.rdb = nil
	return err
}

func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	var val []byte
	err := c.do(ctx, func(rdb *redis.Client) error {
		b, err := rdb.Get(ctx, key).Bytes()
		if err != nil {
			return err
		}
		val = b
		return nil
	})
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return val, err
}

func (c *Client) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.do(ctx, func(rdb *redis.Client) error {
		return rdb.Set(ctx, key, value, ttl).Err()
	})
}

func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	var found bool
	err := c.do(ctx, func(rdb *redis.Client) error {
		n, err := rdb.Exists(ctx, key).Result()
		if err != nil {
			return err
		}
		found = n > 0
		return nil
	})
	return found, err
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.do(ctx, func(rdb *redis.Client) error {
		return rdb.Del(ctx, key).Err()
	})
}

// do runs op, retrying transient failures with linearly increasing backoff.
// The last error is surfaced once the attempt budget is exhausted.
func (c *Client) do(ctx context.Context, op func(rdb *redis.Client) error) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := op(c.client())
		if err == nil || !isTransient(err) {
			return err
		}

		lastErr = err
		if attempt == c.maxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay * time.Duration(attempt)):
		}
		c.reconnect()
	}

	return lastErr
}

// isTransient reports whether the error is a connectivity or timeout failure
// worth retrying. Misses and cancelled contexts are not.
func isTransient(err error) bool {
	if errors.Is(err, redis.Nil) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return common.HasAny(err.Error(),
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"no such host",
		"EOF",
		"pool timeout",
		"closed",
	)
}
