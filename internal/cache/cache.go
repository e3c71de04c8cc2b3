// Package cache provides a Redis response cache for the public read API.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultPrefix = "curriculum:"

// Cache wraps a Redis client. Keys embed a content version so a single
// INCR invalidates every cached response. A nil *Cache is a valid no-op.
type Cache struct {
	Client *redis.Client
	prefix string
	ttl    time.Duration
}

// ParseURL validates a Redis connection URL.
func ParseURL(url string) (*redis.Options, error) {
	if url == "" {
		return nil, fmt.Errorf("cache URL is empty")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid cache URL: %w", err)
	}
	return opts, nil
}

// New creates a cache client and checks it is reachable.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	opts, err := ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("pinging cache: %w", err)
	}
	return &Cache{Client: client, prefix: DefaultPrefix, ttl: ttl}, nil
}

func (c *Cache) Close() error {
	if c == nil {
		return nil
	}
	return c.Client.Close()
}

func (c *Cache) HealthCheck(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Client.Ping(ctx).Err()
}

func (c *Cache) versionKey() string { return c.prefix + "version" }

// Version returns the current content version (0 before the first write).
func (c *Cache) Version(ctx context.Context) (int64, error) {
	v, err := c.Client.Get(ctx, c.versionKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// Bump invalidates every cached response.
func (c *Cache) Bump(ctx context.Context) error {
	if c == nil {
		return nil
	}
	return c.Client.Incr(ctx, c.versionKey()).Err()
}

// Entry is one cached HTTP response body.
type Entry struct {
	ContentType string `json:"ct"`
	Body        []byte `json:"body"`
}

func (c *Cache) key(version int64, path string) string {
	return c.prefix + "v" + strconv.FormatInt(version, 10) + ":" + path
}

// Get looks up path under the current version. The version is returned so
// a miss can be stored under the version it was computed for.
func (c *Cache) Get(ctx context.Context, path string) (Entry, int64, bool, error) {
	ver, err := c.Version(ctx)
	if err != nil {
		return Entry{}, 0, false, err
	}
	raw, err := c.Client.Get(ctx, c.key(ver, path)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ver, false, nil
	}
	if err != nil {
		return Entry{}, ver, false, err
	}
	var e Entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return Entry{}, ver, false, nil
	}
	return e, ver, true, nil
}

func (c *Cache) Set(ctx context.Context, version int64, path string, e Entry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return c.Client.Set(ctx, c.key(version, path), raw, c.ttl).Err()
}
