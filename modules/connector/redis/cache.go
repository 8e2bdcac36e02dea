package redis

import (
	"context"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/itsneelabh/autowire/core"
)

// Cache is a namespaced key/value store over Redis. It implements
// core.Memory.
type Cache struct {
	client    *goredis.Client
	namespace string
}

var _ core.Memory = (*Cache)(nil)

// NewCache wraps client. Keys are stored as "<namespace>:<key>".
func NewCache(client *goredis.Client, namespace string) *Cache {
	return &Cache{client: client, namespace: namespace}
}

func (c *Cache) key(k string) string {
	if c.namespace == "" {
		return k
	}
	return c.namespace + ":" + k
}

// Get returns "" and no error for a missing key.
func (c *Cache) Get(ctx context.Context, key string) (string, error) {
	v, err := c.client.Get(ctx, c.key(key)).Result()
	if err == goredis.Nil {
		return "", nil
	}
	return v, err
}

// Set stores value; a zero ttl keeps it until deleted.
func (c *Cache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.client.Set(ctx, c.key(key), value, ttl).Err()
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, c.key(key)).Err()
}

func (c *Cache) Exists(ctx context.Context, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.key(key)).Result()
	return n > 0, err
}

// Ping checks the connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (c *Cache) Close() error {
	return c.client.Close()
}
