package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store on Redis. The payload and its write time are
// stored under "<prefix>:<key>" and "<prefix>:<key>:ts".
type RedisStore struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore creates a Redis-backed store and pings the server.
func NewRedisStore(opts ...RedisOption) (*RedisStore, error) {
	cfg := &RedisConfig{
		Host:         "localhost",
		Port:         6379,
		DB:           0,
		PoolSize:     10,
		PoolTimeout:  30 * time.Second,
		MinIdleConns: 2,
		Prefix:       "macropull",
		Now:          time.Now,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		PoolTimeout:  cfg.PoolTimeout,
		MinIdleConns: cfg.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewRedisStoreWithClient(client, cfg.Prefix, cfg.Now), nil
}

// NewRedisStoreWithClient wraps an existing client.
func NewRedisStoreWithClient(client *redis.Client, prefix string, now func() time.Time) *RedisStore {
	if now == nil {
		now = time.Now
	}
	return &RedisStore{client: client, prefix: prefix, now: now}
}

// Close closes the Redis connection.
func (c *RedisStore) Close() error {
	return c.client.Close()
}

func (c *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.wrapKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return data, nil
}

func (c *RedisStore) Put(ctx context.Context, key string, payload []byte) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.wrapKey(key), payload, 0)
	pipe.Set(ctx, c.tsKey(key), strconv.FormatInt(c.now().UnixNano(), 10), 0)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *RedisStore) ModTime(ctx context.Context, key string) (time.Time, error) {
	raw, err := c.client.Get(ctx, c.tsKey(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, ErrCacheMiss
		}
		return time.Time{}, err
	}
	ns, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad write stamp for %s", ErrCorrupt, key)
	}
	return time.Unix(0, ns), nil
}

func (c *RedisStore) Fresh(ctx context.Context, key string, window time.Duration) (bool, error) {
	return freshFrom(ctx, c, c.now, key, window)
}

func (c *RedisStore) wrapKey(key string) string {
	return GenerateKey(c.prefix, key)
}

func (c *RedisStore) tsKey(key string) string {
	return c.wrapKey(key) + ":ts"
}
