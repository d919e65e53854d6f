package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-service/internal/domain/user"
)

// keyPrefix namespaces user entries in Redis.
const keyPrefix = "user:"

// UserCache defines the interface for user caching operations.
type UserCache interface {
	// Get retrieves a user from cache by ID.
	// Returns (nil, nil) on a cache miss.
	Get(ctx context.Context, id int64) (*domain.User, error)

	// Set stores a user in cache with the configured TTL.
	Set(ctx context.Context, user *domain.User) error

	// Delete removes a user from cache by ID.
	Delete(ctx context.Context, id int64) error

	// DeleteMultiple removes multiple users from cache by IDs.
	DeleteMultiple(ctx context.Context, ids ...int64) error
}

// RedisUserCache implements UserCache using Redis as the backing store.
// Users are stored as JSON, CreatedAt included, under user:{id} keys.
type RedisUserCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *zap.Logger
}

// NewRedisUserCache creates a new Redis-backed user cache.
func NewRedisUserCache(client *redis.Client, ttl time.Duration, log *zap.Logger) UserCache {
	return &RedisUserCache{
		client: client,
		ttl:    ttl,
		log:    log,
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("%s%d", keyPrefix, id)
}

// Get retrieves a user from Redis. A missing key is reported as (nil, nil)
// so callers can distinguish a miss from a Redis failure.
func (c *RedisUserCache) Get(ctx context.Context, id int64) (*domain.User, error) {
	data, err := c.client.Get(ctx, cacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		c.log.Debug("cache miss", zap.Int64("user_id", id))
		return nil, nil
	}
	if err != nil {
		c.log.Error("cache get failed", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var u domain.User
	if err := json.Unmarshal(data, &u); err != nil {
		c.log.Error("corrupt cache entry", zap.Int64("user_id", id), zap.Error(err))
		return nil, fmt.Errorf("cache decode: %w", err)
	}

	c.log.Debug("cache hit", zap.Int64("user_id", id))
	return &u, nil
}

// Set stores a user in Redis with the configured TTL.
func (c *RedisUserCache) Set(ctx context.Context, user *domain.User) error {
	if user == nil {
		return errors.New("cannot cache nil user")
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}

	if err := c.client.Set(ctx, cacheKey(user.ID), data, c.ttl).Err(); err != nil {
		c.log.Error("cache set failed", zap.Int64("user_id", user.ID), zap.Error(err))
		return fmt.Errorf("cache set: %w", err)
	}

	c.log.Debug("cached user", zap.Int64("user_id", user.ID), zap.Duration("ttl", c.ttl))
	return nil
}

// Delete removes a user entry from Redis.
func (c *RedisUserCache) Delete(ctx context.Context, id int64) error {
	if err := c.client.Del(ctx, cacheKey(id)).Err(); err != nil {
		c.log.Error("cache delete failed", zap.Int64("user_id", id), zap.Error(err))
		return fmt.Errorf("cache delete: %w", err)
	}

	c.log.Debug("evicted user", zap.Int64("user_id", id))
	return nil
}

// DeleteMultiple removes several user entries with a single DEL.
func (c *RedisUserCache) DeleteMultiple(ctx context.Context, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = cacheKey(id)
	}

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		c.log.Error("cache bulk delete failed", zap.Int("count", len(ids)), zap.Error(err))
		return fmt.Errorf("cache bulk delete: %w", err)
	}

	c.log.Debug("evicted users", zap.Int("count", len(ids)))
	return nil
}
