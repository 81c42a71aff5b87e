package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docqa/internal/domain"
	"docqa/pkg/logger"
)

const redisGenKey = "docqa:cache:gen"

// RedisCache stores retrieval results in Redis so multiple service
// instances share one cache. Invalidation bumps a generation counter that
// is part of every entry key.
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

// NewRedisCache connects to addr and verifies the connection once.
func NewRedisCache(ctx context.Context, addr string, ttl time.Duration, log logger.Logger) (*RedisCache, error) {
	if ttl <= 0 {
		ttl = time.Hour
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", addr, err)
	}
	return &RedisCache{client: client, ttl: ttl, log: log}, nil
}

func (c *RedisCache) Get(ctx context.Context, query string, topK int) ([]domain.RetrievalResult, bool) {
	key, err := c.entryKey(ctx, query, topK)
	if err != nil {
		return nil, false
	}
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	var results []domain.RetrievalResult
	if err := json.Unmarshal(data, &results); err != nil {
		c.log.Warn("failed to decode cached results", logger.Err(err))
		return nil, false
	}
	return results, true
}

func (c *RedisCache) Put(ctx context.Context, query string, topK int, results []domain.RetrievalResult) {
	key, err := c.entryKey(ctx, query, topK)
	if err != nil {
		return
	}
	data, err := json.Marshal(results)
	if err != nil {
		c.log.Warn("failed to encode results for cache", logger.Err(err))
		return
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to write query cache", logger.Err(err))
	}
}

func (c *RedisCache) Invalidate(ctx context.Context) {
	if err := c.client.Incr(ctx, redisGenKey).Err(); err != nil {
		c.log.Warn("failed to invalidate query cache", logger.Err(err))
	}
}

func (c *RedisCache) Close() error { return c.client.Close() }

func (c *RedisCache) entryKey(ctx context.Context, query string, topK int) (string, error) {
	gen, err := c.client.Get(ctx, redisGenKey).Int64()
	if err != nil && err != redis.Nil {
		return "", err
	}
	return fmt.Sprintf("docqa:cache:%d:%s", gen, cacheKey(query, topK)), nil
}
