package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hyperjump/kotae/pkg/utils"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "kotae:emb:"

// RedisCache shares embeddings between processes through Redis. Entries expire
// after the configured TTL; Redis errors degrade to cache misses.
type RedisCache struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisCache connects to url, which may be a redis:// URL or a bare host:port.
func NewRedisCache(ctx context.Context, url string, ttl time.Duration, logger *zap.Logger) (*RedisCache, error) {
	var rdb *redis.Client
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		opt, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{Addr: url})
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return &RedisCache{rdb: rdb, ttl: ttl, logger: utils.OrNop(logger)}, nil
}

// Get returns the cached embedding for key.
func (c *RedisCache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Debug("redis cache get failed", zap.Error(err))
		}
		return nil, false
	}
	v, err := utils.BytesToFloat32s(data)
	if err != nil {
		return nil, false
	}
	return v, true
}

// Set stores value under key with the cache TTL.
func (c *RedisCache) Set(ctx context.Context, key string, value []float32) {
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, utils.Float32sToBytes(value), c.ttl).Err(); err != nil {
		c.logger.Debug("redis cache set failed", zap.Error(err))
	}
}

// Close closes the Redis client.
func (c *RedisCache) Close() error {
	return c.rdb.Close()
}
