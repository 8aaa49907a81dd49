package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aegisshield/entity-network/internal/config"
	"github.com/aegisshield/entity-network/internal/models"
)

// ErrCacheMiss is returned when no result is cached for a fingerprint
var ErrCacheMiss = errors.New("cache miss")

const keyPrefix = "entity-network:resolution:"

// RedisCache stores resolution results keyed by batch fingerprint
type RedisCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(ctx context.Context, cfg config.RedisConfig, logger *slog.Logger) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ttl:    cfg.TTL,
		logger: logger,
	}, nil
}

func resultKey(fingerprint string) string {
	return keyPrefix + fingerprint
}

// GetResolution returns the cached entities for a batch fingerprint
func (c *RedisCache) GetResolution(ctx context.Context, fingerprint string) ([]models.ResolvedEntity, error) {
	data, err := c.client.Get(ctx, resultKey(fingerprint)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cached resolution: %w", err)
	}

	entities, err := decodeEntities(data)
	if err != nil {
		// a corrupt entry behaves like a miss and is overwritten on the next store
		c.logger.Warn("Discarding undecodable cache entry",
			"fingerprint", fingerprint,
			"error", err)
		return nil, ErrCacheMiss
	}
	return entities, nil
}

// SetResolution caches entities for a batch fingerprint
func (c *RedisCache) SetResolution(ctx context.Context, fingerprint string, entities []models.ResolvedEntity) error {
	data, err := json.Marshal(entities)
	if err != nil {
		return fmt.Errorf("failed to encode resolution: %w", err)
	}

	if err := c.client.Set(ctx, resultKey(fingerprint), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache resolution: %w", err)
	}
	return nil
}

// Ping checks the Redis connection
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func decodeEntities(data []byte) ([]models.ResolvedEntity, error) {
	var entities []models.ResolvedEntity
	if err := json.Unmarshal(data, &entities); err != nil {
		return nil, err
	}
	return entities, nil
}
