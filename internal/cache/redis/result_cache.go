package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marutilai/open-deep-research/internal/config"
	"github.com/marutilai/open-deep-research/internal/domain"
	"github.com/marutilai/open-deep-research/internal/observability"
)

// KeyPrefix namespaces research entries.
const KeyPrefix = "research:"

// ResultCache implements domain.ResultCache on redis hashes.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewClient creates a redis client from configuration and checks the connection.
func NewClient(ctx context.Context, cfg *config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return client, nil
}

// NewResultCache creates a new redis result cache. A zero ttl keeps entries forever.
func NewResultCache(client *redis.Client, ttl time.Duration) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
	}
}

// Get returns the cached result for key or domain.ErrCacheMiss.
func (c *ResultCache) Get(ctx context.Context, key string) (*domain.AngleResult, error) {
	logger := observability.FromContext(ctx)

	fields, err := c.client.HGetAll(ctx, KeyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	data, ok := fields["data"]
	if !ok {
		return nil, domain.ErrCacheMiss
	}

	var result domain.AngleResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		logger.Warn("corrupt cache entry, treating as miss",
			observability.String("key", key),
			observability.Error(err))
		return nil, domain.ErrCacheMiss
	}

	if ts, parseErr := strconv.ParseInt(fields["indexed_at"], 10, 64); parseErr == nil {
		logger.Debug("cache entry found",
			observability.String("key", key),
			observability.Duration("age", time.Since(time.Unix(ts, 0))))
	}

	return &result, nil
}

// Set stores result under key.
func (c *ResultCache) Set(ctx context.Context, key string, result *domain.AngleResult) error {
	logger := observability.FromContext(ctx)

	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal cache entry: %w", err)
	}

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, KeyPrefix+key,
		"data", string(data),
		"company", result.CompanyName,
		"angle", string(result.ResearchAngle),
		"indexed_at", time.Now().Unix(),
	)
	if c.ttl > 0 {
		pipe.Expire(ctx, KeyPrefix+key, c.ttl)
	}

	if _, execErr := pipe.Exec(ctx); execErr != nil {
		logger.Error("cache write failed", observability.Error(execErr))
		return fmt.Errorf("failed to write cache entry: %w", execErr)
	}

	logger.Debug("cache entry stored",
		observability.String("key", key),
		observability.Int("data_size", len(data)))
	return nil
}
