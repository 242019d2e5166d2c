package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// toolNameKeyPrefix namespaces cached tool display names.
const toolNameKeyPrefix = "studio:tool_name:"

// RedisToolCacheRepo implements the ToolCache interface using Redis. Tool display
// names are a convenience projection that may go stale; misses are not errors.
type RedisToolCacheRepo struct {
	client redis.UniversalClient
}

// NewRedisToolCacheRepo creates a new RedisToolCacheRepo with the given Redis client.
func NewRedisToolCacheRepo(client redis.UniversalClient) *RedisToolCacheRepo {
	return &RedisToolCacheRepo{client: client}
}

// GetToolName returns the cached display name for a tool, or "" on a cache miss.
func (r *RedisToolCacheRepo) GetToolName(ctx context.Context, toolID string) (string, error) {
	if toolID == "" {
		return "", errors.New("tool id cannot be empty")
	}

	result, err := r.client.Get(ctx, toolNameKeyPrefix+toolID).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil // cache miss
		}
		return "", fmt.Errorf("redis get tool name: %w", err)
	}
	return result, nil
}

// SetToolName caches the display name for a tool with the given TTL.
func (r *RedisToolCacheRepo) SetToolName(ctx context.Context, toolID, name string, ttl time.Duration) error {
	if toolID == "" {
		return errors.New("tool id cannot be empty")
	}
	if name == "" {
		return errors.New("tool name cannot be empty")
	}

	if err := r.client.Set(ctx, toolNameKeyPrefix+toolID, name, ttl).Err(); err != nil {
		return fmt.Errorf("redis set tool name: %w", err)
	}
	return nil
}
