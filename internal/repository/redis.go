package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"harborbook/internal/config"
	"harborbook/internal/models"

	"github.com/redis/go-redis/v9"
)

// RedisFlowRepository persists flow states in Redis with a TTL, so an
// interrupted flow survives a bot restart but does not outlive the day.
type RedisFlowRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from config.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisFlowRepository(client *redis.Client, ttl time.Duration) *RedisFlowRepository {
	return &RedisFlowRepository{
		client: client,
		ttl:    ttl,
	}
}

func flowKey(userID int64) string {
	return fmt.Sprintf("flow_state:%d", userID)
}

func (r *RedisFlowRepository) GetFlow(ctx context.Context, userID int64) (*models.FlowState, error) {
	if r.client == nil {
		return nil, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, flowKey(userID)).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get flow state from redis: %w", err)
	}

	var state models.FlowState
	if err := json.Unmarshal([]byte(val), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal flow state: %w", err)
	}

	return &state, nil
}

func (r *RedisFlowRepository) SetFlow(ctx context.Context, state *models.FlowState) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal flow state: %w", err)
	}

	if err := r.client.Set(ctx, flowKey(state.UserID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set flow state in redis: %w", err)
	}

	return nil
}

func (r *RedisFlowRepository) ClearFlow(ctx context.Context, userID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, flowKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete flow state from redis: %w", err)
	}
	return nil
}

func (r *RedisFlowRepository) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", userID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
