package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docintel/backend/pkg/logger"
)

// Redis is the durable shared cache backend. Every operation that fails
// against the server degrades to the in-process fallback for that call, so
// connectivity loss never turns a cache miss into a caller-visible error.
type Redis struct {
	client   *redis.Client
	fallback *Memory
}

func NewRedis(addr, password string, db int) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable at startup, cache will fall back per call",
			zap.String("addr", addr),
			zap.Error(err),
		)
	} else {
		logger.Info("Redis cache connected", zap.String("addr", addr))
	}

	return &Redis{
		client:   client,
		fallback: NewMemory(),
	}
}

func (r *Redis) Close() error {
	return r.client.Close()
}

// Connected reports current reachability of the backend, for health checks.
func (r *Redis) Connected(ctx context.Context) bool {
	return r.client.Ping(ctx).Err() == nil
}

func (r *Redis) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		logger.Warn("Redis get failed, using in-memory fallback", zap.Error(err))
		return r.fallback.Get(ctx, key, out)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	if err := r.client.Set(ctx, key, data, ttl).Err(); err != nil {
		logger.Warn("Redis set failed, using in-memory fallback", zap.Error(err))
		return r.fallback.Set(ctx, key, value, ttl)
	}

	return nil
}

// Clear evicts all query entries by prefix scan, leaving unrelated keys in
// the shared database untouched.
func (r *Redis) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, "qa:*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		logger.Warn("Redis clear failed, clearing in-memory fallback", zap.Error(err))
	}

	return r.fallback.Clear(ctx)
}
