package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/docintel/backend/pkg/logger"
)

const taskKeyPrefix = "task:"

// taskTTL bounds registry growth; a record that has not been polled for a
// day is reclaimable.
const taskTTL = 24 * time.Hour

// RedisRegistry keeps task records in redis hashes so that task state
// survives a process restart.
type RedisRegistry struct {
	client *redis.Client
}

// NewRegistry selects the registry backend: redis when an address is
// configured and reachable, in-process memory otherwise.
func NewRegistry(addr, password string, db int) Registry {
	if addr == "" {
		return NewMemoryRegistry()
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis unreachable, task registry falling back to memory",
			zap.String("addr", addr),
			zap.Error(err),
		)
		client.Close()
		return NewMemoryRegistry()
	}

	logger.Info("Redis task registry initialized", zap.String("addr", addr))

	return &RedisRegistry{client: client}
}

func (r *RedisRegistry) Create(ctx context.Context) (*Task, error) {
	now := time.Now()
	task := &Task{
		ID:        uuid.New().String(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	key := taskKeyPrefix + task.ID
	err := r.client.HSet(ctx, key, map[string]any{
		"status":     string(task.Status),
		"created_at": task.CreatedAt.Format(time.RFC3339Nano),
		"updated_at": task.UpdatedAt.Format(time.RFC3339Nano),
	}).Err()
	if err != nil {
		return nil, fmt.Errorf("failed to create task record: %w", err)
	}
	r.client.Expire(ctx, key, taskTTL)

	return task, nil
}

func (r *RedisRegistry) MarkProcessing(ctx context.Context, id string) error {
	return r.transition(ctx, id, StatusProcessing, nil)
}

func (r *RedisRegistry) MarkCompleted(ctx context.Context, id string, result map[string]any) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal task result: %w", err)
	}
	return r.transition(ctx, id, StatusCompleted, map[string]any{"result": string(data)})
}

func (r *RedisRegistry) MarkFailed(ctx context.Context, id string, message string) error {
	return r.transition(ctx, id, StatusFailed, map[string]any{"error": message})
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*Task, error) {
	data, err := r.client.HGetAll(ctx, taskKeyPrefix+id).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read task record: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrTaskNotFound
	}

	task := &Task{
		ID:     id,
		Status: Status(data["status"]),
		Error:  data["error"],
	}

	task.CreatedAt, err = parseTaskTime("created_at", data["created_at"])
	if err != nil {
		return nil, err
	}
	task.UpdatedAt, err = parseTaskTime("updated_at", data["updated_at"])
	if err != nil {
		return nil, err
	}

	if raw, ok := data["result"]; ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &task.Result); err != nil {
			return nil, fmt.Errorf("failed to unmarshal task result: %w", err)
		}
	}

	return task, nil
}

// parseTaskTime rejects corrupt timestamp fields instead of reporting a
// zero time, which would look like updated_at running backwards to pollers.
func parseTaskTime(field, value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt task record: bad %s: %w", field, err)
	}
	return t, nil
}

func (r *RedisRegistry) transition(ctx context.Context, id string, to Status, extra map[string]any) error {
	key := taskKeyPrefix + id

	current, err := r.client.HGet(ctx, key, "status").Result()
	if err == redis.Nil {
		return ErrTaskNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read task status: %w", err)
	}

	if !validTransition(Status(current), to) {
		return ErrInvalidTransition
	}

	fields := map[string]any{
		"status":     string(to),
		"updated_at": time.Now().Format(time.RFC3339Nano),
	}
	for k, v := range extra {
		fields[k] = v
	}

	if err := r.client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("failed to update task record: %w", err)
	}

	return nil
}
