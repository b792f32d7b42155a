package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/a2a-go/runtime/types"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	redisTaskKeyPrefix = "task:"
	redisPushKeyPrefix = "task-push-notification:"
)

// RedisStorage is the distributed-cache Storage reference implementation.
// Values are JSON-serialized; UpdateStatus and SetPushNotificationConfig
// read-modify-write with no cross-process lock, so concurrent writers race
// last-writer-wins.
type RedisStorage struct {
	client *redis.Client
	logger *zap.Logger
}

var _ Storage = (*RedisStorage)(nil)

// NewRedisStorage wraps an already-connected redis client.
func NewRedisStorage(client *redis.Client, logger *zap.Logger) *RedisStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RedisStorage{client: client, logger: logger}
}

func taskKey(id string) string { return redisTaskKeyPrefix + id }
func pushKey(id string) string { return redisPushKeyPrefix + id }

func (s *RedisStorage) GetTask(ctx context.Context, id string) (*types.Task, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, NewInvalidParamsError("task id must not be empty")
	}

	data, err := s.client.Get(ctx, taskKey(id)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, NewInternalError(fmt.Errorf("redis get task: %w", err))
	}

	var task types.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, false, NewInternalError(fmt.Errorf("redis decode task: %w", err))
	}
	return &task, true, nil
}

func (s *RedisStorage) SetTask(ctx context.Context, task *types.Task) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if task == nil || task.ID == "" {
		return NewInvalidParamsError("task id must not be empty")
	}

	data, err := json.Marshal(task)
	if err != nil {
		return NewInternalError(fmt.Errorf("redis encode task: %w", err))
	}
	if err := s.client.Set(ctx, taskKey(task.ID), data, 0).Err(); err != nil {
		return NewInternalError(fmt.Errorf("redis set task: %w", err))
	}
	return nil
}

// UpdateStatus reads the current task bytes, mutates status, writes back.
// There is no optimistic-lock/WATCH around this: callers must tolerate
// last-writer-wins under concurrent updates to the same task.
func (s *RedisStorage) UpdateStatus(ctx context.Context, taskID string, state types.TaskState, message *types.Message) (types.TaskStatus, error) {
	if err := checkContext(ctx); err != nil {
		return types.TaskStatus{}, err
	}

	task, ok, err := s.GetTask(ctx, taskID)
	if err != nil {
		return types.TaskStatus{}, err
	}
	if !ok {
		return types.TaskStatus{}, NewTaskNotFoundError(taskID)
	}

	status := newTaskStatus(state, message)
	task.Status = status

	if err := s.SetTask(ctx, task); err != nil {
		return types.TaskStatus{}, err
	}
	return status, nil
}

func (s *RedisStorage) GetPushNotification(ctx context.Context, taskID string, configID *string) (*types.PushNotificationConfig, bool, error) {
	configs, err := s.GetPushNotifications(ctx, taskID)
	if err != nil {
		return nil, false, err
	}

	if configID == nil {
		if len(configs) == 0 {
			return nil, false, nil
		}
		return &configs[0], true, nil
	}
	for _, cfg := range configs {
		if cfg.ID != nil && *cfg.ID == *configID {
			cfg := cfg
			return &cfg, true, nil
		}
	}
	return nil, false, nil
}

func (s *RedisStorage) GetPushNotifications(ctx context.Context, taskID string) ([]types.PushNotificationConfig, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	data, err := s.client.Get(ctx, pushKey(taskID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, NewInternalError(fmt.Errorf("redis get push configs: %w", err))
	}

	var configs []types.PushNotificationConfig
	if err := json.Unmarshal(data, &configs); err != nil {
		return nil, NewInternalError(fmt.Errorf("redis decode push configs: %w", err))
	}
	return configs, nil
}

// SetPushNotificationConfig reads the list, removes any entry sharing the
// new config's id, appends the new one, writes back.
func (s *RedisStorage) SetPushNotificationConfig(ctx context.Context, taskID string, config types.PushNotificationConfig) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if taskID == "" {
		return NewInvalidParamsError("task id must not be empty")
	}

	configs, err := s.GetPushNotifications(ctx, taskID)
	if err != nil {
		return err
	}

	filtered := configs[:0]
	for _, existing := range configs {
		if !sameConfigID(existing.ID, config.ID) {
			filtered = append(filtered, existing)
		}
	}
	filtered = append(filtered, config)

	data, err := json.Marshal(filtered)
	if err != nil {
		return NewInternalError(fmt.Errorf("redis encode push configs: %w", err))
	}
	if err := s.client.Set(ctx, pushKey(taskID), data, 0).Err(); err != nil {
		return NewInternalError(fmt.Errorf("redis set push configs: %w", err))
	}

	s.logger.Debug("push notification config stored", zap.String("task_id", taskID))
	return nil
}
