package server

import (
	"context"
	"sync"

	"github.com/a2a-go/runtime/types"
	"go.uber.org/zap"
)

// InMemoryStorage is the reference Storage implementation: concurrency-safe
// keyed maps for tasks, and an ordered slice of push configs per task (a
// config whose id is already stored replaces that entry in place) so
// GetPushNotifications yields insertion order and
// GetPushNotification(taskID, nil) returns the first inserted config.
type InMemoryStorage struct {
	logger *zap.Logger

	tasksMu sync.RWMutex
	tasks   map[string]*types.Task

	pushMu sync.RWMutex
	push   map[string][]types.PushNotificationConfig
}

var _ Storage = (*InMemoryStorage)(nil)

// NewInMemoryStorage creates an empty in-memory store.
func NewInMemoryStorage(logger *zap.Logger) *InMemoryStorage {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InMemoryStorage{
		logger: logger,
		tasks:  make(map[string]*types.Task),
		push:   make(map[string][]types.PushNotificationConfig),
	}
}

func (s *InMemoryStorage) GetTask(ctx context.Context, id string) (*types.Task, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}
	if id == "" {
		return nil, false, NewInvalidParamsError("task id must not be empty")
	}

	s.tasksMu.RLock()
	defer s.tasksMu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, false, nil
	}

	// Return a copy so callers can't mutate stored state in place; writes
	// only land through SetTask.
	taskCopy := *task
	return &taskCopy, true, nil
}

func (s *InMemoryStorage) SetTask(ctx context.Context, task *types.Task) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if task == nil || task.ID == "" {
		return NewInvalidParamsError("task id must not be empty")
	}

	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	taskCopy := *task
	s.tasks[task.ID] = &taskCopy
	return nil
}

func (s *InMemoryStorage) UpdateStatus(ctx context.Context, taskID string, state types.TaskState, message *types.Message) (types.TaskStatus, error) {
	if err := checkContext(ctx); err != nil {
		return types.TaskStatus{}, err
	}

	s.tasksMu.Lock()
	defer s.tasksMu.Unlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return types.TaskStatus{}, NewTaskNotFoundError(taskID)
	}

	task.Status = newTaskStatus(state, message)
	return task.Status, nil
}

func (s *InMemoryStorage) GetPushNotification(ctx context.Context, taskID string, configID *string) (*types.PushNotificationConfig, bool, error) {
	if err := checkContext(ctx); err != nil {
		return nil, false, err
	}

	s.pushMu.RLock()
	defer s.pushMu.RUnlock()

	configs := s.push[taskID]
	if configID == nil {
		if len(configs) == 0 {
			return nil, false, nil
		}
		cfg := configs[0]
		return &cfg, true, nil
	}

	for _, cfg := range configs {
		if cfg.ID != nil && *cfg.ID == *configID {
			cfg := cfg
			return &cfg, true, nil
		}
	}
	return nil, false, nil
}

func (s *InMemoryStorage) GetPushNotifications(ctx context.Context, taskID string) ([]types.PushNotificationConfig, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.pushMu.RLock()
	defer s.pushMu.RUnlock()

	out := make([]types.PushNotificationConfig, len(s.push[taskID]))
	copy(out, s.push[taskID])
	return out, nil
}

func (s *InMemoryStorage) SetPushNotificationConfig(ctx context.Context, taskID string, config types.PushNotificationConfig) error {
	if err := checkContext(ctx); err != nil {
		return err
	}
	if taskID == "" {
		return NewInvalidParamsError("task id must not be empty")
	}

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	configs := s.push[taskID]
	replaced := false
	for i, existing := range configs {
		if sameConfigID(existing.ID, config.ID) {
			configs[i] = config
			replaced = true
			break
		}
	}
	if !replaced {
		configs = append(configs, config)
	}
	s.push[taskID] = configs

	s.logger.Debug("push notification config stored",
		zap.String("task_id", taskID),
		zap.Bool("replaced", replaced))
	return nil
}

func sameConfigID(a, b *string) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
