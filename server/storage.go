package server

import (
	"context"
	"time"

	"github.com/a2a-go/runtime/types"
)

// Storage is the persistence contract for tasks and push-notification
// configs. Implementations must honor ctx cancellation, returning a
// cancellation error if ctx is already done before work begins.
type Storage interface {
	// GetTask returns the task stored under id, or (nil, false) if absent.
	// Fails InvalidParams on an empty id.
	GetTask(ctx context.Context, id string) (*types.Task, bool, error)

	// SetTask upserts task. Fails InvalidParams if task.ID is empty.
	SetTask(ctx context.Context, task *types.Task) error

	// UpdateStatus atomically replaces a task's status. Fails
	// TaskNotFound if the task doesn't exist.
	UpdateStatus(ctx context.Context, taskID string, state types.TaskState, message *types.Message) (types.TaskStatus, error)

	// GetPushNotification returns the push config with the given id for
	// taskID, or (nil, false) if none matches.
	GetPushNotification(ctx context.Context, taskID string, configID *string) (*types.PushNotificationConfig, bool, error)

	// GetPushNotifications returns all push configs for taskID in
	// insertion order.
	GetPushNotifications(ctx context.Context, taskID string) ([]types.PushNotificationConfig, error)

	// SetPushNotificationConfig appends or replaces by (taskID, config.ID).
	// Fails InvalidParams if taskID is empty.
	SetPushNotificationConfig(ctx context.Context, taskID string, config types.PushNotificationConfig) error
}

// checkContext returns a cancellation AgentError if ctx is already done,
// so operations abort before starting any work.
func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return &AgentError{Code: ErrInternalError, Message: "canceled", Cause: ctx.Err()}
	default:
		return nil
	}
}

// newTaskStatus stamps a status transition with the current time, shared by
// every Storage implementation's UpdateStatus.
func newTaskStatus(state types.TaskState, message *types.Message) types.TaskStatus {
	now := time.Now().UTC()
	return types.TaskStatus{
		State:     state,
		Message:   message,
		Timestamp: &now,
	}
}
