package server

import (
	"context"

	"github.com/a2a-go/runtime/types"
	"go.uber.org/zap"
)

// PushNotificationSender dispatches a task update to a configured webhook.
type PushNotificationSender interface {
	SendTaskUpdate(ctx context.Context, config types.PushNotificationConfig, task *types.Task) error
}

// LoggingPushNotificationSender is the reference sender: it records that a
// dispatch would occur but never performs the HTTP delivery. Push configs
// are stored and retrievable, but nothing calls out.
type LoggingPushNotificationSender struct {
	logger *zap.Logger
}

var _ PushNotificationSender = (*LoggingPushNotificationSender)(nil)

// NewLoggingPushNotificationSender creates the stub sender.
func NewLoggingPushNotificationSender(logger *zap.Logger) *LoggingPushNotificationSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LoggingPushNotificationSender{logger: logger}
}

// SendTaskUpdate logs what would have been delivered and returns nil.
func (s *LoggingPushNotificationSender) SendTaskUpdate(_ context.Context, config types.PushNotificationConfig, task *types.Task) error {
	s.logger.Info("push notification would be dispatched",
		zap.String("task_id", task.ID),
		zap.String("state", string(task.Status.State)),
		zap.String("webhook_url", config.URL))
	// TODO: perform the actual HTTP POST to config.URL once webhook delivery is in scope.
	return nil
}
