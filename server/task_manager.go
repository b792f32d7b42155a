package server

import (
	"context"
	"fmt"

	"github.com/a2a-go/runtime/server/otel"
	"github.com/a2a-go/runtime/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TaskManager is the task lifecycle engine: routes inbound messages,
// maintains history and artifacts, enforces the state machine, and
// multiplexes events to subscribers.
type TaskManager interface {
	CreateTask(ctx context.Context, contextID, taskID *string) (*types.Task, error)
	SendMessage(ctx context.Context, params types.MessageSendParams) (types.A2AEvent, error)
	SendMessageStreaming(ctx context.Context, params types.MessageSendParams) (<-chan types.A2AEvent, error)
	GetTask(ctx context.Context, params types.TaskQueryParams) (*types.Task, error)
	CancelTask(ctx context.Context, params types.TaskIdParams) (*types.Task, error)
	SubscribeToTask(ctx context.Context, params types.TaskIdParams) (<-chan types.A2AEvent, error)
	UpdateStatus(ctx context.Context, taskID string, state types.TaskState, message *types.Message, final bool) (types.TaskStatus, error)
	ReturnArtifact(ctx context.Context, taskID string, artifact types.Artifact) error
	SetPushNotification(ctx context.Context, config types.TaskPushNotificationConfig) (*types.TaskPushNotificationConfig, error)
	GetPushNotification(ctx context.Context, params types.GetTaskPushNotificationConfigParams) (*types.TaskPushNotificationConfig, error)
}

// DefaultTaskManager is the reference TaskManager implementation. All
// agent hooks come in as a single immutable AgentCapabilities value at
// construction; there are no mutable handler fields to reassign later.
type DefaultTaskManager struct {
	logger       *zap.Logger
	storage      Storage
	streams      *EventStreamRegistry
	capabilities AgentCapabilities
	telemetry    otel.OpenTelemetry
}

var _ TaskManager = (*DefaultTaskManager)(nil)

// NewTaskManager builds a task manager over storage with the given
// capability hooks. capabilities is captured once; it is never reassigned.
func NewTaskManager(logger *zap.Logger, storage Storage, capabilities AgentCapabilities) *DefaultTaskManager {
	return NewTaskManagerWithTelemetry(logger, storage, capabilities, otel.NoOp{})
}

// NewTaskManagerWithTelemetry is NewTaskManager plus a metrics recorder for
// task-state transitions and active-stream counts.
func NewTaskManagerWithTelemetry(logger *zap.Logger, storage Storage, capabilities AgentCapabilities, telemetry otel.OpenTelemetry) *DefaultTaskManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if telemetry == nil {
		telemetry = otel.NoOp{}
	}
	return &DefaultTaskManager{
		logger:       logger,
		storage:      storage,
		streams:      NewEventStreamRegistry(telemetry),
		capabilities: capabilities.WithDefaults(),
		telemetry:    telemetry,
	}
}

func (tm *DefaultTaskManager) CreateTask(ctx context.Context, contextID, taskID *string) (*types.Task, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	task := &types.Task{
		Kind:      "task",
		ID:        stringOrNewUUID(taskID),
		ContextID: stringOrNewUUID(contextID),
		Status:    newTaskStatus(types.TaskStateSubmitted, nil),
	}

	if err := tm.storage.SetTask(ctx, task); err != nil {
		return nil, err
	}
	tm.telemetry.RecordTaskTransition(ctx, otel.TaskAttributes{TaskID: task.ID, State: string(task.Status.State)})
	return task, nil
}

// SendMessage dispatches to OnMessageReceived when the message carries no
// taskId, otherwise appends to an existing task's history after validating
// it isn't terminal.
func (tm *DefaultTaskManager) SendMessage(ctx context.Context, params types.MessageSendParams) (types.A2AEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := validateInboundMessage(params.Message); err != nil {
		return nil, err
	}

	if isEmpty(params.Message.TaskID) {
		return tm.createFromMessage(ctx, params)
	}

	taskID := *params.Message.TaskID
	task, ok, err := tm.storage.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewTaskNotFoundError(taskID)
	}
	if task.Status.State.IsTerminal() {
		return nil, NewInvalidRequestError("cannot send message to task in terminal state")
	}

	if err := tm.appendAndTrim(task, params); err != nil {
		return nil, err
	}
	if err := tm.storage.SetTask(ctx, task); err != nil {
		return nil, err
	}

	if tm.capabilities.OnTaskUpdated != nil {
		if err := tm.capabilities.OnTaskUpdated(ctx, task); err != nil {
			return nil, AsAgentError(err)
		}
	}
	return task, nil
}

// createFromMessage is the synchronous task-creation path for SendMessage
// when the inbound message carries no taskId: dispatch to OnMessageReceived
// if set, else create and persist a new task and run OnTaskCreated inline.
func (tm *DefaultTaskManager) createFromMessage(ctx context.Context, params types.MessageSendParams) (types.A2AEvent, error) {
	if tm.capabilities.OnMessageReceived != nil {
		event, err := tm.capabilities.OnMessageReceived(ctx, params)
		if err != nil {
			return nil, AsAgentError(err)
		}
		return event, nil
	}

	task := &types.Task{
		Kind:      "task",
		ID:        uuid.New().String(),
		ContextID: stringOrNewUUID(params.Message.ContextID),
		Status:    newTaskStatus(types.TaskStateSubmitted, nil),
		History:   []types.Message{params.Message},
	}

	if err := tm.storage.SetTask(ctx, task); err != nil {
		return nil, err
	}

	if tm.capabilities.OnTaskCreated != nil {
		if err := tm.capabilities.OnTaskCreated(ctx, task); err != nil {
			return nil, AsAgentError(err)
		}
	}
	return task, nil
}

// SendMessageStreaming mirrors SendMessage but returns the task's live
// event stream instead of a single value. On the task-creation path the
// first emitted event is always the task snapshot; everything after comes
// from the agent hook running in the background.
func (tm *DefaultTaskManager) SendMessageStreaming(ctx context.Context, params types.MessageSendParams) (<-chan types.A2AEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if err := validateInboundMessage(params.Message); err != nil {
		return nil, err
	}

	if isEmpty(params.Message.TaskID) {
		if tm.capabilities.OnMessageReceived != nil {
			event, err := tm.capabilities.OnMessageReceived(ctx, params)
			if err != nil {
				return nil, AsAgentError(err)
			}
			single := newTaskStream()
			single.push(event, true)
			return single.events(ctx), nil
		}

		contextID := params.Message.ContextID
		task := &types.Task{
			Kind:      "task",
			ID:        uuid.New().String(),
			ContextID: stringOrNewUUID(contextID),
			Status:    newTaskStatus(types.TaskStateSubmitted, nil),
			History:   []types.Message{params.Message},
		}
		if err := tm.storage.SetTask(ctx, task); err != nil {
			return nil, err
		}

		stream := tm.streams.register(task.ID)
		stream.push(task, false)
		if tm.capabilities.OnTaskCreated != nil {
			go tm.runHook(task, tm.capabilities.OnTaskCreated)
		}
		return stream.events(ctx), nil
	}

	taskID := *params.Message.TaskID
	task, ok, err := tm.storage.GetTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewTaskNotFoundError(taskID)
	}
	if task.Status.State.IsTerminal() {
		return nil, NewInvalidRequestError("cannot send message to task in terminal state")
	}

	if err := tm.appendAndTrim(task, params); err != nil {
		return nil, err
	}
	if err := tm.storage.SetTask(ctx, task); err != nil {
		return nil, err
	}

	stream := tm.streams.register(task.ID)
	if tm.capabilities.OnTaskUpdated != nil {
		go tm.runHook(task, tm.capabilities.OnTaskUpdated)
	}
	return stream.events(ctx), nil
}

// runHook executes a background capability hook on a detached context
// (decoupled from the triggering request so it completes even if the SSE
// reader disconnects), synthesizing a terminal failure event on panic or
// error so the stream never hangs open after a broken hook.
func (tm *DefaultTaskManager) runHook(task *types.Task, hook func(context.Context, *types.Task) error) {
	ctx := context.WithoutCancel(context.Background())

	defer func() {
		if r := recover(); r != nil {
			tm.logger.Error("capability hook panicked", zap.String("task_id", task.ID), zap.Any("panic", r))
			tm.emitHookFailure(ctx, task, fmt.Errorf("hook panic: %v", r))
		}
	}()

	if err := hook(ctx, task); err != nil {
		tm.logger.Error("capability hook failed", zap.String("task_id", task.ID), zap.Error(err))
		tm.emitHookFailure(ctx, task, err)
	}
}

func (tm *DefaultTaskManager) emitHookFailure(ctx context.Context, task *types.Task, cause error) {
	status, err := tm.storage.UpdateStatus(ctx, task.ID, types.TaskStateFailed, &types.Message{
		Kind:      "message",
		Role:      types.RoleAgent,
		MessageID: uuid.New().String(),
		Parts:     []types.Part{types.NewTextPart(cause.Error())},
	})
	if err != nil {
		tm.logger.Error("failed to persist hook-failure status", zap.String("task_id", task.ID), zap.Error(err))
		return
	}
	tm.telemetry.RecordTaskTransition(ctx, otel.TaskAttributes{TaskID: task.ID, State: string(types.TaskStateFailed)})

	tm.streams.publish(task.ID, types.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Status:    status,
		Final:     true,
	}, true)
}

// GetTask returns a trimmed view of the stored task without mutating it.
func (tm *DefaultTaskManager) GetTask(ctx context.Context, params types.TaskQueryParams) (*types.Task, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	task, ok, err := tm.storage.GetTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewTaskNotFoundError(params.ID)
	}

	trimmed, err := trimHistory(task.History, params.HistoryLength)
	if err != nil {
		return nil, err
	}
	if len(trimmed) == len(task.History) {
		return task, nil
	}

	view := *task
	view.History = trimmed
	return &view, nil
}

func (tm *DefaultTaskManager) CancelTask(ctx context.Context, params types.TaskIdParams) (*types.Task, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	task, ok, err := tm.storage.GetTask(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, NewTaskNotFoundError(params.ID)
	}
	if task.Status.State.IsTerminal() {
		return nil, NewTaskNotCancelableError(params.ID)
	}

	status, err := tm.storage.UpdateStatus(ctx, params.ID, types.TaskStateCanceled, nil)
	if err != nil {
		return nil, err
	}
	task.Status = status
	tm.telemetry.RecordTaskTransition(ctx, otel.TaskAttributes{TaskID: params.ID, State: string(types.TaskStateCanceled)})

	if tm.capabilities.OnTaskCancelled != nil {
		if err := tm.capabilities.OnTaskCancelled(ctx, task); err != nil {
			tm.logger.Error("OnTaskCancelled hook failed", zap.String("task_id", params.ID), zap.Error(err))
		}
	}

	tm.streams.publish(params.ID, types.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    params.ID,
		ContextID: task.ContextID,
		Status:    status,
		Final:     true,
	}, true)

	return task, nil
}

// SubscribeToTask re-attaches to an already-registered stream; it never
// creates one.
func (tm *DefaultTaskManager) SubscribeToTask(ctx context.Context, params types.TaskIdParams) (<-chan types.A2AEvent, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	stream, ok := tm.streams.lookup(params.ID)
	if !ok {
		return nil, NewTaskNotFoundError(params.ID)
	}
	return stream.events(ctx), nil
}

func (tm *DefaultTaskManager) UpdateStatus(ctx context.Context, taskID string, state types.TaskState, message *types.Message, final bool) (types.TaskStatus, error) {
	if err := checkContext(ctx); err != nil {
		return types.TaskStatus{}, err
	}

	status, err := tm.storage.UpdateStatus(ctx, taskID, state, message)
	if err != nil {
		return types.TaskStatus{}, err
	}
	tm.telemetry.RecordTaskTransition(ctx, otel.TaskAttributes{TaskID: taskID, State: string(state)})

	contextID := ""
	if task, ok, err := tm.storage.GetTask(ctx, taskID); err == nil && ok {
		contextID = task.ContextID
	}

	tm.streams.publish(taskID, types.TaskStatusUpdateEvent{
		Kind:      "status-update",
		TaskID:    taskID,
		ContextID: contextID,
		Status:    status,
		Final:     final,
	}, final)

	return status, nil
}

func (tm *DefaultTaskManager) ReturnArtifact(ctx context.Context, taskID string, artifact types.Artifact) error {
	if err := checkContext(ctx); err != nil {
		return err
	}

	task, ok, err := tm.storage.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if !ok {
		return NewTaskNotFoundError(taskID)
	}

	task.Artifacts = append(task.Artifacts, artifact)
	if err := tm.storage.SetTask(ctx, task); err != nil {
		return err
	}

	tm.streams.publish(taskID, types.TaskArtifactUpdateEvent{
		Kind:      "artifact-update",
		TaskID:    taskID,
		ContextID: task.ContextID,
		Artifact:  artifact,
	}, false)

	return nil
}

func (tm *DefaultTaskManager) SetPushNotification(ctx context.Context, config types.TaskPushNotificationConfig) (*types.TaskPushNotificationConfig, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}
	if config.TaskID == "" {
		return nil, NewInvalidParamsError("taskId must not be empty")
	}

	if err := tm.storage.SetPushNotificationConfig(ctx, config.TaskID, config.PushNotificationConfig); err != nil {
		return nil, err
	}
	return &config, nil
}

func (tm *DefaultTaskManager) GetPushNotification(ctx context.Context, params types.GetTaskPushNotificationConfigParams) (*types.TaskPushNotificationConfig, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	if _, ok, err := tm.storage.GetTask(ctx, params.ID); err != nil {
		return nil, err
	} else if !ok {
		return nil, NewTaskNotFoundError(params.ID)
	}

	config, found, err := tm.storage.GetPushNotification(ctx, params.ID, params.PushNotificationConfigID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &types.TaskPushNotificationConfig{TaskID: params.ID, PushNotificationConfig: *config}, nil
}

// appendAndTrim appends the inbound message to task's history and, if
// Configuration.HistoryLength is set, trims the stored history to that
// window — the trimmed result is what gets persisted, unlike GetTask's
// read-only view trim.
func (tm *DefaultTaskManager) appendAndTrim(task *types.Task, params types.MessageSendParams) error {
	task.History = append(task.History, params.Message)

	var n *int
	if params.Configuration != nil {
		n = params.Configuration.HistoryLength
	}

	trimmed, err := trimHistory(task.History, n)
	if err != nil {
		return err
	}
	task.History = trimmed
	return nil
}

// trimHistory applies the history window: nil keeps everything, negative n
// is a validation error, 0 keeps nothing, and a positive n keeps the last
// n entries.
func trimHistory(history []types.Message, n *int) ([]types.Message, error) {
	if n == nil {
		return history, nil
	}
	if *n < 0 {
		return nil, NewInvalidParamsError("historyLength must be >= 0")
	}
	if *n == 0 {
		return []types.Message{}, nil
	}
	if *n >= len(history) {
		return history, nil
	}
	return history[len(history)-*n:], nil
}

func validateInboundMessage(message types.Message) error {
	if len(message.Parts) == 0 {
		return NewInvalidParamsError("message.parts must not be empty")
	}
	if message.MessageID == "" {
		return NewInvalidParamsError("message.messageId must not be empty")
	}
	return nil
}

func isEmpty(s *string) bool {
	return s == nil || *s == ""
}

func stringOrNewUUID(s *string) string {
	if s != nil && *s != "" {
		return *s
	}
	return uuid.New().String()
}
