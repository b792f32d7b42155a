package server

import (
	"context"

	"github.com/a2a-go/runtime/types"
)

// AgentCapabilities is the immutable set of hooks the host supplies at
// construction. The value is passed once into NewTaskManager (or the
// builder) and never mutated afterward; hooks may not be reassigned once
// the manager is serving traffic.
type AgentCapabilities struct {
	// OnMessageReceived handles a message with no taskId on the stateless
	// path. If nil, the manager always creates a task instead.
	OnMessageReceived func(ctx context.Context, params types.MessageSendParams) (types.A2AEvent, error)

	// OnTaskCreated runs after a new task is persisted; the agent performs
	// its first turn here. A nil hook is a legal no-op.
	OnTaskCreated func(ctx context.Context, task *types.Task) error

	// OnTaskUpdated runs after a subsequent message is appended to an
	// existing task. A nil hook is a legal no-op.
	OnTaskUpdated func(ctx context.Context, task *types.Task) error

	// OnTaskCancelled runs after cancellation is persisted. A nil hook is a
	// legal no-op.
	OnTaskCancelled func(ctx context.Context, task *types.Task) error

	// OnAgentCardQuery produces the discovery card for agentURL. If nil, a
	// stub card named "Unknown" is returned.
	OnAgentCardQuery func(ctx context.Context, agentURL string) (types.AgentCard, error)
}

// WithDefaults returns a copy of c with a nil OnAgentCardQuery replaced by
// the stub-card default. The task hooks stay nil and are nil-checked at
// their call sites, where nil means "skip".
func (c AgentCapabilities) WithDefaults() AgentCapabilities {
	if c.OnAgentCardQuery == nil {
		c.OnAgentCardQuery = defaultAgentCardQuery
	}
	return c
}

func defaultAgentCardQuery(_ context.Context, agentURL string) (types.AgentCard, error) {
	return types.AgentCard{
		Name:               "Unknown",
		URL:                agentURL,
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Skills:             []types.AgentSkill{},
		PreferredTransport: types.TransportJSONRPC,
	}, nil
}
