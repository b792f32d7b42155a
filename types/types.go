// Package types defines the wire-compatible entities of the A2A protocol:
// tasks, messages, parts, artifacts, events, and the agent discovery card.
package types

import (
	"strings"
	"time"
)

// Role identifies the sender of a Message.
type Role string

const (
	RoleUser  Role = "user"
	RoleAgent Role = "agent"
)

// TaskState is the closed set of lifecycle states a task can occupy.
type TaskState string

const (
	TaskStateSubmitted     TaskState = "submitted"
	TaskStateWorking       TaskState = "working"
	TaskStateInputRequired TaskState = "input-required"
	TaskStateCompleted     TaskState = "completed"
	TaskStateCanceled      TaskState = "canceled"
	TaskStateFailed        TaskState = "failed"
	TaskStateRejected      TaskState = "rejected"
	TaskStateAuthRequired  TaskState = "auth-required"
	TaskStateUnknown       TaskState = "unknown"
)

// terminalStates is the set of states after which a task accepts no further
// message input.
var terminalStates = map[TaskState]bool{
	TaskStateCompleted: true,
	TaskStateCanceled:  true,
	TaskStateFailed:    true,
	TaskStateRejected:  true,
}

// IsTerminal reports whether state is a member of the terminal set.
func (s TaskState) IsTerminal() bool {
	return terminalStates[s]
}

// TaskStatus is an immutable snapshot of a task's lifecycle state. A new
// transition replaces the value; it is never mutated in place.
type TaskStatus struct {
	State     TaskState  `json:"state"`
	Message   *Message   `json:"message,omitempty"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Task is the unit of work tracked by the task manager.
type Task struct {
	Kind      string         `json:"kind"`
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Artifacts []Artifact     `json:"artifacts,omitempty"`
	History   []Message      `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Message carries one turn of conversation, either from the user or the
// agent.
type Message struct {
	Kind             string         `json:"kind"`
	Role             Role           `json:"role"`
	Parts            []Part         `json:"parts"`
	MessageID        string         `json:"messageId"`
	TaskID           *string        `json:"taskId,omitempty"`
	ContextID        *string        `json:"contextId,omitempty"`
	ReferenceTaskIDs []string       `json:"referenceTaskIds,omitempty"`
	Extensions       []string       `json:"extensions,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
}

// Artifact is a discrete output produced while executing a task.
type Artifact struct {
	ArtifactID  string         `json:"artifactId"`
	Name        *string        `json:"name,omitempty"`
	Description *string        `json:"description,omitempty"`
	Parts       []Part         `json:"parts"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// TaskStatusUpdateEvent reports a status transition for a streamed task.
type TaskStatusUpdateEvent struct {
	Kind      string     `json:"kind"`
	TaskID    string     `json:"taskId"`
	ContextID string     `json:"contextId"`
	Status    TaskStatus `json:"status"`
	Final     bool       `json:"final"`
}

// TaskArtifactUpdateEvent reports a new or appended artifact for a
// streamed task.
type TaskArtifactUpdateEvent struct {
	Kind      string   `json:"kind"`
	TaskID    string   `json:"taskId"`
	ContextID string   `json:"contextId"`
	Artifact  Artifact `json:"artifact"`
	Append    *bool    `json:"append,omitempty"`
	LastChunk *bool    `json:"lastChunk,omitempty"`
}

// AgentCapabilities advertises optional protocol features.
type AgentCapabilities struct {
	Streaming              *bool            `json:"streaming,omitempty"`
	PushNotifications      *bool            `json:"pushNotifications,omitempty"`
	StateTransitionHistory *bool            `json:"stateTransitionHistory,omitempty"`
	Extensions             []AgentExtension `json:"extensions,omitempty"`
}

// AgentExtension declares a protocol extension the agent supports.
type AgentExtension struct {
	URI         string         `json:"uri"`
	Description string         `json:"description,omitempty"`
	Required    bool           `json:"required"`
	Params      map[string]any `json:"params,omitempty"`
}

// AgentSkill describes a distinct capability the agent exposes.
type AgentSkill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Tags        []string `json:"tags"`
	Examples    []string `json:"examples,omitempty"`
	InputModes  []string `json:"inputModes,omitempty"`
	OutputModes []string `json:"outputModes,omitempty"`
}

// TransportJSONRPC is the default transport label for agents that don't
// declare a preferred one.
const TransportJSONRPC = "JSONRPC"

// AgentInterface binds a transport protocol to a URL for multi-transport
// agents.
type AgentInterface struct {
	Transport string `json:"transport"`
	URL       string `json:"url"`
}

// TransportEqual compares two transport labels case-insensitively.
func TransportEqual(a, b string) bool {
	return strings.EqualFold(a, b)
}

// SecurityScheme is a tagged union of supported auth scheme declarations;
// left untyped (raw map) since the core never evaluates security policy —
// authorization is delegated to the host.
type SecurityScheme = map[string]any

// AgentCard is the discovery document an agent publishes.
type AgentCard struct {
	Name                string                    `json:"name"`
	Description         string                    `json:"description"`
	URL                 string                    `json:"url"`
	Version             string                    `json:"version"`
	ProtocolVersion     string                    `json:"protocolVersion"`
	Capabilities        AgentCapabilities         `json:"capabilities"`
	DefaultInputModes   []string                  `json:"defaultInputModes"`
	DefaultOutputModes  []string                  `json:"defaultOutputModes"`
	Skills              []AgentSkill              `json:"skills"`
	SecuritySchemes     map[string]SecurityScheme `json:"securitySchemes,omitempty"`
	AdditionalInterface []AgentInterface          `json:"additionalInterfaces,omitempty"`
	PreferredTransport  string                    `json:"preferredTransport,omitempty"`
}

// AuthenticationInfo describes how a push notification callback should be
// authenticated by its receiver.
type AuthenticationInfo struct {
	Schemes     []string `json:"schemes"`
	Credentials *string  `json:"credentials,omitempty"`
}

// PushNotificationConfig is callback metadata an agent can use to notify an
// external URL about task updates. Dispatch itself is out of scope for the
// core; see server.PushNotificationSender.
type PushNotificationConfig struct {
	ID             *string             `json:"id,omitempty"`
	URL            string              `json:"url"`
	Token          *string             `json:"token,omitempty"`
	Authentication *AuthenticationInfo `json:"authentication,omitempty"`
}

// TaskPushNotificationConfig pairs a task with one of its push configs.
type TaskPushNotificationConfig struct {
	TaskID                 string                 `json:"taskId"`
	PushNotificationConfig PushNotificationConfig `json:"pushNotificationConfig"`
}
