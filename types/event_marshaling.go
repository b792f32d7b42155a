package types

import (
	"encoding/json"
	"fmt"
)

// A2AEvent is a tagged sum type streamed from the task manager to SSE
// subscribers: one of *Task, Message, TaskStatusUpdateEvent, or
// TaskArtifactUpdateEvent, discriminated on the wire by "kind".
type A2AEvent any

// UnmarshalEvent decodes a single JSON event by peeking its "kind" field.
func UnmarshalEvent(data []byte) (A2AEvent, error) {
	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("event: unmarshal kind: %w", err)
	}

	switch tag.Kind {
	case "task":
		var t Task
		if err := json.Unmarshal(data, &t); err != nil {
			return nil, fmt.Errorf("event: unmarshal task: %w", err)
		}
		return &t, nil
	case "message":
		var m Message
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("event: unmarshal message: %w", err)
		}
		return m, nil
	case "status-update":
		var e TaskStatusUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("event: unmarshal status-update: %w", err)
		}
		return e, nil
	case "artifact-update":
		var e TaskArtifactUpdateEvent
		if err := json.Unmarshal(data, &e); err != nil {
			return nil, fmt.Errorf("event: unmarshal artifact-update: %w", err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("event: unknown kind %q", tag.Kind)
	}
}

// EventKind returns the wire discriminator for an A2AEvent, or "" if the
// value isn't a recognized event variant.
func EventKind(e A2AEvent) string {
	switch e.(type) {
	case *Task, Task:
		return "task"
	case Message, *Message:
		return "message"
	case TaskStatusUpdateEvent, *TaskStatusUpdateEvent:
		return "status-update"
	case TaskArtifactUpdateEvent, *TaskArtifactUpdateEvent:
		return "artifact-update"
	default:
		return ""
	}
}
