package types

import (
	"encoding/json"
	"fmt"
)

// Part is a fragment of a Message or Artifact. It is a tagged sum type on
// the wire (discriminator field "kind"); in Go it holds one of TextPart,
// FilePart, DataPart, or — for forward compatibility with kinds this
// version doesn't know about — a raw map[string]any. Consumers should
// type-switch rather than assume a concrete variant.
type Part any

// TextPart is a plain-text fragment.
type TextPart struct {
	Kind     string         `json:"kind"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// FileContent is the payload of a FilePart, itself a two-way tagged union:
// inline bytes or a remote URI, never both.
type FileContent struct {
	Kind      string  `json:"kind"`
	Bytes     *string `json:"bytes,omitempty"`
	URI       *string `json:"uri,omitempty"`
	MediaType *string `json:"mediaType,omitempty"`
	Name      *string `json:"name,omitempty"`
}

// FilePart is a file fragment, either inline or by reference.
type FilePart struct {
	Kind     string         `json:"kind"`
	File     FileContent    `json:"file"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// DataPart is a structured-data fragment.
type DataPart struct {
	Kind     string         `json:"kind"`
	Data     map[string]any `json:"data"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewTextPart builds a TextPart ready to drop into a []Part.
func NewTextPart(text string) Part {
	return TextPart{Kind: "text", Text: text}
}

// NewDataPart builds a DataPart ready to drop into a []Part.
func NewDataPart(data map[string]any) Part {
	return DataPart{Kind: "data", Data: data}
}

// UnmarshalPart decodes a single JSON part by peeking its "kind" field and
// dispatching to the matching concrete type. Unknown kinds decode to a
// plain map so the caller can still inspect them.
func UnmarshalPart(data []byte) (Part, error) {
	var tag struct {
		Kind string `json:"kind"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return nil, fmt.Errorf("part: unmarshal kind: %w", err)
	}

	switch tag.Kind {
	case "text":
		var p TextPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("part: unmarshal text part: %w", err)
		}
		return p, nil
	case "file":
		var p FilePart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("part: unmarshal file part: %w", err)
		}
		return p, nil
	case "data":
		var p DataPart
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("part: unmarshal data part: %w", err)
		}
		return p, nil
	default:
		var p map[string]any
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("part: unmarshal unknown-kind part: %w", err)
		}
		return p, nil
	}
}

// UnmarshalParts decodes a JSON array of parts.
func UnmarshalParts(data []byte) ([]Part, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parts: unmarshal array: %w", err)
	}
	parts := make([]Part, len(raw))
	for i, r := range raw {
		p, err := UnmarshalPart(r)
		if err != nil {
			return nil, fmt.Errorf("parts: index %d: %w", i, err)
		}
		parts[i] = p
	}
	return parts, nil
}

// messageWire mirrors Message but decodes Parts as raw JSON so they can be
// dispatched through UnmarshalPart.
type messageWire struct {
	Kind             string            `json:"kind"`
	Role             Role              `json:"role"`
	Parts            []json.RawMessage `json:"parts"`
	MessageID        string            `json:"messageId"`
	TaskID           *string           `json:"taskId,omitempty"`
	ContextID        *string           `json:"contextId,omitempty"`
	ReferenceTaskIDs []string          `json:"referenceTaskIds,omitempty"`
	Extensions       []string          `json:"extensions,omitempty"`
	Metadata         map[string]any    `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes a Message, dispatching its Parts through
// UnmarshalPart so each element lands as its concrete variant.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w messageWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	parts := make([]Part, len(w.Parts))
	for i, raw := range w.Parts {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("message: part %d: %w", i, err)
		}
		parts[i] = p
	}

	m.Kind = w.Kind
	m.Role = w.Role
	m.Parts = parts
	m.MessageID = w.MessageID
	m.TaskID = w.TaskID
	m.ContextID = w.ContextID
	m.ReferenceTaskIDs = w.ReferenceTaskIDs
	m.Extensions = w.Extensions
	m.Metadata = w.Metadata
	return nil
}

type artifactWire struct {
	ArtifactID  string            `json:"artifactId"`
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Parts       []json.RawMessage `json:"parts"`
	Metadata    map[string]any    `json:"metadata,omitempty"`
}

// UnmarshalJSON decodes an Artifact, dispatching its Parts through
// UnmarshalPart.
func (a *Artifact) UnmarshalJSON(data []byte) error {
	var w artifactWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	parts := make([]Part, len(w.Parts))
	for i, raw := range w.Parts {
		p, err := UnmarshalPart(raw)
		if err != nil {
			return fmt.Errorf("artifact: part %d: %w", i, err)
		}
		parts[i] = p
	}

	a.ArtifactID = w.ArtifactID
	a.Name = w.Name
	a.Description = w.Description
	a.Parts = parts
	a.Metadata = w.Metadata
	return nil
}
