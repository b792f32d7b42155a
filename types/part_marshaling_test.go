package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnmarshalPart_Variants(t *testing.T) {
	tests := []struct {
		name string
		json string
		want Part
	}{
		{
			name: "text",
			json: `{"kind":"text","text":"hello"}`,
			want: TextPart{Kind: "text", Text: "hello"},
		},
		{
			name: "file with bytes",
			json: `{"kind":"file","file":{"kind":"bytes","bytes":"aGVsbG8=","name":"greeting.txt"}}`,
			want: FilePart{Kind: "file", File: FileContent{Kind: "bytes", Bytes: strPtr("aGVsbG8="), Name: strPtr("greeting.txt")}},
		},
		{
			name: "file with uri",
			json: `{"kind":"file","file":{"kind":"uri","uri":"https://example.com/report.pdf","mediaType":"application/pdf"}}`,
			want: FilePart{Kind: "file", File: FileContent{Kind: "uri", URI: strPtr("https://example.com/report.pdf"), MediaType: strPtr("application/pdf")}},
		},
		{
			name: "data",
			json: `{"kind":"data","data":{"answer":"42"}}`,
			want: DataPart{Kind: "data", Data: map[string]any{"answer": "42"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := UnmarshalPart([]byte(tt.json))
			require.NoError(t, err)
			assert.Equal(t, tt.want, part)
		})
	}
}

func TestUnmarshalPart_UnknownKindDecodesToMap(t *testing.T) {
	part, err := UnmarshalPart([]byte(`{"kind":"video","uri":"https://example.com/clip.mp4"}`))
	require.NoError(t, err)

	m, ok := part.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "video", m["kind"])
	assert.Equal(t, "https://example.com/clip.mp4", m["uri"])
}

func TestUnmarshalPart_InvalidJSON(t *testing.T) {
	_, err := UnmarshalPart([]byte(`{not json`))
	require.Error(t, err)
}

func TestMessage_UnmarshalDispatchesParts(t *testing.T) {
	data := []byte(`{
		"kind": "message",
		"role": "user",
		"messageId": "m1",
		"taskId": "t1",
		"parts": [
			{"kind": "text", "text": "look at this"},
			{"kind": "data", "data": {"x": true}}
		]
	}`)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))

	assert.Equal(t, RoleUser, msg.Role)
	require.NotNil(t, msg.TaskID)
	assert.Equal(t, "t1", *msg.TaskID)
	require.Len(t, msg.Parts, 2)
	assert.Equal(t, TextPart{Kind: "text", Text: "look at this"}, msg.Parts[0])
	assert.Equal(t, DataPart{Kind: "data", Data: map[string]any{"x": true}}, msg.Parts[1])
}

func TestArtifact_UnmarshalDispatchesParts(t *testing.T) {
	data := []byte(`{
		"artifactId": "a1",
		"name": "result",
		"parts": [{"kind": "text", "text": "done"}]
	}`)

	var artifact Artifact
	require.NoError(t, json.Unmarshal(data, &artifact))

	assert.Equal(t, "a1", artifact.ArtifactID)
	require.NotNil(t, artifact.Name)
	assert.Equal(t, "result", *artifact.Name)
	require.Len(t, artifact.Parts, 1)
	assert.Equal(t, TextPart{Kind: "text", Text: "done"}, artifact.Parts[0])
}

func TestMessage_RoundTrip(t *testing.T) {
	original := Message{
		Kind:      "message",
		Role:      RoleAgent,
		MessageID: "m1",
		Parts: []Part{
			NewTextPart("hello"),
			NewDataPart(map[string]any{"k": "v"}),
		},
	}

	data, err := json.Marshal(original)
	require.NoError(t, err)

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, original, decoded)
}

func strPtr(s string) *string { return &s }
