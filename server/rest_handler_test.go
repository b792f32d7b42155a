package server_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	server "github.com/a2a-go/runtime/server"
	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newRESTEngine(t *testing.T, capabilities server.AgentCapabilities) (*gin.Engine, server.TaskManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	storage := server.NewInMemoryStorage(zap.NewNop())
	tm := server.NewTaskManager(zap.NewNop(), storage, capabilities)

	r := gin.New()
	server.NewRESTHandler(zap.NewNop(), tm).Register(r)

	card := server.NewAgentCardService(zap.NewNop(), "https://example.com/a2a", capabilities)
	r.GET("/v1/card", card.Handle)
	r.GET("/.well-known/agent.json", card.Handle)

	return r, tm
}

func doREST(t *testing.T, r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeJSONBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func restCreateTask(t *testing.T, r *gin.Engine) string {
	t.Helper()
	w := doREST(t, r, http.MethodPost, "/v1/message:send", `{"message":{"messageId":"m1","role":"user","parts":[{"kind":"text","text":"start"}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSONBody(t, w)
	require.Equal(t, "task", body["kind"])
	return body["id"].(string)
}

func TestREST_AgentCardRoutes(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})

	for _, path := range []string{"/v1/card", "/.well-known/agent.json"} {
		w := doREST(t, r, http.MethodGet, path, "")
		require.Equal(t, http.StatusOK, w.Code, path)
		body := decodeJSONBody(t, w)
		assert.Equal(t, "Unknown", body["name"], path)
		assert.Equal(t, "https://example.com/a2a", body["url"], path)
	}
}

func TestREST_AgentCardQueryHook(t *testing.T) {
	capabilities := server.AgentCapabilities{
		OnAgentCardQuery: func(_ context.Context, agentURL string) (types.AgentCard, error) {
			return types.AgentCard{Name: "echo-agent", URL: agentURL, Version: "1.2.3"}, nil
		},
	}
	r, _ := newRESTEngine(t, capabilities)

	w := doREST(t, r, http.MethodGet, "/v1/card", "")
	body := decodeJSONBody(t, w)
	assert.Equal(t, "echo-agent", body["name"])
	assert.Equal(t, "1.2.3", body["version"])
}

func TestREST_SendMessageAndGetTask(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	taskID := restCreateTask(t, r)

	w := doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID, "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSONBody(t, w)
	assert.Equal(t, taskID, body["id"])
	assert.Equal(t, "submitted", body["status"].(map[string]any)["state"])
	assert.Len(t, body["history"].([]any), 1)
}

func TestREST_GetTaskHistoryLengthQuery(t *testing.T) {
	r, tm := newRESTEngine(t, server.AgentCapabilities{})
	taskID := restCreateTask(t, r)

	for _, id := range []string{"m2", "m3", "m4"} {
		msg := textMessage(id, "more")
		msg.TaskID = &taskID
		_, err := tm.SendMessage(context.Background(), types.MessageSendParams{Message: msg})
		require.NoError(t, err)
	}

	w := doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+"?historyLength=2", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSONBody(t, w)
	history := body["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "m3", history[0].(map[string]any)["messageId"])
	assert.Equal(t, "m4", history[1].(map[string]any)["messageId"])

	w = doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+"?historyLength=-1", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestREST_GetMissingTaskIs404(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	w := doREST(t, r, http.MethodGet, "/v1/tasks/missing", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestREST_CancelTask(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	taskID := restCreateTask(t, r)

	w := doREST(t, r, http.MethodPost, "/v1/tasks/"+taskID+":cancel", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSONBody(t, w)
	assert.Equal(t, "canceled", body["status"].(map[string]any)["state"])

	w = doREST(t, r, http.MethodPost, "/v1/tasks/"+taskID+":cancel", "")
	assert.Equal(t, http.StatusBadRequest, w.Code, "re-cancel of a terminal task is rejected")
}

func TestREST_PushNotificationConfigs(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	taskID := restCreateTask(t, r)

	for _, cfg := range []struct{ id, url string }{{"a", "https://a"}, {"b", "https://b"}, {"c", "https://c"}} {
		w := doREST(t, r, http.MethodPost, "/v1/tasks/"+taskID+"/pushNotificationConfigs", `{"id":"`+cfg.id+`","url":"`+cfg.url+`"}`)
		require.Equal(t, http.StatusOK, w.Code)
	}

	w := doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+"/pushNotificationConfigs", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSONBody(t, w)
	assert.Equal(t, "https://a", body["pushNotificationConfig"].(map[string]any)["url"], "no configId returns the oldest config")

	w = doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+"/pushNotificationConfigs/b", "")
	require.Equal(t, http.StatusOK, w.Code)
	body = decodeJSONBody(t, w)
	assert.Equal(t, "https://b", body["pushNotificationConfig"].(map[string]any)["url"])

	w = doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+"/pushNotificationConfigs/x", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestREST_StreamMessageFramesAreUnwrapped(t *testing.T) {
	var tm server.TaskManager
	capabilities := server.AgentCapabilities{
		OnTaskCreated: func(ctx context.Context, task *types.Task) error {
			_, err := tm.UpdateStatus(ctx, task.ID, types.TaskStateCompleted, nil, true)
			return err
		},
	}
	r, built := newRESTEngine(t, capabilities)
	tm = built

	w := doREST(t, r, http.MethodPost, "/v1/message:stream", `{"message":{"messageId":"m1","role":"user","parts":[{"kind":"text","text":"go"}]}}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	frames := parseSSEFrames(t, w.Body.String())
	require.Len(t, frames, 2)
	assert.Equal(t, "task", frames[0]["kind"], "frames carry the bare event, no envelope")
	assert.Equal(t, "status-update", frames[1]["kind"])
	assert.Equal(t, true, frames[1]["final"])
}

func TestREST_SubscribeWithoutActiveStreamIs404(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	taskID := restCreateTask(t, r)

	w := doREST(t, r, http.MethodGet, "/v1/tasks/"+taskID+":subscribe", "")
	assert.Equal(t, http.StatusNotFound, w.Code, "subscribe never creates a stream")
}

func TestREST_UnknownMessageActionIs404(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	w := doREST(t, r, http.MethodPost, "/v1/message:burn", `{}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestREST_InvalidBodyIs400(t *testing.T) {
	r, _ := newRESTEngine(t, server.AgentCapabilities{})
	w := doREST(t, r, http.MethodPost, "/v1/message:send", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
