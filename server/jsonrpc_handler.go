package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// rawRequest mirrors the JSON-RPC envelope but keeps every member as raw
// JSON so decodeRequest can validate exact wire types (id must be
// string/number/null; params must be object/null) before committing to a
// concrete Go value.
type rawRequest struct {
	JSONRPC json.RawMessage `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  json.RawMessage `json:"method"`
	Params  json.RawMessage `json:"params"`
}

// JSONRPCHandler is the JSON-RPC 2.0 processor: validates, dispatches
// through the method table, and frames streaming replies as SSE.
type JSONRPCHandler struct {
	logger         *zap.Logger
	taskManager    TaskManager
	responseSender ResponseSender
}

// NewJSONRPCHandler builds the processor.
func NewJSONRPCHandler(logger *zap.Logger, taskManager TaskManager, responseSender ResponseSender) *JSONRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if responseSender == nil {
		responseSender = NewDefaultResponseSender(logger)
	}
	return &JSONRPCHandler{logger: logger, taskManager: taskManager, responseSender: responseSender}
}

// Handle is the single POST endpoint mounted by server.go, default path
// "/a2a".
func (h *JSONRPCHandler) Handle(c *gin.Context) {
	if ct := c.ContentType(); ct != "" && ct != "application/json" {
		agentErr := NewContentTypeNotSupportedError(ct)
		c.JSON(http.StatusUnsupportedMediaType, types.JSONRPCErrorResponse{
			JSONRPC: "2.0",
			Error:   &types.JSONRPCError{Code: int(agentErr.Code), Message: agentErr.Message},
		})
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.responseSender.SendError(c, nil, NewParseError("failed to read request body"))
		return
	}

	req, id, agentErr := decodeRequest(body)
	if agentErr != nil {
		h.responseSender.SendError(c, id, agentErr)
		return
	}

	switch req.Method {
	case "message/send":
		h.handleMessageSend(c, req)
	case "message/stream":
		h.handleMessageStream(c, req)
	case "tasks/get":
		h.handleTaskGet(c, req)
	case "tasks/cancel":
		h.handleTaskCancel(c, req)
	case "tasks/subscribe", "tasks/resubscribe":
		h.handleTaskSubscribe(c, req)
	case "tasks/pushNotificationConfig/set":
		h.handlePushNotificationSet(c, req)
	case "tasks/pushNotificationConfig/get":
		h.handlePushNotificationGet(c, req)
	default:
		h.responseSender.SendError(c, req.ID, NewMethodNotFoundError(req.Method))
	}
}

// decodeRequest applies strict JSON-RPC 2.0 validation to the raw body,
// returning a ready-to-dispatch JSONRPCRequest. The returned id is always
// usable for error echoing even when validation fails partway through.
func decodeRequest(body []byte) (types.JSONRPCRequest, any, *AgentError) {
	var raw rawRequest
	if err := json.Unmarshal(body, &raw); err != nil {
		return types.JSONRPCRequest{}, nil, NewParseError("malformed JSON request body")
	}

	id, err := decodeRequestID(raw.ID)
	if err != nil {
		return types.JSONRPCRequest{}, nil, NewInvalidRequestError("id must be a string, number, or null")
	}

	var version string
	if len(raw.JSONRPC) > 0 {
		if err := json.Unmarshal(raw.JSONRPC, &version); err != nil {
			return types.JSONRPCRequest{}, id, NewInvalidRequestError("jsonrpc must be a string")
		}
	}
	if version != "2.0" {
		return types.JSONRPCRequest{}, id, NewInvalidRequestError(`jsonrpc must equal "2.0"`)
	}

	var method string
	if len(raw.Method) > 0 {
		_ = json.Unmarshal(raw.Method, &method)
	}
	if method == "" {
		return types.JSONRPCRequest{}, id, NewInvalidRequestError("method must be a non-empty string")
	}
	if !knownMethods[method] {
		return types.JSONRPCRequest{}, id, NewMethodNotFoundError(method)
	}

	var params any
	if len(raw.Params) > 0 && string(raw.Params) != "null" {
		if err := json.Unmarshal(raw.Params, &params); err != nil {
			return types.JSONRPCRequest{}, id, NewInvalidParamsError("params must decode to an object")
		}
		if _, ok := params.(map[string]any); !ok {
			return types.JSONRPCRequest{}, id, NewInvalidParamsError("params must be an object or null")
		}
	}

	return types.JSONRPCRequest{JSONRPC: version, ID: id, Method: method, Params: params}, id, nil
}

var knownMethods = map[string]bool{
	"message/send":                     true,
	"message/stream":                   true,
	"tasks/get":                        true,
	"tasks/cancel":                     true,
	"tasks/subscribe":                  true,
	"tasks/resubscribe":                true,
	"tasks/pushNotificationConfig/set": true,
	"tasks/pushNotificationConfig/get": true,
}

// decodeRequestID accepts absent, null, string, or number ids and rejects
// any other JSON type. Numbers decode as json.Number so the response echo
// keeps the exact wire form instead of coercing to float or string.
func decodeRequestID(raw json.RawMessage) (any, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&n); err == nil {
		return n, nil
	}
	return nil, fmt.Errorf("id must be string, number, or null")
}

func bindParams[T any](req types.JSONRPCRequest) (T, *AgentError) {
	var out T
	if req.Params == nil {
		return out, nil
	}
	raw, err := json.Marshal(req.Params)
	if err != nil {
		return out, NewInvalidParamsError("invalid params")
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, NewInvalidParamsError("invalid params")
	}
	return out, nil
}

func (h *JSONRPCHandler) handleMessageSend(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.MessageSendParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	result, err := h.taskManager.SendMessage(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.responseSender.SendSuccess(c, req.ID, result)
}

func (h *JSONRPCHandler) handleTaskGet(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.TaskQueryParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}
	if params.HistoryLength != nil && *params.HistoryLength < 0 {
		h.responseSender.SendError(c, req.ID, NewInvalidParamsError("historyLength must be >= 0"))
		return
	}

	task, err := h.taskManager.GetTask(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.responseSender.SendSuccess(c, req.ID, task)
}

func (h *JSONRPCHandler) handleTaskCancel(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.TaskIdParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	task, err := h.taskManager.CancelTask(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.responseSender.SendSuccess(c, req.ID, task)
}

func (h *JSONRPCHandler) handlePushNotificationSet(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.TaskPushNotificationConfig](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	config, err := h.taskManager.SetPushNotification(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.responseSender.SendSuccess(c, req.ID, config)
}

func (h *JSONRPCHandler) handlePushNotificationGet(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.GetTaskPushNotificationConfigParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	config, err := h.taskManager.GetPushNotification(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.responseSender.SendSuccess(c, req.ID, config)
}

// handleMessageStream and handleTaskSubscribe write SSE frames directly
// rather than going through ResponseSender.
func (h *JSONRPCHandler) handleMessageStream(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.MessageSendParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	events, err := h.taskManager.SendMessageStreaming(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.streamJSONRPC(c, req.ID, events)
}

func (h *JSONRPCHandler) handleTaskSubscribe(c *gin.Context, req types.JSONRPCRequest) {
	params, agentErr := bindParams[types.TaskIdParams](req)
	if agentErr != nil {
		h.responseSender.SendError(c, req.ID, agentErr)
		return
	}

	events, err := h.taskManager.SubscribeToTask(c.Request.Context(), params)
	if err != nil {
		h.responseSender.SendError(c, req.ID, AsAgentError(err).WithRequestID(req.ID))
		return
	}
	h.streamJSONRPC(c, req.ID, events)
}

func (h *JSONRPCHandler) streamJSONRPC(c *gin.Context, id any, events <-chan types.A2AEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for event := range events {
		frame := types.JSONRPCSuccessResponse{JSONRPC: "2.0", ID: id, Result: event}
		data, err := json.Marshal(frame)
		if err != nil {
			h.logger.Error("failed to marshal SSE frame", zap.Error(err))
			continue
		}
		if _, err := fmt.Fprintf(c.Writer, "data: %s\n\n", data); err != nil {
			h.logger.Error("failed to write SSE frame", zap.Error(err))
			return
		}
		c.Writer.Flush()
	}
}
