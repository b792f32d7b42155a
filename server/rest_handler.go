package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/a2a-go/runtime/types"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RESTHandler is a parallel HTTP+JSON surface mirroring the JSON-RPC
// method table, with its own status-code mapping instead of the always-200
// JSON-RPC convention.
type RESTHandler struct {
	logger      *zap.Logger
	taskManager TaskManager
}

// NewRESTHandler builds the processor.
func NewRESTHandler(logger *zap.Logger, taskManager TaskManager) *RESTHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RESTHandler{logger: logger, taskManager: taskManager}
}

// Register mounts the REST routes onto r. AIP-style custom methods
// (`{id}:cancel`, `{id}:subscribe`, `message:send`) put a colon inside a
// path segment, which gin's radix-tree router can't match as a static
// suffix next to a `:id` param in the same segment — and gin also forbids
// a wildcard segment alongside static siblings in the same method tree.
// So the POST tree uses params for every segment under /v1 and the
// handlers check the resource names and action suffixes themselves; the
// GET tree has no wildcard at the /v1 level and can stay static.
func (h *RESTHandler) Register(r gin.IRoutes) {
	r.GET("/v1/tasks/:id", h.dispatchTaskGet)
	r.GET("/v1/tasks/:id/pushNotificationConfigs", h.getPushNotification)
	r.GET("/v1/tasks/:id/pushNotificationConfigs/:configId", h.getPushNotification)

	r.POST("/v1/:resource", h.dispatchMessagePost)
	r.POST("/v1/:resource/:item", h.dispatchTaskPost)
	r.POST("/v1/:resource/:item/pushNotificationConfigs", h.dispatchPushConfigPost)
}

const (
	cancelSuffix    = ":cancel"
	subscribeSuffix = ":subscribe"
	sendAction      = "message:send"
	streamAction    = "message:stream"
)

func (h *RESTHandler) dispatchTaskGet(c *gin.Context) {
	id := c.Param("id")
	if stripped, ok := trimSuffix(id, subscribeSuffix); ok {
		setParam(c, "id", stripped)
		h.subscribeTask(c)
		return
	}
	h.getTask(c)
}

func (h *RESTHandler) dispatchTaskPost(c *gin.Context) {
	item := c.Param("item")
	if c.Param("resource") == "tasks" {
		if stripped, ok := trimSuffix(item, cancelSuffix); ok {
			setParam(c, "id", stripped)
			h.cancelTask(c)
			return
		}
	}
	h.writeError(c, NewMethodNotFoundError("POST /v1/"+c.Param("resource")+"/"+item))
}

func (h *RESTHandler) dispatchPushConfigPost(c *gin.Context) {
	if c.Param("resource") != "tasks" {
		h.writeError(c, NewMethodNotFoundError("POST /v1/"+c.Param("resource")))
		return
	}
	setParam(c, "id", c.Param("item"))
	h.setPushNotification(c)
}

// setParam overwrites the value of an existing gin route param in place,
// since gin.Params.ByName returns the first match and a route-level param
// can carry an action suffix (":cancel", ":subscribe") that the handler it
// dispatches to must not see.
func setParam(c *gin.Context, key, value string) {
	for i := range c.Params {
		if c.Params[i].Key == key {
			c.Params[i].Value = value
			return
		}
	}
	c.Params = append(c.Params, gin.Param{Key: key, Value: value})
}

func (h *RESTHandler) dispatchMessagePost(c *gin.Context) {
	switch c.Param("resource") {
	case sendAction:
		h.sendMessage(c)
	case streamAction:
		h.streamMessage(c)
	default:
		h.writeError(c, NewMethodNotFoundError("POST /v1/"+c.Param("resource")))
	}
}

func trimSuffix(s, suffix string) (string, bool) {
	if len(s) > len(suffix) && s[len(s)-len(suffix):] == suffix {
		return s[:len(s)-len(suffix)], true
	}
	return "", false
}

func (h *RESTHandler) getTask(c *gin.Context) {
	params := types.TaskQueryParams{ID: c.Param("id")}
	if raw := c.Query("historyLength"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(c, NewInvalidParamsError("historyLength must be an integer"))
			return
		}
		if n < 0 {
			h.writeError(c, NewInvalidParamsError("historyLength must be >= 0"))
			return
		}
		params.HistoryLength = &n
	}

	task, err := h.taskManager.GetTask(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	c.JSON(http.StatusOK, task)
}

func (h *RESTHandler) cancelTask(c *gin.Context) {
	task, err := h.taskManager.CancelTask(c.Request.Context(), types.TaskIdParams{ID: c.Param("id")})
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	c.JSON(http.StatusOK, task)
}

// subscribeTask streams plain A2AEvent frames, unwrapped from the JSON-RPC
// envelope the JSON-RPC surface uses for the same data.
func (h *RESTHandler) subscribeTask(c *gin.Context) {
	events, err := h.taskManager.SubscribeToTask(c.Request.Context(), types.TaskIdParams{ID: c.Param("id")})
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	h.streamEvents(c, events)
}

func (h *RESTHandler) setPushNotification(c *gin.Context) {
	var config types.PushNotificationConfig
	if err := c.ShouldBindJSON(&config); err != nil {
		h.writeError(c, NewInvalidParamsError("invalid push notification config body"))
		return
	}

	result, err := h.taskManager.SetPushNotification(c.Request.Context(), types.TaskPushNotificationConfig{
		TaskID:                 c.Param("id"),
		PushNotificationConfig: config,
	})
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RESTHandler) getPushNotification(c *gin.Context) {
	params := types.GetTaskPushNotificationConfigParams{ID: c.Param("id")}
	if configID := c.Param("configId"); configID != "" {
		params.PushNotificationConfigID = &configID
	}

	config, err := h.taskManager.GetPushNotification(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	if config == nil {
		h.writeError(c, NewTaskNotFoundError(params.ID))
		return
	}
	c.JSON(http.StatusOK, config)
}

func (h *RESTHandler) sendMessage(c *gin.Context) {
	var params types.MessageSendParams
	if err := c.ShouldBindJSON(&params); err != nil {
		h.writeError(c, NewInvalidParamsError("invalid message/send body"))
		return
	}

	result, err := h.taskManager.SendMessage(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *RESTHandler) streamMessage(c *gin.Context) {
	var params types.MessageSendParams
	if err := c.ShouldBindJSON(&params); err != nil {
		h.writeError(c, NewInvalidParamsError("invalid message/stream body"))
		return
	}

	events, err := h.taskManager.SendMessageStreaming(c.Request.Context(), params)
	if err != nil {
		h.writeError(c, AsAgentError(err))
		return
	}
	h.streamEvents(c, events)
}

// streamEvents writes plain `data: <json>\n\n` frames with the bare
// A2AEvent as payload. Unlike the JSON-RPC surface, REST SSE frames are
// not wrapped in a response envelope.
func (h *RESTHandler) streamEvents(c *gin.Context, events <-chan types.A2AEvent) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	for event := range events {
		data, err := json.Marshal(event)
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

// writeError maps an AgentError onto its REST HTTP status, distinct from
// the JSON-RPC surface's always-200 convention.
func (h *RESTHandler) writeError(c *gin.Context, agentErr *AgentError) {
	status := restStatus(agentErr.Code)
	c.JSON(status, gin.H{
		"error": gin.H{
			"code":    int(agentErr.Code),
			"message": agentErr.Message,
		},
	})
	h.logger.Error("rest error response", zap.Int("status", status), zap.Int("code", int(agentErr.Code)), zap.String("message", agentErr.Message))
}

func restStatus(code AgentErrorCode) int {
	switch code {
	case ErrTaskNotFound, ErrMethodNotFound:
		return http.StatusNotFound
	case ErrInvalidRequest, ErrInvalidParams, ErrTaskNotCancelable, ErrUnsupportedOperation, ErrPushNotificationNotSupported, ErrParseError:
		return http.StatusBadRequest
	case ErrContentTypeNotSupported:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
